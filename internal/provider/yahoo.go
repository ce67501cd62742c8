package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"datafeed/internal/feed"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// Yahoo fetches market data from the Yahoo Finance chart API. No API key is
// required.
type Yahoo struct {
	desc       *Descriptor
	baseURL    string
	httpClient *http.Client
}

// NewYahoo creates a Yahoo Finance provider.
func NewYahoo(desc *Descriptor) *Yahoo {
	baseURL := desc.BaseURL
	if baseURL == "" {
		baseURL = yahooBaseURL
	}

	return &Yahoo{
		desc:    desc,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: desc.Timeout,
		},
	}
}

func (y *Yahoo) Name() string { return y.desc.Name }

func (y *Yahoo) Supports(dt feed.DataType) bool { return y.desc.SupportsType(dt) }

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"chartPreviousClose"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
				Currency           string  `json:"currency"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Volume []*int64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch serves MARKET_DATA requests via the chart endpoint.
func (y *Yahoo) Fetch(ctx context.Context, req *feed.DataRequest) (interface{}, error) {
	if req.Type != feed.DataTypeMarketData {
		return nil, fmt.Errorf("yahoo does not serve %s", req.Type)
	}
	return y.quote(ctx, req.Symbol)
}

// Probe fetches a liquid index ETF as a lightweight health check.
func (y *Yahoo) Probe(ctx context.Context) error {
	_, err := y.quote(ctx, "SPY")
	return err
}

func (y *Yahoo) quote(ctx context.Context, symbol string) (*feed.Quote, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "1d")

	var out yahooChartResponse
	path := "/v8/finance/chart/" + url.PathEscape(symbol)
	if err := getJSON(ctx, y.httpClient, y.baseURL, path, params, nil, &out); err != nil {
		return nil, err
	}

	if out.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo error %s: %s", out.Chart.Error.Code, out.Chart.Error.Description)
	}
	if len(out.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart result for %s", symbol)
	}

	meta := out.Chart.Result[0].Meta
	change := meta.RegularMarketPrice - meta.PreviousClose
	changePct := 0.0
	if meta.PreviousClose != 0 {
		changePct = change / meta.PreviousClose * 100
	}

	var volume int64
	if quotes := out.Chart.Result[0].Indicators.Quote; len(quotes) > 0 {
		for _, v := range quotes[0].Volume {
			if v != nil {
				volume += *v
			}
		}
	}

	return &feed.Quote{
		Symbol:        meta.Symbol,
		Price:         meta.RegularMarketPrice,
		Change:        change,
		ChangePercent: changePct,
		Volume:        volume,
		Currency:      meta.Currency,
		Timestamp:     time.Unix(meta.RegularMarketTime, 0).UTC(),
	}, nil
}
