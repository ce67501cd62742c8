package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"datafeed/internal/feed"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// Finnhub serves market data quotes and company news from the Finnhub API.
type Finnhub struct {
	desc       *Descriptor
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewFinnhub creates a Finnhub provider.
func NewFinnhub(desc *Descriptor) *Finnhub {
	baseURL := desc.BaseURL
	if baseURL == "" {
		baseURL = finnhubBaseURL
	}

	return &Finnhub{
		desc:    desc,
		apiKey:  os.Getenv(desc.APIKeyEnv),
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: desc.Timeout,
		},
	}
}

func (f *Finnhub) Name() string { return f.desc.Name }

func (f *Finnhub) Supports(dt feed.DataType) bool { return f.desc.SupportsType(dt) }

// Fetch serves MARKET_DATA and NEWS requests.
func (f *Finnhub) Fetch(ctx context.Context, req *feed.DataRequest) (interface{}, error) {
	switch req.Type {
	case feed.DataTypeMarketData:
		return f.quote(ctx, req.Symbol)
	case feed.DataTypeNews:
		return f.companyNews(ctx, req.Symbol, req.Params)
	default:
		return nil, fmt.Errorf("finnhub does not serve %s", req.Type)
	}
}

// Probe issues a quote request as a lightweight health check.
func (f *Finnhub) Probe(ctx context.Context) error {
	_, err := f.quote(ctx, "SPY")
	return err
}

type finnhubQuote struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	Timestamp     int64   `json:"t"`
}

func (f *Finnhub) quote(ctx context.Context, symbol string) (*feed.Quote, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var out finnhubQuote
	if err := getJSON(ctx, f.httpClient, f.baseURL, "/quote", params, f.headers(), &out); err != nil {
		return nil, err
	}
	// Finnhub returns zeros for unknown symbols rather than an error.
	if out.Current == 0 && out.Timestamp == 0 {
		return nil, fmt.Errorf("no quote for %s", symbol)
	}

	return &feed.Quote{
		Symbol:        symbol,
		Price:         out.Current,
		Change:        out.Change,
		ChangePercent: out.ChangePercent,
		Currency:      "USD",
		Timestamp:     time.Unix(out.Timestamp, 0).UTC(),
	}, nil
}

type finnhubNewsItem struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
	Source   string `json:"source"`
	Datetime int64  `json:"datetime"`
	Related  string `json:"related"`
}

func (f *Finnhub) companyNews(ctx context.Context, symbol string, reqParams map[string]string) ([]feed.NewsItem, error) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -7)
	if v := reqParams["from"]; v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			from = t
		}
	}
	if v := reqParams["to"]; v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			to = t
		}
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))

	var out []finnhubNewsItem
	if err := getJSON(ctx, f.httpClient, f.baseURL, "/company-news", params, f.headers(), &out); err != nil {
		return nil, err
	}

	items := make([]feed.NewsItem, 0, len(out))
	for _, n := range out {
		items = append(items, feed.NewsItem{
			Headline:    n.Headline,
			Summary:     n.Summary,
			URL:         n.URL,
			Source:      n.Source,
			Symbol:      symbol,
			PublishedAt: time.Unix(n.Datetime, 0).UTC(),
		})
	}
	return items, nil
}

func (f *Finnhub) headers() map[string]string {
	return map[string]string{"X-Finnhub-Token": f.apiKey}
}
