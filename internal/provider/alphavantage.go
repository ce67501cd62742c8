package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"datafeed/internal/feed"
)

const alphaVantageBaseURL = "https://www.alphavantage.co"

// AlphaVantage serves market data quotes and financial statements from the
// Alpha Vantage REST API.
type AlphaVantage struct {
	desc       *Descriptor
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewAlphaVantage creates an Alpha Vantage provider. The API key is resolved
// from the environment variable named in the descriptor.
func NewAlphaVantage(desc *Descriptor) *AlphaVantage {
	baseURL := desc.BaseURL
	if baseURL == "" {
		baseURL = alphaVantageBaseURL
	}

	return &AlphaVantage{
		desc:    desc,
		apiKey:  os.Getenv(desc.APIKeyEnv),
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: desc.Timeout,
		},
	}
}

func (a *AlphaVantage) Name() string { return a.desc.Name }

func (a *AlphaVantage) Supports(dt feed.DataType) bool { return a.desc.SupportsType(dt) }

// Fetch serves MARKET_DATA and FINANCIAL_REPORTS requests.
func (a *AlphaVantage) Fetch(ctx context.Context, req *feed.DataRequest) (interface{}, error) {
	switch req.Type {
	case feed.DataTypeMarketData:
		return a.quote(ctx, req.Symbol)
	case feed.DataTypeFinancialReports:
		return a.incomeStatement(ctx, req.Symbol, req.Params["period"])
	default:
		return nil, fmt.Errorf("alphavantage does not serve %s", req.Type)
	}
}

// Probe issues a quote request as a lightweight health check.
func (a *AlphaVantage) Probe(ctx context.Context) error {
	_, err := a.quote(ctx, "SPY")
	return err
}

type alphaGlobalQuote struct {
	GlobalQuote map[string]string `json:"Global Quote"`
	Note        string            `json:"Note"`
	ErrorMsg    string            `json:"Error Message"`
}

func (a *AlphaVantage) quote(ctx context.Context, symbol string) (*feed.Quote, error) {
	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)
	params.Set("apikey", a.apiKey)

	var out alphaGlobalQuote
	if err := getJSON(ctx, a.httpClient, a.baseURL, "/query", params, nil, &out); err != nil {
		return nil, err
	}
	if out.ErrorMsg != "" {
		return nil, fmt.Errorf("alphavantage error: %s", out.ErrorMsg)
	}
	// A Note body means the free-tier quota is spent. Treat it like a
	// rejection so the router fails over.
	if out.Note != "" {
		return nil, fmt.Errorf("alphavantage throttled: %s", out.Note)
	}
	if len(out.GlobalQuote) == 0 {
		return nil, fmt.Errorf("no quote for %s", symbol)
	}

	price, _ := strconv.ParseFloat(out.GlobalQuote["05. price"], 64)
	change, _ := strconv.ParseFloat(out.GlobalQuote["09. change"], 64)
	changePct, _ := strconv.ParseFloat(strings.TrimSuffix(out.GlobalQuote["10. change percent"], "%"), 64)
	volume, _ := strconv.ParseInt(out.GlobalQuote["06. volume"], 10, 64)

	return &feed.Quote{
		Symbol:        out.GlobalQuote["01. symbol"],
		Price:         price,
		Change:        change,
		ChangePercent: changePct,
		Volume:        volume,
		Currency:      "USD",
		Timestamp:     time.Now().UTC(),
	}, nil
}

type alphaIncomeStatement struct {
	Symbol           string              `json:"symbol"`
	AnnualReports    []map[string]string `json:"annualReports"`
	QuarterlyReports []map[string]string `json:"quarterlyReports"`
	ErrorMsg         string              `json:"Error Message"`
}

func (a *AlphaVantage) incomeStatement(ctx context.Context, symbol, period string) (*feed.FinancialReport, error) {
	params := url.Values{}
	params.Set("function", "INCOME_STATEMENT")
	params.Set("symbol", symbol)
	params.Set("apikey", a.apiKey)

	var out alphaIncomeStatement
	if err := getJSON(ctx, a.httpClient, a.baseURL, "/query", params, nil, &out); err != nil {
		return nil, err
	}
	if out.ErrorMsg != "" {
		return nil, fmt.Errorf("alphavantage error: %s", out.ErrorMsg)
	}

	reports := out.AnnualReports
	if period == "quarterly" {
		reports = out.QuarterlyReports
	} else {
		period = "annual"
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("no %s reports for %s", period, symbol)
	}

	latest := reports[0]
	items := make(map[string]float64, len(latest))
	for k, v := range latest {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			items[k] = f
		}
	}

	return &feed.FinancialReport{
		Symbol:     out.Symbol,
		Period:     period,
		FiscalDate: latest["fiscalDateEnding"],
		Currency:   latest["reportedCurrency"],
		LineItems:  items,
		ReportedAt: time.Now().UTC(),
	}, nil
}
