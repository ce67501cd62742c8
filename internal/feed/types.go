package feed

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DataType identifies the category of data a request asks for.
type DataType string

const (
	DataTypeMarketData       DataType = "market_data"
	DataTypeNews             DataType = "news"
	DataTypeFinancialReports DataType = "financial_reports"
	DataTypeEconomicData     DataType = "economic_data"
)

// ParseDataType parses a data type from its wire representation.
func ParseDataType(s string) (DataType, error) {
	switch DataType(strings.ToLower(strings.TrimSpace(s))) {
	case DataTypeMarketData:
		return DataTypeMarketData, nil
	case DataTypeNews:
		return DataTypeNews, nil
	case DataTypeFinancialReports:
		return DataTypeFinancialReports, nil
	case DataTypeEconomicData:
		return DataTypeEconomicData, nil
	default:
		return "", fmt.Errorf("unknown data type: %q", s)
	}
}

// DataRequest describes one typed fetch. It is immutable once built;
// the engine never modifies a request it is handed.
type DataRequest struct {
	Type            DataType          `json:"type"`
	Symbol          string            `json:"symbol"`
	Params          map[string]string `json:"params,omitempty"`
	RequireRealtime bool              `json:"require_realtime"`
}

// CacheKey derives the cache key for the request. Parameters are sorted so
// equivalent requests always map to the same entry.
func (r *DataRequest) CacheKey() string {
	if len(r.Params) == 0 {
		return fmt.Sprintf("%s:%s", r.Type, r.Symbol)
	}

	keys := make([]string, 0, len(r.Params))
	for k := range r.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(string(r.Type))
	sb.WriteByte(':')
	sb.WriteString(r.Symbol)
	sb.WriteByte(':')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(r.Params[k])
	}
	return sb.String()
}

// DataResponse is the value returned to callers.
type DataResponse struct {
	Data      interface{} `json:"data"`
	Source    string      `json:"source"`
	FetchedAt time.Time   `json:"fetched_at"`
	FromCache bool        `json:"from_cache"`
}

// Quote is the normalized market data payload.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        int64     `json:"volume"`
	Currency      string    `json:"currency"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewsItem is the normalized news payload element.
type NewsItem struct {
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Symbol      string    `json:"symbol,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// FinancialReport is the normalized financial statement payload.
type FinancialReport struct {
	Symbol     string             `json:"symbol"`
	Period     string             `json:"period"` // annual, quarterly
	FiscalDate string             `json:"fiscal_date"`
	Currency   string             `json:"currency"`
	LineItems  map[string]float64 `json:"line_items"`
	ReportedAt time.Time          `json:"reported_at"`
}

// EconomicSeries is the normalized economic indicator payload.
type EconomicSeries struct {
	SeriesID     string                `json:"series_id"`
	Title        string                `json:"title"`
	Units        string                `json:"units"`
	Observations []EconomicObservation `json:"observations"`
}

// EconomicObservation is one point in an economic series.
type EconomicObservation struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}
