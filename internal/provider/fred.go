package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"datafeed/internal/feed"
)

const fredBaseURL = "https://api.stlouisfed.org"

// FRED serves economic series observations from the St. Louis Fed FRED API.
// The request symbol is the FRED series ID (e.g. GDP, CPIAUCSL, UNRATE).
type FRED struct {
	desc       *Descriptor
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewFRED creates a FRED provider.
func NewFRED(desc *Descriptor) *FRED {
	baseURL := desc.BaseURL
	if baseURL == "" {
		baseURL = fredBaseURL
	}

	return &FRED{
		desc:    desc,
		apiKey:  os.Getenv(desc.APIKeyEnv),
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: desc.Timeout,
		},
	}
}

func (f *FRED) Name() string { return f.desc.Name }

func (f *FRED) Supports(dt feed.DataType) bool { return f.desc.SupportsType(dt) }

type fredObservations struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
	ErrorMessage string `json:"error_message"`
}

// Fetch serves ECONOMIC_DATA requests.
func (f *FRED) Fetch(ctx context.Context, req *feed.DataRequest) (interface{}, error) {
	if req.Type != feed.DataTypeEconomicData {
		return nil, fmt.Errorf("fred does not serve %s", req.Type)
	}
	return f.observations(ctx, req.Symbol, req.Params["limit"])
}

// Probe fetches a single observation of a small, always-present series.
func (f *FRED) Probe(ctx context.Context) error {
	_, err := f.observations(ctx, "UNRATE", "1")
	return err
}

func (f *FRED) observations(ctx context.Context, seriesID, limit string) (*feed.EconomicSeries, error) {
	params := url.Values{}
	params.Set("series_id", seriesID)
	params.Set("api_key", f.apiKey)
	params.Set("file_type", "json")
	params.Set("sort_order", "desc")
	if limit == "" {
		limit = "12"
	}
	params.Set("limit", limit)

	var out fredObservations
	if err := getJSON(ctx, f.httpClient, f.baseURL, "/fred/series/observations", params, nil, &out); err != nil {
		return nil, err
	}
	if out.ErrorMessage != "" {
		return nil, fmt.Errorf("fred error: %s", out.ErrorMessage)
	}
	if len(out.Observations) == 0 {
		return nil, fmt.Errorf("no observations for series %s", seriesID)
	}

	series := &feed.EconomicSeries{
		SeriesID:     seriesID,
		Observations: make([]feed.EconomicObservation, 0, len(out.Observations)),
	}
	for _, obs := range out.Observations {
		// FRED marks missing values with ".".
		if obs.Value == "." {
			continue
		}
		v, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			continue
		}
		series.Observations = append(series.Observations, feed.EconomicObservation{
			Date:  obs.Date,
			Value: v,
		})
	}
	return series, nil
}
