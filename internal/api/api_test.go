package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datafeed/internal/config"
	"datafeed/internal/failover"
	"datafeed/internal/feed"
	"datafeed/internal/monitoring"
	"datafeed/internal/provider"
)

type stubProvider struct {
	desc *provider.Descriptor
	err  error
}

func (s *stubProvider) Name() string { return s.desc.Name }

func (s *stubProvider) Supports(dt feed.DataType) bool { return s.desc.SupportsType(dt) }

func (s *stubProvider) Fetch(ctx context.Context, req *feed.DataRequest) (interface{}, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &feed.Quote{Symbol: req.Symbol, Price: 123.45}, nil
}

func (s *stubProvider) Probe(ctx context.Context) error { return s.err }

func newTestServer(t *testing.T, providers ...*stubProvider) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := provider.NewRegistry()
	for _, p := range providers {
		require.NoError(t, reg.Register(p.desc, p))
	}

	metrics := monitoring.NewMetrics()
	engine := failover.NewEngine(failover.DefaultConfig(), reg, metrics, nil)

	cfg := &config.Config{
		App:    config.AppConfig{Name: "datafeed", Env: "test"},
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080},
	}
	return NewServer(cfg, engine, metrics, nil)
}

func stubDescriptor(name string, types ...feed.DataType) *provider.Descriptor {
	return &provider.Descriptor{
		Name:            name,
		Enabled:         true,
		Priority:        1,
		RateLimitPerMin: 100,
		Timeout:         time.Second,
		DataTypes:       types,
	}
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, &stubProvider{desc: stubDescriptor("yahoo", feed.DataTypeMarketData)})

	w := doRequest(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestGetDataEndpoint(t *testing.T) {
	s := newTestServer(t, &stubProvider{desc: stubDescriptor("yahoo", feed.DataTypeMarketData)})

	w := doRequest(s, http.MethodGet, "/api/v1/data?type=market_data&symbol=AAPL", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp feed.DataResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "yahoo", resp.Source)
	assert.False(t, resp.FromCache)
}

func TestGetDataValidation(t *testing.T) {
	s := newTestServer(t, &stubProvider{desc: stubDescriptor("yahoo", feed.DataTypeMarketData)})

	w := doRequest(s, http.MethodGet, "/api/v1/data?type=bogus&symbol=AAPL", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(s, http.MethodGet, "/api/v1/data?type=market_data", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDataUnsupportedType(t *testing.T) {
	s := newTestServer(t, &stubProvider{desc: stubDescriptor("yahoo", feed.DataTypeMarketData)})

	w := doRequest(s, http.MethodGet, "/api/v1/data?type=economic_data&symbol=GDP", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDataExhaustedMapsTo503(t *testing.T) {
	s := newTestServer(t, &stubProvider{
		desc: stubDescriptor("yahoo", feed.DataTypeMarketData),
		err:  errors.New("upstream down"),
	})

	w := doRequest(s, http.MethodGet, "/api/v1/data?type=market_data&symbol=AAPL&realtime=true", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestProviderStatusEndpoint(t *testing.T) {
	s := newTestServer(t,
		&stubProvider{desc: stubDescriptor("yahoo", feed.DataTypeMarketData)},
		&stubProvider{desc: stubDescriptor("fred", feed.DataTypeEconomicData)},
	)

	w := doRequest(s, http.MethodGet, "/api/v1/providers/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]failover.StatusSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Len(t, status, 2)
	assert.Equal(t, failover.CircuitClosed, status["yahoo"].CircuitState)
}

func TestHealthCheckAllEndpoint(t *testing.T) {
	s := newTestServer(t,
		&stubProvider{desc: stubDescriptor("yahoo", feed.DataTypeMarketData)},
		&stubProvider{desc: stubDescriptor("fred", feed.DataTypeEconomicData), err: errors.New("down")},
	)

	w := doRequest(s, http.MethodPost, "/api/v1/providers/health-check", "")
	require.Equal(t, http.StatusOK, w.Code)

	var results map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	assert.True(t, results["yahoo"])
	assert.False(t, results["fred"])
}

func TestSetProviderEnabledEndpoint(t *testing.T) {
	s := newTestServer(t, &stubProvider{desc: stubDescriptor("yahoo", feed.DataTypeMarketData)})

	w := doRequest(s, http.MethodPut, "/api/v1/providers/yahoo/enabled", `{"enabled": false}`)
	assert.Equal(t, http.StatusOK, w.Code)

	// The disabled provider can no longer serve requests.
	w = doRequest(s, http.MethodGet, "/api/v1/data?type=market_data&symbol=AAPL", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(s, http.MethodPut, "/api/v1/providers/unknown/enabled", `{"enabled": true}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(s, http.MethodPut, "/api/v1/providers/yahoo/enabled", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &stubProvider{desc: stubDescriptor("yahoo", feed.DataTypeMarketData)})

	doRequest(s, http.MethodGet, "/api/v1/data?type=market_data&symbol=AAPL", "")

	w := doRequest(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "datafeed_requests_total")
}
