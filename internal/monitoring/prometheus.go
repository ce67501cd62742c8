package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine. Each engine instance
// carries its own registry so independently configured engines can coexist.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	providerAttempts *prometheus.CounterVec
	cacheEvents      *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	circuitState     *prometheus.GaugeVec
	qualityScore     *prometheus.GaugeVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all engine metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datafeed_requests_total",
				Help: "Total number of data requests by outcome",
			},
			[]string{"data_type", "status"},
		),
		providerAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datafeed_provider_attempts_total",
				Help: "Total number of provider attempts by outcome",
			},
			[]string{"provider", "outcome"},
		),
		cacheEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datafeed_cache_events_total",
				Help: "Total number of cache hits, misses, and stale fallbacks",
			},
			[]string{"event"},
		),
		providerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "datafeed_provider_latency_seconds",
				Help:    "Upstream call latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "datafeed_circuit_state",
				Help: "Circuit breaker state per provider (0=closed, 1=half_open, 2=open)",
			},
			[]string{"provider"},
		),
		qualityScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "datafeed_quality_score",
				Help: "Derived provider quality score (0-100)",
			},
			[]string{"provider"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datafeed_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "datafeed_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.providerAttempts,
		m.cacheEvents,
		m.providerLatency,
		m.circuitState,
		m.qualityScore,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)

	return m
}

// RecordRequest counts one engine request outcome (success, cache_hit,
// stale_fallback, exhausted, unsupported).
func (m *Metrics) RecordRequest(dataType, status string) {
	m.requestsTotal.WithLabelValues(dataType, status).Inc()
}

// RecordAttempt counts one provider attempt outcome (success, failure,
// rate_limited, circuit_open).
func (m *Metrics) RecordAttempt(provider, outcome string) {
	m.providerAttempts.WithLabelValues(provider, outcome).Inc()
}

// RecordCacheEvent counts a cache hit, miss, or stale fallback.
func (m *Metrics) RecordCacheEvent(event string) {
	m.cacheEvents.WithLabelValues(event).Inc()
}

// ObserveProviderLatency records one upstream call duration.
func (m *Metrics) ObserveProviderLatency(provider string, d time.Duration) {
	m.providerLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// SetCircuitState publishes the numeric circuit state for a provider.
func (m *Metrics) SetCircuitState(provider string, state float64) {
	m.circuitState.WithLabelValues(provider).Set(state)
}

// SetQualityScore publishes the quality score for a provider.
func (m *Metrics) SetQualityScore(provider string, score float64) {
	m.qualityScore.WithLabelValues(provider).Set(score)
}

// Handler returns the /metrics HTTP handler for this engine's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware returns a gin middleware recording HTTP request metrics.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
