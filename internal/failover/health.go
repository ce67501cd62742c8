package failover

import (
	"context"
	"sync"
	"time"

	"datafeed/internal/logger"
	"datafeed/internal/monitoring"
	"datafeed/internal/provider"
)

// HealthCheckConfig configures the background provider probes.
type HealthCheckConfig struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DefaultHealthCheckConfig returns the default probe settings.
func DefaultHealthCheckConfig() HealthCheckConfig {
	return HealthCheckConfig{
		Interval: 30 * time.Second,
		Timeout:  5 * time.Second,
	}
}

// HealthChecker keeps provider quality scores current independent of user
// traffic, so routing preference reflects recent conditions even for
// low-traffic providers. Probe outcomes flow through the same breaker
// recording path as user-triggered attempts; the checker never flips
// circuit state itself.
type HealthChecker struct {
	cfg     HealthCheckConfig
	reg     *provider.Registry
	breaker *CircuitBreaker
	qcfg    QualityConfig
	metrics *monitoring.Metrics
	log     logger.Logger
}

func newHealthChecker(cfg HealthCheckConfig, reg *provider.Registry, breaker *CircuitBreaker, qcfg QualityConfig, metrics *monitoring.Metrics, log logger.Logger) *HealthChecker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultHealthCheckConfig().Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultHealthCheckConfig().Timeout
	}

	return &HealthChecker{
		cfg:     cfg,
		reg:     reg,
		breaker: breaker,
		qcfg:    qcfg,
		metrics: metrics,
		log:     log,
	}
}

// CheckAll probes every enabled provider concurrently and reports which
// ones are reachable. It serves both the periodic background check and the
// on-demand diagnostics operation.
func (hc *HealthChecker) CheckAll(ctx context.Context) map[string]bool {
	entries := hc.reg.Enabled()

	results := make(map[string]bool, len(entries))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, e := range entries {
		wg.Add(1)
		go func(e *provider.Entry) {
			defer wg.Done()

			ok := hc.probe(ctx, e)
			mu.Lock()
			results[e.Descriptor.Name] = ok
			mu.Unlock()
		}(e)
	}
	wg.Wait()

	return results
}

// probe runs one provider health check with its own timeout and records the
// outcome into the shared runtime state.
func (hc *HealthChecker) probe(ctx context.Context, e *provider.Entry) bool {
	name := e.Descriptor.Name

	probeCtx, cancel := context.WithTimeout(ctx, hc.cfg.Timeout)
	defer cancel()

	start := time.Now()
	err := e.Impl.Probe(probeCtx)
	latency := time.Since(start)

	if err != nil {
		hc.breaker.RecordFailure(name, latency, hc.qcfg)
		hc.metrics.RecordAttempt(name, "probe_failure")
		hc.log.Warn("provider probe failed",
			"provider", name,
			"latency_ms", latency.Milliseconds(),
			"error", err.Error())
		return false
	}

	hc.breaker.RecordSuccess(name, latency, hc.qcfg)
	hc.metrics.RecordAttempt(name, "probe_success")
	hc.metrics.ObserveProviderLatency(name, latency)
	hc.log.Debug("provider probe ok",
		"provider", name,
		"latency_ms", latency.Milliseconds())
	return true
}
