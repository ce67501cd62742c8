package failover

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"datafeed/internal/feed"
	"datafeed/internal/logger"
	"datafeed/internal/monitoring"
	"datafeed/internal/provider"
)

// Config bundles all engine tuning knobs. Loaded once at startup.
type Config struct {
	Breaker     BreakerConfig     `yaml:"breaker"`
	Cache       CacheConfig       `yaml:"cache"`
	HealthCheck HealthCheckConfig `yaml:"health_check"`
	Quality     QualityConfig     `yaml:"quality"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Breaker:     DefaultBreakerConfig(),
		Cache:       DefaultCacheConfig(),
		HealthCheck: DefaultHealthCheckConfig(),
		Quality:     DefaultQualityConfig(),
	}
}

// Engine is the request router: the single entry point that drives the
// attempt/fallback loop across providers, consulting the rate limiter,
// circuit breaker, and response cache, and recording every outcome back
// into the per-provider runtime state.
type Engine struct {
	cfg     Config
	reg     *provider.Registry
	states  *stateMap
	breaker *CircuitBreaker
	limiter *RateLimiter
	cache   *ResponseCache
	health  *HealthChecker
	metrics *monitoring.Metrics
	log     logger.Logger
	sched   *cron.Cron
}

// NewEngine wires an engine over the given registry. Each engine owns its
// state; nothing is process-global, so independently configured engines can
// coexist.
func NewEngine(cfg Config, reg *provider.Registry, metrics *monitoring.Metrics, log logger.Logger) *Engine {
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	if log == nil {
		log = logger.Global()
	}
	if cfg.Cache.DefaultTTL <= 0 {
		cfg.Cache.DefaultTTL = DefaultCacheConfig().DefaultTTL
	}
	if cfg.Cache.CleanupInterval <= 0 {
		cfg.Cache.CleanupInterval = DefaultCacheConfig().CleanupInterval
	}
	if cfg.Quality == (QualityConfig{}) {
		cfg.Quality = DefaultQualityConfig()
	}

	states := newStateMap()
	breaker := newCircuitBreaker(cfg.Breaker, states)
	limiter := NewRateLimiter()

	for _, e := range reg.All() {
		limiter.AddProvider(e.Descriptor.Name, e.Descriptor.RateLimitPerMin)
		states.getOrCreate(e.Descriptor.Name)
	}

	eng := &Engine{
		cfg:     cfg,
		reg:     reg,
		states:  states,
		breaker: breaker,
		limiter: limiter,
		cache:   NewResponseCache(cfg.Cache.MaxEntries),
		metrics: metrics,
		log:     log,
	}
	eng.health = newHealthChecker(cfg.HealthCheck, reg, breaker, cfg.Quality, metrics, log)
	return eng
}

// Start launches the background health check and cache sweep schedules.
func (e *Engine) Start() {
	e.sched = cron.New()
	e.sched.AddFunc(fmt.Sprintf("@every %s", e.cfg.HealthCheck.Interval), func() {
		e.health.CheckAll(context.Background())
		e.publishGauges()
	})
	e.sched.AddFunc(fmt.Sprintf("@every %s", e.cfg.Cache.CleanupInterval), func() {
		removed := e.cache.Sweep(e.cfg.Cache.CleanupInterval)
		if removed > 0 {
			e.log.Debug("cache sweep", "removed", removed)
		}
	})
	e.sched.Start()
	e.log.Info("failover engine started",
		"providers", len(e.reg.Names()),
		"health_interval", e.cfg.HealthCheck.Interval.String())
}

// Stop halts the background schedules. In-flight requests are unaffected.
func (e *Engine) Stop() {
	if e.sched != nil {
		e.sched.Stop()
	}
}

// GetData routes one request. Transient per-provider errors are absorbed
// inside the candidate loop; only terminal outcomes cross this boundary.
func (e *Engine) GetData(ctx context.Context, req *feed.DataRequest) (*feed.DataResponse, error) {
	requestID := uuid.New().String()
	key := req.CacheKey()
	log := e.log.WithFields(map[string]interface{}{
		"request_id": requestID,
		"data_type":  req.Type,
		"symbol":     req.Symbol,
	})

	if !req.RequireRealtime {
		if resp, ok := e.cache.Get(key); ok {
			e.metrics.RecordCacheEvent("hit")
			e.metrics.RecordRequest(string(req.Type), "cache_hit")
			log.Debug("cache hit")
			return fromCache(resp), nil
		}
		e.metrics.RecordCacheEvent("miss")
	}

	candidates := e.candidates(req.Type)
	if len(candidates) == 0 {
		e.metrics.RecordRequest(string(req.Type), "unsupported")
		return nil, fmt.Errorf("%w: %s", feed.ErrUnsupportedDataType, req.Type)
	}

	for _, cand := range candidates {
		name := cand.Descriptor.Name

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !e.breaker.Allow(name) {
			e.metrics.RecordAttempt(name, "circuit_open")
			log.Debug("skipping provider, circuit open", "provider", name)
			continue
		}
		if !e.limiter.TryAcquire(name) {
			e.metrics.RecordAttempt(name, "rate_limited")
			log.Debug("skipping provider, rate limited", "provider", name)
			continue
		}

		resp, err := e.attempt(ctx, cand, req)
		if err != nil {
			// Caller cancellation aborts the remaining loop; progress
			// already recorded into breaker state is kept.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("provider attempt failed", "provider", name, "error", err.Error())
			continue
		}

		e.cache.Put(key, resp, e.cfg.Cache.DefaultTTL)
		e.metrics.RecordRequest(string(req.Type), "success")
		log.Info("request served", "provider", name)
		return resp, nil
	}

	if !req.RequireRealtime {
		if resp, ok := e.cache.GetStale(key); ok {
			e.metrics.RecordCacheEvent("stale_fallback")
			e.metrics.RecordRequest(string(req.Type), "stale_fallback")
			log.Warn("all providers exhausted, serving stale cache entry")
			return fromCache(resp), nil
		}
	}

	e.metrics.RecordRequest(string(req.Type), "exhausted")
	log.Error("all providers exhausted")
	return nil, fmt.Errorf("%w: %s %s", feed.ErrAllProvidersExhausted, req.Type, req.Symbol)
}

// attempt performs one upstream call bounded by the provider's configured
// timeout and records the outcome. Every attempt updates exactly one
// provider's runtime state.
func (e *Engine) attempt(ctx context.Context, cand *provider.Entry, req *feed.DataRequest) (*feed.DataResponse, error) {
	name := cand.Descriptor.Name

	callCtx, cancel := context.WithTimeout(ctx, cand.Descriptor.Timeout)
	defer cancel()

	start := time.Now()
	data, err := cand.Impl.Fetch(callCtx, req)
	latency := time.Since(start)

	if err != nil {
		cause := feed.ErrProviderRejected
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			cause = feed.ErrProviderTimeout
		}
		e.breaker.RecordFailure(name, latency, e.cfg.Quality)
		e.metrics.RecordAttempt(name, "failure")
		e.publishProviderGauges(name)
		return nil, &feed.AttemptError{Provider: name, Err: fmt.Errorf("%w: %v", cause, err)}
	}

	e.breaker.RecordSuccess(name, latency, e.cfg.Quality)
	e.metrics.RecordAttempt(name, "success")
	e.metrics.ObserveProviderLatency(name, latency)
	e.publishProviderGauges(name)

	return &feed.DataResponse{
		Data:      data,
		Source:    name,
		FetchedAt: time.Now().UTC(),
		FromCache: false,
	}, nil
}

// candidates returns the enabled providers supporting the data type,
// ordered by ascending priority with ties broken by descending quality
// score. The list is computed fresh per request and never reordered after.
func (e *Engine) candidates(dt feed.DataType) []*provider.Entry {
	enabled := e.reg.Enabled()

	out := make([]*provider.Entry, 0, len(enabled))
	for _, entry := range enabled {
		if entry.Descriptor.SupportsType(dt) && entry.Impl.Supports(dt) {
			out = append(out, entry)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Descriptor.Priority, out[j].Descriptor.Priority
		if pi != pj {
			return pi < pj
		}
		qi := e.states.getOrCreate(out[i].Descriptor.Name).qualityScore()
		qj := e.states.getOrCreate(out[j].Descriptor.Name).qualityScore()
		return qi > qj
	})
	return out
}

// ProviderStatus returns a read-only snapshot per registered provider.
// Safe to call at any time; calling it twice with no intervening traffic
// returns identical snapshots.
func (e *Engine) ProviderStatus() map[string]StatusSnapshot {
	out := make(map[string]StatusSnapshot)
	for _, entry := range e.reg.All() {
		name := entry.Descriptor.Name
		out[name] = e.states.getOrCreate(name).snapshot()
	}
	return out
}

// HealthCheckAll triggers an immediate out-of-band probe of every enabled
// provider, independent of the periodic background check.
func (e *Engine) HealthCheckAll(ctx context.Context) map[string]bool {
	results := e.health.CheckAll(ctx)
	e.publishGauges()
	return results
}

// SetProviderEnabled toggles a provider's enabled flag at runtime.
func (e *Engine) SetProviderEnabled(name string, enabled bool) error {
	return e.reg.SetEnabled(name, enabled)
}

// Registry exposes the engine's provider registry.
func (e *Engine) Registry() *provider.Registry {
	return e.reg
}

// RateLimiterUsage reports the current window usage for a provider.
func (e *Engine) RateLimiterUsage(name string) (used, capacity int) {
	return e.limiter.Usage(name)
}

func (e *Engine) publishGauges() {
	for _, name := range e.reg.Names() {
		e.publishProviderGauges(name)
	}
}

func (e *Engine) publishProviderGauges(name string) {
	snap := e.states.getOrCreate(name).snapshot()
	e.metrics.SetCircuitState(name, circuitStateValue(snap.CircuitState))
	e.metrics.SetQualityScore(name, snap.QualityScore)
}

func circuitStateValue(s CircuitState) float64 {
	switch s {
	case CircuitHalfOpen:
		return 1
	case CircuitOpen:
		return 2
	default:
		return 0
	}
}

// fromCache clones a cached response with the from-cache marker set.
func fromCache(resp *feed.DataResponse) *feed.DataResponse {
	out := *resp
	out.FromCache = true
	return &out
}
