package failover

import (
	"sync"
	"time"
)

// CircuitState is the per-provider circuit breaker state.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// QualityConfig tunes how the quality score combines success rate and
// response latency. Weights are configuration, not hard-coded.
type QualityConfig struct {
	SuccessWeight float64 `yaml:"success_weight"`
	LatencyWeight float64 `yaml:"latency_weight"`
	MaxLatencyMs  float64 `yaml:"max_latency_ms"`
	EMAAlpha      float64 `yaml:"ema_alpha"`
}

// DefaultQualityConfig returns the default scoring weights.
func DefaultQualityConfig() QualityConfig {
	return QualityConfig{
		SuccessWeight: 0.7,
		LatencyWeight: 0.3,
		MaxLatencyMs:  2000,
		EMAAlpha:      0.3,
	}
}

// runtimeState is the mutable per-provider state shared by the router,
// breaker, and health checker. All access goes through its mutex so calls
// against different providers never contend.
type runtimeState struct {
	mu sync.Mutex

	circuit             CircuitState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenProbes      int

	lastSuccessAt time.Time
	lastFailureAt time.Time
	successCount  int64
	failureCount  int64
	avgResponseMs float64
	quality       float64
}

func newRuntimeState() *runtimeState {
	return &runtimeState{
		circuit: CircuitClosed,
		// A provider with no history yet routes on configured priority
		// alone; start at a perfect score so it gets traffic.
		quality: 100,
	}
}

// observe folds one attempt outcome into the counters, latency EMA, and
// quality score. Circuit transitions are handled by the breaker before
// calling observe. latency <= 0 means no usable latency sample.
func (s *runtimeState) observe(ok bool, latency time.Duration, cfg QualityConfig) {
	if ok {
		s.successCount++
		s.lastSuccessAt = time.Now()
	} else {
		s.failureCount++
		s.lastFailureAt = time.Now()
	}

	if ms := float64(latency.Milliseconds()); ms > 0 {
		if s.avgResponseMs == 0 {
			s.avgResponseMs = ms
		} else {
			s.avgResponseMs = cfg.EMAAlpha*ms + (1-cfg.EMAAlpha)*s.avgResponseMs
		}
	}

	s.quality = s.score(cfg)
}

// score computes the 0-100 quality score from the current counters.
func (s *runtimeState) score(cfg QualityConfig) float64 {
	total := s.successCount + s.failureCount
	if total == 0 {
		return 100
	}

	successRate := float64(s.successCount) / float64(total)

	latencyScore := 1.0
	if cfg.MaxLatencyMs > 0 && s.avgResponseMs > 0 {
		latencyScore = 1 - s.avgResponseMs/cfg.MaxLatencyMs
		if latencyScore < 0 {
			latencyScore = 0
		}
	}

	score := 100 * (cfg.SuccessWeight*successRate + cfg.LatencyWeight*latencyScore)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// qualityScore returns the current score without mutating state.
func (s *runtimeState) qualityScore() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quality
}

// StatusSnapshot is the read-only per-provider view exposed to monitoring
// and dashboard collaborators.
type StatusSnapshot struct {
	CircuitState      CircuitState `json:"circuit_state"`
	UptimePercentage  float64      `json:"uptime_percentage"`
	SuccessCount      int64        `json:"success_count"`
	FailureCount      int64        `json:"failure_count"`
	AvgResponseTimeMs float64      `json:"avg_response_time_ms"`
	QualityScore      float64      `json:"quality_score"`
	LastSuccessAt     time.Time    `json:"last_success_at,omitempty"`
	LastFailureAt     time.Time    `json:"last_failure_at,omitempty"`
}

// snapshot copies the state under its lock.
func (s *runtimeState) snapshot() StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	uptime := 100.0
	if total := s.successCount + s.failureCount; total > 0 {
		uptime = float64(s.successCount) / float64(total) * 100
	}

	return StatusSnapshot{
		CircuitState:      s.circuit,
		UptimePercentage:  uptime,
		SuccessCount:      s.successCount,
		FailureCount:      s.failureCount,
		AvgResponseTimeMs: s.avgResponseMs,
		QualityScore:      s.quality,
		LastSuccessAt:     s.lastSuccessAt,
		LastFailureAt:     s.lastFailureAt,
	}
}

// stateMap holds one runtimeState per registered provider. The pairing is
// created at registration and never destroyed while the provider is
// configured.
type stateMap struct {
	mu sync.RWMutex
	m  map[string]*runtimeState
}

func newStateMap() *stateMap {
	return &stateMap{m: make(map[string]*runtimeState)}
}

// getOrCreate returns the state for a provider, creating it on first use.
func (sm *stateMap) getOrCreate(name string) *runtimeState {
	sm.mu.RLock()
	s, ok := sm.m[name]
	sm.mu.RUnlock()
	if ok {
		return s
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	if s, ok = sm.m[name]; ok {
		return s
	}
	s = newRuntimeState()
	sm.m[name] = s
	return s
}
