package failover

import (
	"time"
)

// BreakerConfig configures the per-provider circuit breakers.
type BreakerConfig struct {
	FailureThreshold  int           `yaml:"failure_threshold"`
	RecoveryTimeout   time.Duration `yaml:"recovery_timeout"`
	HalfOpenMaxProbes int           `yaml:"half_open_max_probes"`
}

// DefaultBreakerConfig returns the default breaker thresholds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold:  3,
		RecoveryTimeout:   30 * time.Second,
		HalfOpenMaxProbes: 1,
	}
}

// CircuitBreaker stops traffic to a provider in sustained failure and
// verifies recovery with a bounded number of probes before resuming.
// It shares runtime state with the router and health checker.
type CircuitBreaker struct {
	cfg    BreakerConfig
	states *stateMap
	now    func() time.Time
}

// NewCircuitBreaker creates a breaker over the shared provider state.
func newCircuitBreaker(cfg BreakerConfig, states *stateMap) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = DefaultBreakerConfig().RecoveryTimeout
	}
	if cfg.HalfOpenMaxProbes <= 0 {
		cfg.HalfOpenMaxProbes = DefaultBreakerConfig().HalfOpenMaxProbes
	}

	return &CircuitBreaker{
		cfg:    cfg,
		states: states,
		now:    time.Now,
	}
}

// Allow reports whether a call to the provider is permitted right now.
// An OPEN breaker flips to HALF_OPEN once the recovery timeout has elapsed,
// and HALF_OPEN admits at most the configured number of probes.
func (cb *CircuitBreaker) Allow(name string) bool {
	s := cb.states.getOrCreate(name)
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.circuit {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(s.openedAt) < cb.cfg.RecoveryTimeout {
			return false
		}
		s.circuit = CircuitHalfOpen
		s.halfOpenProbes = 0
		fallthrough
	case CircuitHalfOpen:
		if s.halfOpenProbes >= cb.cfg.HalfOpenMaxProbes {
			return false
		}
		s.halfOpenProbes++
		return true
	default:
		return false
	}
}

// RecordSuccess registers a successful attempt. A HALF_OPEN probe success
// closes the circuit; any success resets the consecutive failure count.
func (cb *CircuitBreaker) RecordSuccess(name string, latency time.Duration, qcfg QualityConfig) {
	s := cb.states.getOrCreate(name)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.circuit == CircuitHalfOpen {
		s.circuit = CircuitClosed
		s.halfOpenProbes = 0
	}
	s.consecutiveFailures = 0
	s.observe(true, latency, qcfg)
}

// RecordFailure registers a failed attempt. The breaker does not
// distinguish failure causes; a timeout, a 5xx, and a malformed payload all
// count the same. Reaching the threshold while CLOSED opens the circuit;
// any HALF_OPEN probe failure reopens it and restarts the recovery timer.
func (cb *CircuitBreaker) RecordFailure(name string, latency time.Duration, qcfg QualityConfig) {
	s := cb.states.getOrCreate(name)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.consecutiveFailures++

	switch s.circuit {
	case CircuitHalfOpen:
		s.circuit = CircuitOpen
		s.openedAt = cb.now()
		s.halfOpenProbes = 0
	case CircuitClosed:
		if s.consecutiveFailures >= cb.cfg.FailureThreshold {
			s.circuit = CircuitOpen
			s.openedAt = cb.now()
		}
	}
	s.observe(false, latency, qcfg)
}

// State returns the provider's current circuit state.
func (cb *CircuitBreaker) State(name string) CircuitState {
	s := cb.states.getOrCreate(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.circuit
}
