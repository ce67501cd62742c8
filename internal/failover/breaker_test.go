package failover

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(cfg BreakerConfig) (*CircuitBreaker, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cb := newCircuitBreaker(cfg, newStateMap())
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(BreakerConfig{
		FailureThreshold:  3,
		RecoveryTimeout:   30 * time.Second,
		HalfOpenMaxProbes: 1,
	})
	qcfg := DefaultQualityConfig()

	for i := 0; i < 2; i++ {
		require.True(t, cb.Allow("a"), "breaker should stay closed below threshold")
		cb.RecordFailure("a", 10*time.Millisecond, qcfg)
	}
	assert.Equal(t, CircuitClosed, cb.State("a"))

	require.True(t, cb.Allow("a"))
	cb.RecordFailure("a", 10*time.Millisecond, qcfg)

	assert.Equal(t, CircuitOpen, cb.State("a"))
	assert.False(t, cb.Allow("a"), "open breaker must reject immediately")
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(BreakerConfig{FailureThreshold: 3, RecoveryTimeout: 30 * time.Second, HalfOpenMaxProbes: 1})
	qcfg := DefaultQualityConfig()

	cb.RecordFailure("a", 0, qcfg)
	cb.RecordFailure("a", 0, qcfg)
	cb.RecordSuccess("a", 5*time.Millisecond, qcfg)
	cb.RecordFailure("a", 0, qcfg)
	cb.RecordFailure("a", 0, qcfg)

	assert.Equal(t, CircuitClosed, cb.State("a"), "success while closed must reset consecutive failures")
	assert.True(t, cb.Allow("a"))
}

func TestBreakerRecoveryCycle(t *testing.T) {
	cb, now := newTestBreaker(BreakerConfig{
		FailureThreshold:  3,
		RecoveryTimeout:   30 * time.Second,
		HalfOpenMaxProbes: 1,
	})
	qcfg := DefaultQualityConfig()

	for i := 0; i < 3; i++ {
		cb.RecordFailure("a", 0, qcfg)
	}
	require.Equal(t, CircuitOpen, cb.State("a"))
	require.False(t, cb.Allow("a"))

	// Before the recovery timeout the breaker stays shut.
	*now = now.Add(29 * time.Second)
	assert.False(t, cb.Allow("a"))

	// After the timeout, exactly one probe is admitted.
	*now = now.Add(2 * time.Second)
	assert.True(t, cb.Allow("a"), "first call after recovery timeout is the half-open probe")
	assert.Equal(t, CircuitHalfOpen, cb.State("a"))
	assert.False(t, cb.Allow("a"), "probe budget of one must not admit a second call")

	// A probe success closes the circuit and resets the counter.
	cb.RecordSuccess("a", 5*time.Millisecond, qcfg)
	assert.Equal(t, CircuitClosed, cb.State("a"))
	assert.True(t, cb.Allow("a"))

	s := cb.states.getOrCreate("a")
	s.mu.Lock()
	assert.Equal(t, 0, s.consecutiveFailures)
	s.mu.Unlock()
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	cb, now := newTestBreaker(BreakerConfig{
		FailureThreshold:  2,
		RecoveryTimeout:   10 * time.Second,
		HalfOpenMaxProbes: 1,
	})
	qcfg := DefaultQualityConfig()

	cb.RecordFailure("a", 0, qcfg)
	cb.RecordFailure("a", 0, qcfg)
	require.Equal(t, CircuitOpen, cb.State("a"))

	*now = now.Add(11 * time.Second)
	require.True(t, cb.Allow("a"))
	cb.RecordFailure("a", 0, qcfg)

	assert.Equal(t, CircuitOpen, cb.State("a"), "probe failure must reopen the circuit")
	assert.False(t, cb.Allow("a"))

	// The recovery timer restarted on the probe failure.
	*now = now.Add(9 * time.Second)
	assert.False(t, cb.Allow("a"))
	*now = now.Add(2 * time.Second)
	assert.True(t, cb.Allow("a"))
}

func TestBreakerIndependentPerProvider(t *testing.T) {
	cb, _ := newTestBreaker(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Minute, HalfOpenMaxProbes: 1})
	qcfg := DefaultQualityConfig()

	cb.RecordFailure("a", 0, qcfg)
	assert.Equal(t, CircuitOpen, cb.State("a"))
	assert.Equal(t, CircuitClosed, cb.State("b"))
	assert.True(t, cb.Allow("b"))
}
