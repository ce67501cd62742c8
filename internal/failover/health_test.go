package failover

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheckAllReportsReachability(t *testing.T) {
	up := newFakeProvider("up", 1)
	down := newFakeProvider("down", 2)
	down.probeFn = func(ctx context.Context) error { return errors.New("unreachable") }

	eng := newTestEngine(t, DefaultConfig(), up, down)

	results := eng.HealthCheckAll(context.Background())
	assert.Equal(t, map[string]bool{"up": true, "down": false}, results)
}

func TestHealthCheckSkipsDisabledProviders(t *testing.T) {
	a := newFakeProvider("a", 1)
	b := newFakeProvider("b", 2)
	eng := newTestEngine(t, DefaultConfig(), a, b)
	require.NoError(t, eng.SetProviderEnabled("b", false))

	results := eng.HealthCheckAll(context.Background())
	assert.Equal(t, map[string]bool{"a": true}, results)
	assert.Equal(t, int64(0), atomic.LoadInt64(&b.probes))
}

func TestHealthCheckFailuresOpenBreaker(t *testing.T) {
	a := newFakeProvider("a", 1)
	a.probeFn = func(ctx context.Context) error { return errors.New("unreachable") }

	cfg := DefaultConfig()
	cfg.Breaker.FailureThreshold = 3
	eng := newTestEngine(t, cfg, a)

	// Probe failures flow through the same recording path as user
	// traffic, so sustained probe failures open the circuit on their own.
	for i := 0; i < 3; i++ {
		eng.HealthCheckAll(context.Background())
	}
	assert.Equal(t, CircuitOpen, eng.breaker.State("a"))
}

func TestHealthCheckUpdatesQualityAndLatency(t *testing.T) {
	a := newFakeProvider("a", 1)
	a.probeFn = func(ctx context.Context) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	}
	eng := newTestEngine(t, DefaultConfig(), a)

	eng.HealthCheckAll(context.Background())

	status := eng.ProviderStatus()["a"]
	assert.Equal(t, int64(1), status.SuccessCount)
	assert.Greater(t, status.AvgResponseTimeMs, 0.0)
	assert.Greater(t, status.QualityScore, 0.0)
}

func TestHealthCheckHonorsProbeTimeout(t *testing.T) {
	a := newFakeProvider("a", 1)
	a.probeFn = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	cfg := DefaultConfig()
	cfg.HealthCheck.Timeout = 50 * time.Millisecond
	eng := newTestEngine(t, cfg, a)

	start := time.Now()
	results := eng.HealthCheckAll(context.Background())
	assert.False(t, results["a"])
	assert.Less(t, time.Since(start), 2*time.Second)
}
