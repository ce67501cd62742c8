package failover

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterCapacity(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter()
	rl.now = func() time.Time { return now }
	rl.AddProvider("a", 3)

	for i := 0; i < 3; i++ {
		require.True(t, rl.TryAcquire("a"), "call %d should be admitted", i+1)
	}
	assert.False(t, rl.TryAcquire("a"), "window is full")

	used, capacity := rl.Usage("a")
	assert.Equal(t, 3, used)
	assert.Equal(t, 3, capacity)
}

func TestRateLimiterWindowSlides(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter()
	rl.now = func() time.Time { return now }
	rl.AddProvider("a", 2)

	require.True(t, rl.TryAcquire("a"))
	now = now.Add(30 * time.Second)
	require.True(t, rl.TryAcquire("a"))
	require.False(t, rl.TryAcquire("a"))

	// 61s after the first call it slides out; the second is still inside.
	now = now.Add(31 * time.Second)
	assert.True(t, rl.TryAcquire("a"))
	assert.False(t, rl.TryAcquire("a"), "rolling window still holds two admitted calls")
}

func TestRateLimiterRejectionHasNoSideEffects(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter()
	rl.now = func() time.Time { return now }
	rl.AddProvider("a", 1)

	require.True(t, rl.TryAcquire("a"))
	for i := 0; i < 10; i++ {
		rl.TryAcquire("a")
	}

	used, _ := rl.Usage("a")
	assert.Equal(t, 1, used, "rejected calls must not consume the window")
}

func TestRateLimiterUnknownProvider(t *testing.T) {
	rl := NewRateLimiter()
	assert.False(t, rl.TryAcquire("nope"))
}

func TestRateLimiterConcurrentNoOverAdmit(t *testing.T) {
	const capacity = 50
	rl := NewRateLimiter()
	rl.AddProvider("a", capacity)

	var admitted int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.TryAcquire("a") {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(capacity), admitted, "concurrent requests must not over-admit past the limit")
}

func TestRateLimiterPerProviderIsolation(t *testing.T) {
	rl := NewRateLimiter()
	rl.AddProvider("a", 1)
	rl.AddProvider("b", 1)

	require.True(t, rl.TryAcquire("a"))
	assert.True(t, rl.TryAcquire("b"), "providers have independent windows")
}
