package failover

import (
	"sync"
	"time"
)

// RateLimiter admits or rejects outbound calls per provider before they
// reach the network. Each provider gets a sliding 60-second window sized by
// its configured per-minute limit, so the limit holds over any rolling
// window, not just aligned minutes.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	capacity int
	calls    []time.Time
}

const rateWindow = time.Minute

// NewRateLimiter creates a rate limiter with no registered providers.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// AddProvider registers a provider with its per-minute capacity.
// A capacity of zero or less means the provider is never admitted.
func (r *RateLimiter) AddProvider(name string, perMinute int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.windows[name] = &window{capacity: perMinute}
}

// TryAcquire admits one call for the provider if the window has room.
// It never blocks and has no side effects on rejection. Unknown providers
// are rejected.
func (r *RateLimiter) TryAcquire(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.windows[name]
	if !ok {
		return false
	}

	now := r.now()
	w.trim(now)

	if len(w.calls) >= w.capacity {
		return false
	}
	w.calls = append(w.calls, now)
	return true
}

// Usage returns the admitted call count and capacity for a provider's
// current window.
func (r *RateLimiter) Usage(name string) (used, capacity int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.windows[name]
	if !ok {
		return 0, 0
	}
	w.trim(r.now())
	return len(w.calls), w.capacity
}

// trim drops calls that have slid out of the window.
func (w *window) trim(now time.Time) {
	cutoff := now.Add(-rateWindow)
	i := 0
	for i < len(w.calls) && !w.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.calls = append(w.calls[:0], w.calls[i:]...)
	}
}
