package failover

import (
	"sync"
	"time"

	"datafeed/internal/feed"
)

// CacheConfig configures the response cache.
type CacheConfig struct {
	DefaultTTL      time.Duration `yaml:"default_ttl"`
	MaxEntries      int           `yaml:"max_entries"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultCacheConfig returns the default cache settings.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		DefaultTTL:      time.Minute,
		MaxEntries:      1000,
		CleanupInterval: 5 * time.Minute,
	}
}

// cacheEntry is one stored response with its expiry.
type cacheEntry struct {
	resp      *feed.DataResponse
	expiresAt time.Time
}

// ResponseCache is a bounded TTL store of the most recent successful
// response per request key. Expired entries are never returned by Get, but
// they linger until swept or evicted so they can serve as a degraded
// last-resort answer when every provider is down.
type ResponseCache struct {
	mu         sync.RWMutex
	entries    map[string]*cacheEntry
	maxEntries int
	now        func() time.Time
}

// NewResponseCache creates a cache bounded to maxEntries.
func NewResponseCache(maxEntries int) *ResponseCache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheConfig().MaxEntries
	}
	return &ResponseCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the fresh entry for a key. Expired entries report a miss even
// if the periodic sweep has not run yet.
func (c *ResponseCache) Get(key string) (*feed.DataResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.resp, true
}

// GetStale returns the entry for a key regardless of expiry. Used only as
// the last resort after every provider has been exhausted.
func (c *ResponseCache) GetStale(key string) (*feed.DataResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.resp, true
}

// Put stores a response under the key. When the cache is full, the entry
// with the nearest expiry is evicted to admit the new one.
func (c *ResponseCache) Put(key string, resp *feed.DataResponse, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictNearestExpiry()
	}

	c.entries[key] = &cacheEntry{
		resp:      resp,
		expiresAt: c.now().Add(ttl),
	}
}

// Sweep removes entries that expired more than grace ago. A grace of zero
// removes everything expired. Keeping recently expired entries around lets
// GetStale answer during a full outage.
func (c *ResponseCache) Sweep(grace time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-grace)
	removed := 0
	for key, e := range c.entries {
		if e.expiresAt.Before(cutoff) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictNearestExpiry drops the entry closest to expiring. Caller holds the
// write lock.
func (c *ResponseCache) evictNearestExpiry() {
	var victim string
	var nearest time.Time
	first := true

	for key, e := range c.entries {
		if first || e.expiresAt.Before(nearest) {
			victim = key
			nearest = e.expiresAt
			first = false
		}
	}
	if victim != "" {
		delete(c.entries, victim)
	}
}
