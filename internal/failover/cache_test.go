package failover

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datafeed/internal/feed"
)

func testResponse(source string) *feed.DataResponse {
	return &feed.DataResponse{
		Data:      map[string]string{"v": source},
		Source:    source,
		FetchedAt: time.Now().UTC(),
	}
}

func TestCacheGetPut(t *testing.T) {
	c := NewResponseCache(10)

	_, ok := c.Get("k1")
	assert.False(t, ok)

	c.Put("k1", testResponse("a"), time.Minute)
	resp, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "a", resp.Source)

	// A refresh replaces the stored value.
	c.Put("k1", testResponse("b"), time.Minute)
	resp, ok = c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "b", resp.Source)
	assert.Equal(t, 1, c.Len())
}

func TestCacheLazyExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewResponseCache(10)
	c.now = func() time.Time { return now }

	c.Put("k1", testResponse("a"), 30*time.Second)

	_, ok := c.Get("k1")
	require.True(t, ok)

	// Past expiry, Get must miss even though no sweep has run.
	now = now.Add(31 * time.Second)
	_, ok = c.Get("k1")
	assert.False(t, ok, "expired entry must never be returned by Get")

	// The entry lingers for stale fallback.
	stale, ok := c.GetStale("k1")
	require.True(t, ok)
	assert.Equal(t, "a", stale.Source)
}

func TestCacheEvictsNearestExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewResponseCache(2)
	c.now = func() time.Time { return now }

	c.Put("short", testResponse("short"), 10*time.Second)
	c.Put("long", testResponse("long"), 10*time.Minute)
	c.Put("new", testResponse("new"), time.Minute)

	_, ok := c.Get("short")
	assert.False(t, ok, "entry with the nearest expiry is evicted")

	_, ok = c.Get("long")
	assert.True(t, ok)
	_, ok = c.Get("new")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestCacheSweep(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewResponseCache(10)
	c.now = func() time.Time { return now }

	c.Put("old", testResponse("old"), 10*time.Second)
	c.Put("recent", testResponse("recent"), 4*time.Minute)
	c.Put("fresh", testResponse("fresh"), time.Hour)

	now = now.Add(5 * time.Minute)

	// With a grace period, only entries expired longer than the grace go.
	removed := c.Sweep(time.Minute)
	assert.Equal(t, 1, removed)

	_, ok := c.GetStale("old")
	assert.False(t, ok)
	_, ok = c.GetStale("recent")
	assert.True(t, ok, "recently expired entry survives the sweep for stale fallback")
	_, ok = c.Get("fresh")
	assert.True(t, ok)

	// Zero grace removes everything expired.
	removed = c.Sweep(0)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len())
}

func TestCacheOverwriteDoesNotEvict(t *testing.T) {
	c := NewResponseCache(2)
	c.Put("k1", testResponse("a"), time.Minute)
	c.Put("k2", testResponse("b"), time.Minute)

	// Refreshing an existing key at capacity must not evict another entry.
	c.Put("k1", testResponse("a2"), time.Minute)

	_, ok := c.Get("k2")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}
