package capture

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(t *testing.T) (*Cache, *fakeClock, string) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := NewCache(time.Hour)
	cache.SetClock(clock.now)

	path := filepath.Join(t.TempDir(), "frame.svg")
	require.NoError(t, os.WriteFile(path, []byte("<svg/>"), 0o644))
	return cache, clock, path
}

func TestCacheGetPut(t *testing.T) {
	cache, clock, path := newTestCache(t)

	_, ok := cache.Get("missing")
	assert.False(t, ok)

	cache.Put("k", path)
	clock.advance(time.Minute)

	entry, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, path, entry.ArtifactPath)
	assert.Equal(t, 1, entry.AccessCount)
	assert.Equal(t, clock.t, entry.LastAccessed)

	entry, ok = cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, entry.AccessCount)
}

func TestCacheSingleEntryPerKey(t *testing.T) {
	cache, _, path := newTestCache(t)
	other := filepath.Join(filepath.Dir(path), "other.svg")
	require.NoError(t, os.WriteFile(other, []byte("<svg/>"), 0o644))

	cache.Put("k", path)
	cache.Put("k", other)
	assert.Equal(t, 1, cache.Len())

	entry, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, other, entry.ArtifactPath)
}

func TestCacheTTL(t *testing.T) {
	cache, clock, path := newTestCache(t)
	cache.Put("k", path)

	clock.advance(time.Hour)
	_, ok := cache.Get("k")
	assert.True(t, ok, "exactly at the TTL is still served")

	clock.advance(time.Second)
	_, ok = cache.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, cache.Len(), "expired entries wait for EvictExpired")
}

func TestCacheMissingArtifactEvicts(t *testing.T) {
	cache, _, path := newTestCache(t)
	cache.Put("k", path)
	require.NoError(t, os.Remove(path))

	_, ok := cache.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestCacheEvictExpired(t *testing.T) {
	cache, clock, path := newTestCache(t)
	cache.Put("old", path)
	clock.advance(3 * time.Hour)
	cache.Put("new", path)

	assert.Equal(t, 1, cache.EvictExpired(2*time.Hour))
	assert.Equal(t, 1, cache.Len())
	_, ok := cache.Get("new")
	assert.True(t, ok)
}

func TestCacheStats(t *testing.T) {
	cache, _, path := newTestCache(t)
	assert.Equal(t, CacheStats{}, cache.Stats())

	cache.Put("a", path)
	cache.Put("b", path)
	cache.Get("a")
	cache.Get("a")
	cache.Get("b")

	stats := cache.Stats()
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 3, stats.TotalAccesses)
	assert.InDelta(t, 1.5, stats.HitRate, 1e-9)
	assert.InDelta(t, 1.5, stats.AverageAccessCount, 1e-9)

	m := stats.ToMap()
	assert.Equal(t, 2, m["total_cache_entries"])
	assert.Contains(t, m, "cache_hit_rate")
}

func TestNewCacheDefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultCacheTTL, NewCache(0).ttl)
}
