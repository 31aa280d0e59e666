package capture

import (
	"os"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a cached capture is served.
const DefaultCacheTTL = time.Hour

// Entry is one cached capture.
type Entry struct {
	ContentHash  string
	ArtifactPath string
	CreatedAt    time.Time
	AccessCount  int
	LastAccessed time.Time
}

// CacheStats summarises cache usage.
type CacheStats struct {
	TotalEntries       int
	TotalAccesses      int
	HitRate            float64
	AverageAccessCount float64
}

// ToMap returns the stats under their reporting keys.
func (s CacheStats) ToMap() map[string]any {
	return map[string]any{
		"total_cache_entries":  s.TotalEntries,
		"total_cache_accesses": s.TotalAccesses,
		"cache_hit_rate":       s.HitRate,
		"average_access_count": s.AverageAccessCount,
	}
}

// Cache maps content keys to captured artifacts. It holds at most one entry
// per key and is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	ttl     time.Duration
	now     func() time.Time
}

// NewCache creates a cache whose entries are served for ttl. A non-positive
// ttl uses DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		entries: make(map[string]*Entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetClock replaces the time source; used by tests.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get returns the entry for key when it is within the TTL and its artifact
// still exists. An entry whose artifact vanished is evicted. A hit bumps the
// access counters.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}

	if _, err := os.Stat(entry.ArtifactPath); err != nil {
		delete(c.entries, key)
		return Entry{}, false
	}

	now := c.now()
	if now.Sub(entry.CreatedAt) > c.ttl {
		// Expired entries stay until EvictExpired runs.
		return Entry{}, false
	}

	entry.AccessCount++
	entry.LastAccessed = now
	return *entry, true
}

// Put records path as the artifact for key, replacing any previous entry.
func (c *Cache) Put(key, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = &Entry{
		ContentHash:  key,
		ArtifactPath: path,
		CreatedAt:    now,
		LastAccessed: now,
	}
}

// EvictExpired removes entries created more than maxAge ago and returns how
// many were removed.
func (c *Cache) EvictExpired(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-maxAge)
	removed := 0
	for key, entry := range c.entries {
		if entry.CreatedAt.Before(cutoff) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats reports usage. Hit rate is accesses per entry, matching the
// reporting format used by the capture CLI.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, entry := range c.entries {
		total += entry.AccessCount
	}

	denom := float64(max(len(c.entries), 1))
	return CacheStats{
		TotalEntries:       len(c.entries),
		TotalAccesses:      total,
		HitRate:            float64(total) / denom,
		AverageAccessCount: float64(total) / denom,
	}
}
