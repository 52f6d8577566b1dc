package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps vectors in process with per-entry expiration.
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates an in-memory cache. Non-positive durations fall
// back to one hour TTL and a ten minute cleanup interval.
func NewMemoryCache(ttl, cleanupInterval time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &MemoryCache{store: gocache.New(ttl, cleanupInterval)}
}

// GetMulti returns copies of the cached vectors.
func (c *MemoryCache) GetMulti(_ context.Context, keys []string) (map[string][]float32, error) {
	result := make(map[string][]float32, len(keys))
	for _, key := range keys {
		val, found := c.store.Get(key)
		if !found {
			continue
		}
		if vec, ok := val.([]float32); ok {
			result[key] = append([]float32(nil), vec...)
		}
	}
	return result, nil
}

// SetMulti stores copies so callers may keep mutating their slices.
func (c *MemoryCache) SetMulti(_ context.Context, entries map[string][]float32) error {
	for key, vec := range entries {
		c.store.Set(key, append([]float32(nil), vec...), gocache.DefaultExpiration)
	}
	return nil
}

// Ping always succeeds.
func (c *MemoryCache) Ping(context.Context) error {
	return nil
}

// Close drops every entry.
func (c *MemoryCache) Close() error {
	c.store.Flush()
	return nil
}
