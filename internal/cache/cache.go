// Package cache stores embedding vectors keyed by model and input text.
// It supports an in-process backend and Redis (single node, cluster or
// sentinel).
package cache

import (
	"context"
	"fmt"

	"github.com/blueberrycongee/embedd/internal/config"
)

// Cache defines the interface for vector cache implementations.
type Cache interface {
	// GetMulti returns the vectors found for keys. Missing keys are absent
	// from the result.
	GetMulti(ctx context.Context, keys []string) (map[string][]float32, error)

	// SetMulti stores all entries with the cache's TTL.
	SetMulti(ctx context.Context, entries map[string][]float32) error

	// Ping checks that the backend answers. It runs once before the cache
	// is put in front of the model.
	Ping(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error
}

// New creates the cache selected by cfg. It returns nil when caching is
// disabled.
func New(cfg config.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Type {
	case config.CacheTypeMemory, "":
		return NewMemoryCache(cfg.TTL, cfg.CleanupInterval), nil
	case config.CacheTypeRedis:
		return NewRedisCache(cfg.Redis, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}
