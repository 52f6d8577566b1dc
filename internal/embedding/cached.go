package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/blueberrycongee/embedd/internal/cache"
	"github.com/blueberrycongee/embedd/internal/metrics"
	"github.com/blueberrycongee/embedd/internal/observability"
	apperrors "github.com/blueberrycongee/embedd/pkg/errors"
)

// CachedModel serves repeated texts from a vector cache. Only distinct
// misses reach the inner model, in a single Encode call. Cache failures are
// logged and never fail a request.
type CachedModel struct {
	inner  Model
	cache  cache.Cache
	logger *slog.Logger
}

// NewCachedModel wraps inner with c. The caller keeps ownership of c.
func NewCachedModel(inner Model, c cache.Cache, logger *slog.Logger) *CachedModel {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedModel{inner: inner, cache: c, logger: logger}
}

// Encode implements Model.
func (m *CachedModel) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	info := m.inner.Info()
	keys := make([]string, len(texts))
	unique := make([]int, 0, len(texts)) // index of the first text per key
	seen := make(map[string]struct{}, len(texts))
	for i, text := range texts {
		keys[i] = cache.Key(info.Name, text)
		if _, dup := seen[keys[i]]; !dup {
			seen[keys[i]] = struct{}{}
			unique = append(unique, i)
		}
	}

	lookup := make([]string, len(unique))
	for j, i := range unique {
		lookup[j] = keys[i]
	}

	logger := observability.WithRequestID(ctx, m.logger)
	found, err := m.cache.GetMulti(ctx, lookup)
	if err != nil {
		logger.Warn("vector cache read failed", "error", err)
		metrics.RecordCacheError()
		found = nil
	}
	if found == nil {
		found = make(map[string][]float32, len(unique))
	}

	var missTexts, missKeys []string
	for _, i := range unique {
		if _, ok := found[keys[i]]; !ok {
			missTexts = append(missTexts, texts[i])
			missKeys = append(missKeys, keys[i])
		}
	}
	metrics.RecordCache(len(unique)-len(missKeys), len(missKeys))

	if len(missTexts) > 0 {
		vectors, err := m.inner.Encode(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(missTexts) {
			return nil, apperrors.NewInternalError(info.Backend, info.Name,
				fmt.Sprintf("model returned %d vectors for %d inputs", len(vectors), len(missTexts)))
		}

		fresh := make(map[string][]float32, len(missKeys))
		for j, key := range missKeys {
			fresh[key] = vectors[j]
			found[key] = vectors[j]
		}
		if err := m.cache.SetMulti(ctx, fresh); err != nil {
			logger.Warn("vector cache write failed", "error", err)
			metrics.RecordCacheError()
		}
	}

	out := make([][]float32, len(texts))
	for i, key := range keys {
		out[i] = found[key]
	}
	return out, nil
}

// Info implements Model.
func (m *CachedModel) Info() Info {
	return m.inner.Info()
}

// Close closes the inner model.
func (m *CachedModel) Close() error {
	return m.inner.Close()
}

// Uncached returns m without its cache layer, for callers such as health
// probes that must reach the runtime.
func Uncached(m Model) Model {
	if c, ok := m.(*CachedModel); ok {
		return c.inner
	}
	return m
}
