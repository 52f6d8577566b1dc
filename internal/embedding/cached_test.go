package embedding_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/embedd/internal/cache"
	"github.com/blueberrycongee/embedd/internal/embedding"
	"github.com/blueberrycongee/embedd/internal/embedding/embeddingtest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCachedModel_DedupesAndPreservesOrder(t *testing.T) {
	inner := embeddingtest.New()
	m := embedding.NewCachedModel(inner, cache.NewMemoryCache(time.Minute, time.Minute), discardLogger())

	texts := []string{"b", "a", "b", "c", "a"}
	out, err := m.Encode(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, out, len(texts))

	for i, text := range texts {
		assert.Equal(t, embeddingtest.Vector(text, embeddingtest.DefaultDimension), out[i], "position %d", i)
	}
	require.Len(t, inner.Calls(), 1)
	assert.Equal(t, []string{"b", "a", "c"}, inner.Calls()[0])
}

func TestCachedModel_OnlyMissesReachModel(t *testing.T) {
	inner := embeddingtest.New()
	m := embedding.NewCachedModel(inner, cache.NewMemoryCache(time.Minute, time.Minute), discardLogger())
	ctx := context.Background()

	_, err := m.Encode(ctx, []string{"x", "y"})
	require.NoError(t, err)

	out, err := m.Encode(ctx, []string{"y", "z", "x"})
	require.NoError(t, err)
	assert.Equal(t, embeddingtest.Vector("z", embeddingtest.DefaultDimension), out[1])

	calls := inner.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"z"}, calls[1])

	_, err = m.Encode(ctx, []string{"x", "y", "z"})
	require.NoError(t, err)
	assert.Len(t, inner.Calls(), 2)
}

func TestCachedModel_EmptyBatch(t *testing.T) {
	inner := embeddingtest.New()
	m := embedding.NewCachedModel(inner, cache.NewMemoryCache(time.Minute, time.Minute), discardLogger())

	out, err := m.Encode(context.Background(), []string{})
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
	assert.Empty(t, inner.Calls())
}

func TestCachedModel_ModelErrorPropagates(t *testing.T) {
	inner := embeddingtest.New()
	inner.FailWith(errors.New("runtime down"))
	m := embedding.NewCachedModel(inner, cache.NewMemoryCache(time.Minute, time.Minute), discardLogger())

	_, err := m.Encode(context.Background(), []string{"a"})
	assert.EqualError(t, err, "runtime down")
}

func TestCachedModel_CacheOutageFallsThrough(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	c := cache.NewRedisCacheWithClient(client, "embedd", time.Hour)
	defer c.Close()

	inner := embeddingtest.New()
	m := embedding.NewCachedModel(inner, c, discardLogger())

	s.Close()

	out, err := m.Encode(context.Background(), []string{"a", "a"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, out[0], out[1])
	assert.Len(t, inner.Calls(), 1)
}

func TestCachedModel_RedisSharesVectorsAcrossInstances(t *testing.T) {
	s := miniredis.RunT(t)
	newCache := func() cache.Cache {
		client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
		c := cache.NewRedisCacheWithClient(client, "embedd", time.Hour)
		t.Cleanup(func() { _ = c.Close() })
		return c
	}

	first := embeddingtest.New()
	_, err := embedding.NewCachedModel(first, newCache(), discardLogger()).Encode(context.Background(), []string{"shared"})
	require.NoError(t, err)

	second := embeddingtest.New()
	out, err := embedding.NewCachedModel(second, newCache(), discardLogger()).Encode(context.Background(), []string{"shared"})
	require.NoError(t, err)
	assert.Equal(t, embeddingtest.Vector("shared", embeddingtest.DefaultDimension), out[0])
	assert.Empty(t, second.Calls())
}

func TestFakeModel_Deterministic(t *testing.T) {
	a := embeddingtest.Vector("hello", 384)
	b := embeddingtest.Vector("hello", 384)
	assert.Equal(t, a, b)
	assert.Len(t, a, 384)
	assert.NotEqual(t, a, embeddingtest.Vector("hello!", 384))

	var norm float64
	for _, f := range a {
		norm += float64(f) * float64(f)
	}
	assert.InDelta(t, 1.0, norm, 1e-4)
}

func TestUncached(t *testing.T) {
	inner := embeddingtest.New()
	m := embedding.NewCachedModel(inner, cache.NewMemoryCache(time.Minute, time.Minute), discardLogger())

	assert.Same(t, inner, embedding.Uncached(m))
	assert.Same(t, inner, embedding.Uncached(inner))
}
