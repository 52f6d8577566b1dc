package main

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/embedd/internal/config"
)

func TestApplyReload_LogLevel(t *testing.T) {
	var logs bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: level}))

	old := config.DefaultConfig()
	updated := config.DefaultConfig()
	updated.Logging.Level = "debug"

	applyReload(logger, level, old, updated)
	assert.Equal(t, slog.LevelDebug, level.Level())
	assert.NotContains(t, logs.String(), "restart to apply")
}

func TestApplyReload_ModelChangeNeedsRestart(t *testing.T) {
	var logs bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: level}))

	old := config.DefaultConfig()
	updated := config.DefaultConfig()
	updated.Model.Name = "BAAI/bge-small-en-v1.5"

	applyReload(logger, level, old, updated)
	assert.Contains(t, logs.String(), "model configuration changed")
	assert.Equal(t, slog.LevelInfo, level.Level())
}

func TestBuildCache_Disabled(t *testing.T) {
	c, err := buildCache(t.Context(), config.CacheConfig{}, nil)
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestBuildCache_ResolvesRedisPassword(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("s3cret")
	t.Setenv("EMBEDD_TEST_REDIS_PASSWORD", "s3cret")

	secrets, err := buildSecrets(config.SecretsConfig{}, slog.Default())
	require.NoError(t, err)

	cfg := config.DefaultConfig().Cache
	cfg.Enabled = true
	cfg.Type = config.CacheTypeRedis
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.Password = "env://EMBEDD_TEST_REDIS_PASSWORD"

	c, err := buildCache(t.Context(), cfg, secrets)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	assert.NoError(t, c.Ping(t.Context()))
}

func TestBuildCache_UnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	secrets, err := buildSecrets(config.SecretsConfig{}, slog.Default())
	require.NoError(t, err)

	cfg := config.DefaultConfig().Cache
	cfg.Enabled = true
	cfg.Type = config.CacheTypeRedis
	cfg.Redis.Addr = addr
	cfg.Redis.DialTimeout = 200 * time.Millisecond

	c, err := buildCache(t.Context(), cfg, secrets)
	assert.Error(t, err)
	assert.Nil(t, c)
}
