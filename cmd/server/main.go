// Package main is the entry point for the embedd embedding server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blueberrycongee/embedd/internal/api"
	"github.com/blueberrycongee/embedd/internal/cache"
	"github.com/blueberrycongee/embedd/internal/config"
	"github.com/blueberrycongee/embedd/internal/embedding"
	"github.com/blueberrycongee/embedd/internal/healthcheck"
	"github.com/blueberrycongee/embedd/internal/observability"
	"github.com/blueberrycongee/embedd/internal/secret"
	"github.com/blueberrycongee/embedd/internal/secret/vault"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (built-in defaults when empty)")
	addr := flag.String("addr", "", "listen address override, e.g. 0.0.0.0:5678")
	flag.Parse()

	if err := run(*configPath, *addr); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath, addrOverride string) error {
	bootstrap := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfgManager, err := config.NewManager(configPath, bootstrap)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	defer cfgManager.Close()
	cfg := cfgManager.Get()

	level := new(slog.LevelVar)
	if lvl, err := observability.ParseLevel(cfg.Logging.Level); err == nil {
		level.Set(lvl)
	}
	logger := observability.NewLogger(observability.LoggerConfig{
		Level:      level,
		Output:     os.Stdout,
		JSONFormat: cfg.Logging.Format != "text",
	}, observability.NewRedactor())
	slog.SetDefault(logger)

	logger.Info("starting embedd", "version", version, "config", configPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfgManager.OnChange(func(old, updated *config.Config) {
		applyReload(logger, level, old, updated)
	})
	if configPath != "" {
		if err := cfgManager.Watch(ctx); err != nil {
			logger.Warn("config hot-reload disabled", "error", err)
		}
	}

	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRate:  cfg.Tracing.SampleRate,
		Insecure:    cfg.Tracing.Insecure,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	secrets, err := buildSecrets(cfg.Secrets, logger)
	if err != nil {
		return err
	}
	defer secrets.Close()

	vectorCache, err := buildCache(ctx, cfg.Cache, secrets)
	if err != nil {
		return err
	}
	if vectorCache != nil {
		defer vectorCache.Close()
		logger.Info("vector cache enabled", "type", cfg.Cache.Type, "ttl", cfg.Cache.TTL)
	}

	model, err := embedding.Load(ctx, cfg.Model, embedding.Options{
		Secrets: secrets,
		Cache:   vectorCache,
		Tracer:  tp.Tracer(),
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	defer model.Close()

	prober := healthcheck.NewProber(healthcheck.Config{
		Enabled:          cfg.Health.Enabled,
		Interval:         cfg.Health.Interval,
		Timeout:          cfg.Health.Timeout,
		FailureThreshold: cfg.Health.FailureThreshold,
	}, embedding.Uncached(model), logger)
	prober.Start(ctx)

	handler := api.NewHandler(model, logger, api.HandlerConfig{
		MaxBodySize:  cfg.Server.MaxBodySize,
		MaxBatchSize: cfg.Limits.MaxBatchSize,
		Ready:        prober.Ready,
	})
	httpHandler := buildMiddlewareStack(cfg, tp.Tracer())(buildMux(cfg, handler))

	listenAddr := cfg.Server.Addr()
	if addrOverride != "" {
		listenAddr = addrOverride
	}

	server := &http.Server{
		Addr:         listenAddr,
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", listenAddr, "model", model.Info().Name)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

// applyReload applies the settings that can change while running. Everything
// else, the model in particular, is bound at startup.
func applyReload(logger *slog.Logger, level *slog.LevelVar, old, updated *config.Config) {
	if old.Logging.Level != updated.Logging.Level {
		if lvl, err := observability.ParseLevel(updated.Logging.Level); err == nil {
			level.Set(lvl)
			logger.Info("log level changed", "level", updated.Logging.Level)
		}
	}
	if old.Model != updated.Model {
		logger.Warn("model configuration changed; restart to apply",
			"model", updated.Model.Name,
			"backend", updated.Model.Backend,
		)
	}
	if old.Server != updated.Server || old.Limits != updated.Limits {
		logger.Warn("server configuration changed; restart to apply")
	}
}

func buildSecrets(cfg config.SecretsConfig, logger *slog.Logger) (*secret.Manager, error) {
	secrets := secret.NewManager(cfg.CacheTTL)

	if cfg.Vault.Address != "" {
		provider, err := vault.New(vault.Config{
			Address:    cfg.Vault.Address,
			AuthMethod: cfg.Vault.AuthMethod,
			RoleID:     cfg.Vault.RoleID,
			SecretID:   cfg.Vault.SecretID,
			CACert:     cfg.Vault.CACert,
			ClientCert: cfg.Vault.ClientCert,
			ClientKey:  cfg.Vault.ClientKey,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init vault secret provider: %w", err)
		}
		secrets.Register("vault", provider)
		logger.Info("vault secret provider enabled", "address", cfg.Vault.Address)
	}
	return secrets, nil
}

func buildCache(ctx context.Context, cfg config.CacheConfig, secrets *secret.Manager) (cache.Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Redis.Password != "" {
		password, err := secrets.Get(ctx, cfg.Redis.Password)
		if err != nil {
			return nil, fmt.Errorf("resolve redis password: %w", err)
		}
		cfg.Redis.Password = password
	}
	c, err := cache.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init vector cache: %w", err)
	}

	pingTimeout := cfg.Redis.DialTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("vector cache unreachable: %w", err)
	}
	return c, nil
}
