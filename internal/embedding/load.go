package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/blueberrycongee/embedd/internal/cache"
	"github.com/blueberrycongee/embedd/internal/config"
)

const warmupText = "warmup"

// SecretResolver turns a config reference such as env://VAR into its value.
type SecretResolver interface {
	Get(ctx context.Context, ref string) (string, error)
}

// Options carries the collaborators Load wires around the backend.
type Options struct {
	Secrets    SecretResolver
	Cache      cache.Cache // nil disables caching
	Tracer     trace.Tracer
	Logger     *slog.Logger
	HTTPClient *http.Client
}

type backend interface {
	Model
	setDimension(dim int)
}

// NewBackend creates the HTTP client for cfg.Backend without contacting it.
func NewBackend(cfg config.ModelConfig, apiKey string, client *http.Client) (Model, error) {
	b, err := newBackend(cfg, apiKey, client)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func newBackend(cfg config.ModelConfig, apiKey string, client *http.Client) (backend, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	switch cfg.Backend {
	case config.BackendTEI:
		return NewTEI(cfg, apiKey, client), nil
	case config.BackendOllama:
		return NewOllama(cfg, apiKey, client), nil
	case config.BackendOpenAI:
		return NewOpenAI(cfg, apiKey, client), nil
	case config.BackendHuggingFace:
		return NewHuggingFace(cfg, apiKey, client), nil
	default:
		return nil, fmt.Errorf("unknown model backend: %s", cfg.Backend)
	}
}

// Load connects to the model runtime once. With warmup enabled it encodes a
// probe text so an unreachable runtime or a dimension that disagrees with
// the config fails startup instead of the first request.
func Load(ctx context.Context, cfg config.ModelConfig, opts Options) (Model, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	apiKey := cfg.APIKey
	if apiKey != "" && opts.Secrets != nil {
		resolved, err := opts.Secrets.Get(ctx, apiKey)
		if err != nil {
			return nil, fmt.Errorf("resolve model api key: %w", err)
		}
		apiKey = resolved
	}

	probeCfg := cfg
	if cfg.Warmup {
		probeCfg.Dimension = 0
	}

	b, err := newBackend(probeCfg, apiKey, opts.HTTPClient)
	if err != nil {
		return nil, err
	}

	if cfg.Warmup {
		start := time.Now()
		vectors, err := b.Encode(ctx, []string{warmupText})
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("warm up model %s: %w", cfg.Name, err)
		}

		dim := len(vectors[0])
		if cfg.Dimension > 0 && dim != cfg.Dimension {
			_ = b.Close()
			return nil, fmt.Errorf("model %s produces %d-dimensional vectors, config expects %d",
				cfg.Name, dim, cfg.Dimension)
		}
		b.setDimension(dim)

		logger.Info("model loaded",
			"model", cfg.Name,
			"backend", cfg.Backend,
			"dimension", dim,
			"warmup_latency", time.Since(start),
		)
	} else {
		logger.Info("model configured without warmup",
			"model", cfg.Name,
			"backend", cfg.Backend,
			"dimension", cfg.Dimension,
		)
	}

	var model Model = Instrument(b, opts.Tracer)
	if opts.Cache != nil {
		model = NewCachedModel(model, opts.Cache, logger)
	}
	return model, nil
}
