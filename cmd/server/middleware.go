package main

import (
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/blueberrycongee/embedd/internal/config"
	"github.com/blueberrycongee/embedd/internal/metrics"
	"github.com/blueberrycongee/embedd/internal/observability"
)

// buildMiddlewareStack wraps the mux, outermost first: request ID, CORS,
// tracing, metrics. Metrics sits directly on the mux so it can label by the
// matched route pattern.
func buildMiddlewareStack(cfg *config.Config, tracer trace.Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handler := metrics.Middleware(next)
		if tracer != nil {
			handler = observability.TracingMiddleware(tracer, handler)
		}
		handler = corsMiddleware(cfg.CORS, handler)
		handler = observability.RequestIDMiddleware(handler)
		return handler
	}
}
