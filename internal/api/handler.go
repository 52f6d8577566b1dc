// Package api provides the HTTP handlers of the embedding service.
package api //nolint:revive // package name is intentional

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/blueberrycongee/embedd/internal/embedding"
	"github.com/blueberrycongee/embedd/internal/httputil"
	"github.com/blueberrycongee/embedd/internal/metrics"
	"github.com/blueberrycongee/embedd/internal/observability"
	apperrors "github.com/blueberrycongee/embedd/pkg/errors"
)

// DefaultMaxBodySize caps request bodies when no limit is configured.
const DefaultMaxBodySize int64 = 10 * 1024 * 1024

// HandlerConfig bounds the work a single request may ask for.
type HandlerConfig struct {
	MaxBodySize  int64 // <= 0 uses DefaultMaxBodySize
	MaxBatchSize int   // 0 disables the check

	// Ready, when set, is consulted by /health/ready after the model check.
	Ready func(ctx context.Context) error
}

// Handler serves the embedding API. The model is loaded by the caller and
// shared across requests.
type Handler struct {
	model        embedding.Model
	logger       *slog.Logger
	maxBodySize  int64
	maxBatchSize int
	ready        func(ctx context.Context) error
}

// NewHandler creates a new API handler.
func NewHandler(model embedding.Model, logger *slog.Logger, cfg HandlerConfig) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	return &Handler{
		model:        model,
		logger:       logger,
		maxBodySize:  cfg.MaxBodySize,
		maxBatchSize: cfg.MaxBatchSize,
		ready:        cfg.Ready,
	}
}

// Embed handles POST /embed.
func (h *Handler) Embed(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := observability.WithRequestID(r.Context(), h.logger)

	body, err := httputil.ReadLimitedBody(r.Body, h.maxBodySize)
	if err != nil {
		if errors.Is(err, httputil.ErrBodyTooLarge) {
			h.writeError(w, logger, apperrors.NewRequestTooLargeError(
				fmt.Sprintf("request body exceeds %d bytes", h.maxBodySize)))
			return
		}
		h.writeError(w, logger, apperrors.NewInvalidRequestError("failed to read request body"))
		return
	}

	var req EmbedRequest
	if len(bytes.TrimSpace(body)) > 0 {
		req, err = decodeEmbedRequest(body)
		if err != nil {
			h.writeError(w, logger, apperrors.NewInvalidRequestError("invalid request body: "+err.Error()))
			return
		}
	}

	if h.maxBatchSize > 0 && len(req.Texts) > h.maxBatchSize {
		h.writeError(w, logger, apperrors.NewRequestTooLargeError(
			fmt.Sprintf("batch of %d texts exceeds the limit of %d", len(req.Texts), h.maxBatchSize)))
		return
	}
	metrics.RecordBatch(len(req.Texts))

	if len(req.Texts) == 0 {
		h.writeJSON(w, logger, http.StatusOK, EmbedResponse{Embeddings: [][]float32{}})
		return
	}

	vectors, err := h.model.Encode(r.Context(), req.Texts)
	if err != nil {
		h.writeError(w, logger, err)
		return
	}
	if len(vectors) != len(req.Texts) {
		info := h.model.Info()
		h.writeError(w, logger, apperrors.NewInternalError(info.Backend, info.Name,
			fmt.Sprintf("model returned %d vectors for %d texts", len(vectors), len(req.Texts))))
		return
	}

	metrics.RecordEmbedded(len(vectors))
	logger.Debug("embedded batch",
		"batch_size", len(req.Texts),
		"latency", time.Since(start),
	)
	h.writeJSON(w, logger, http.StatusOK, EmbedResponse{Embeddings: vectors})
}

// HealthLive handles GET /health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.logger, http.StatusOK, HealthResponse{Status: "ok"})
}

// HealthReady handles GET /health/ready. The service is ready once the model
// handle exists and the runtime passes its health checks.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.model == nil {
		h.writeJSON(w, h.logger, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: "model not loaded"})
		return
	}
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.logger.Debug("readiness check failed", "error", err)
			h.writeJSON(w, h.logger, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: "model runtime failing health checks"})
			return
		}
	}
	h.writeJSON(w, h.logger, http.StatusOK, HealthResponse{Status: "ok"})
}

// ModelInfo handles GET /model.
func (h *Handler) ModelInfo(w http.ResponseWriter, r *http.Request) {
	if h.model == nil {
		h.writeError(w, h.logger, apperrors.NewServiceUnavailableError("", "", "model not loaded"))
		return
	}
	h.writeJSON(w, h.logger, http.StatusOK, ModelResponse(h.model.Info()))
}

func (h *Handler) writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.NewInternalError("", "", err.Error())
	}

	status := appErr.HTTPStatusCode()
	if status >= http.StatusInternalServerError {
		logger.Error("embed request failed",
			"status", status,
			"error_type", appErr.Type,
			"backend", appErr.Backend,
			"error", err,
		)
	} else {
		logger.Info("embed request rejected",
			"status", status,
			"error_type", appErr.Type,
			"reason", appErr.Message,
		)
	}

	h.writeJSON(w, logger, status, ErrorResponse{
		Error: ErrorDetail{
			Message: appErr.PublicMessage(),
			Type:    appErr.Type,
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
