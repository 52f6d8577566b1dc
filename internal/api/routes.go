package api //nolint:revive // package name is intentional

import "net/http"

// RegisterRoutes registers the API routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /embed", h.Embed)
	mux.HandleFunc("GET /model", h.ModelInfo)
	mux.HandleFunc("GET /health/live", h.HealthLive)
	mux.HandleFunc("GET /health/ready", h.HealthReady)
}
