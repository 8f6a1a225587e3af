package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Pinger verifies backing-store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports readiness of the puzzle store.
type HealthHandler struct {
	pinger Pinger
}

// NewHealthHandler creates a health handler. pinger may be nil when no
// database-backed namespace is configured.
func NewHealthHandler(pinger Pinger) *HealthHandler {
	return &HealthHandler{pinger: pinger}
}

// RegisterHealth mounts the readiness endpoint.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/healthz", h.Ready)
}

// Ready responds 200 when the store is reachable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			Error(w, http.StatusServiceUnavailable, "store unreachable")
			return
		}
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
