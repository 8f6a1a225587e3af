// Package api provides HTTP handlers for the game command surface.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/konpigg/soupd/internal/config"
	"github.com/konpigg/soupd/internal/game"
	"github.com/konpigg/soupd/internal/generator"
	"github.com/konpigg/soupd/internal/puzzle"
)

// Handler holds the command-surface dependencies.
type Handler struct {
	svc    *game.Service
	store  *puzzle.Store
	worker *generator.Worker
	cfg    *config.Config
}

// NewHandler creates a Handler. worker may be nil when generation is not
// configured.
func NewHandler(svc *game.Service, store *puzzle.Store, worker *generator.Worker, cfg *config.Config) *Handler {
	return &Handler{svc: svc, store: store, worker: worker, cfg: cfg}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
