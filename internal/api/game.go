package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/konpigg/soupd/internal/game"
	"github.com/konpigg/soupd/internal/identity"
	"github.com/konpigg/soupd/internal/puzzle"
)

// RegisterRoutes mounts the game command surface.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/groups/{group}/game", func(r chi.Router) {
		r.Post("/start", h.StartGame)
		r.Post("/ask", h.Ask)
		r.Post("/guess", h.Guess)
		r.Post("/giveup", h.GiveUp)
		r.Post("/abort", h.AbortGame)
		r.Get("/status", h.GameStatus)
	})

	r.Get("/api/storage", h.StorageInfo)
	r.Get("/api/config", h.ConfigInfo)

	r.Route("/api/generator", func(r chi.Router) {
		r.Post("/start", h.GeneratorStart)
		r.Post("/stop", h.GeneratorStop)
		r.Get("/status", h.GeneratorStatus)
	})
}

type startRequest struct {
	Namespace string `json:"namespace,omitempty"`
}

type textRequest struct {
	Text string `json:"text"`
}

// StartGame creates a session for the group and returns the puzzle surface.
func (h *Handler) StartGame(w http.ResponseWriter, r *http.Request) {
	groupKey := chi.URLParam(r, "group")

	var req startRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	result, err := h.svc.Start(r.Context(), groupKey, req.Namespace)
	switch {
	case errors.Is(err, game.ErrAlreadyActive):
		Error(w, http.StatusConflict, "group already has an active game")
	case errors.Is(err, puzzle.ErrCorpusEmpty):
		Error(w, http.StatusServiceUnavailable, "no puzzles available")
	case errors.Is(err, puzzle.ErrUnknownNamespace):
		Error(w, http.StatusBadRequest, "unknown namespace")
	case err != nil:
		Error(w, http.StatusInternalServerError, "failed to start game")
	default:
		JSON(w, http.StatusCreated, result)
	}
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, kind game.MessageKind) {
	groupKey := chi.URLParam(r, "group")
	participant := identity.ParticipantFromContext(r.Context())

	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		Error(w, http.StatusBadRequest, "text is required")
		return
	}

	err := h.svc.Submit(groupKey, game.Message{Kind: kind, Participant: participant, Text: req.Text})
	switch {
	case errors.Is(err, game.ErrNoActiveSession):
		Error(w, http.StatusNotFound, "no active game for group")
	case errors.Is(err, game.ErrTurnBusy):
		Error(w, http.StatusConflict, "previous turn still being judged")
	case err != nil:
		Error(w, http.StatusInternalServerError, "failed to submit")
	default:
		JSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

// Ask forwards a yes/no question to the group's current turn.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, game.KindQuestion)
}

// Guess forwards a final reconstruction attempt.
func (h *Handler) Guess(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, game.KindGuess)
}

// GiveUp ends the game and reveals the bottom.
func (h *Handler) GiveUp(w http.ResponseWriter, r *http.Request) {
	groupKey := chi.URLParam(r, "group")
	participant := identity.ParticipantFromContext(r.Context())

	bottom, err := h.svc.GiveUp(groupKey, participant)
	switch {
	case errors.Is(err, game.ErrNoActiveSession):
		Error(w, http.StatusNotFound, "no active game for group")
	case errors.Is(err, game.ErrTurnBusy):
		Error(w, http.StatusConflict, "previous turn still being judged")
	case err != nil:
		Error(w, http.StatusInternalServerError, "failed to give up")
	default:
		JSON(w, http.StatusOK, map[string]string{"bottom": bottom})
	}
}

// AbortGame force-ends the group's session.
func (h *Handler) AbortGame(w http.ResponseWriter, r *http.Request) {
	groupKey := chi.URLParam(r, "group")
	if !h.svc.Abort(groupKey) {
		Error(w, http.StatusNotFound, "no active game for group")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GameStatus returns a snapshot of the group's session.
func (h *Handler) GameStatus(w http.ResponseWriter, r *http.Request) {
	groupKey := chi.URLParam(r, "group")

	snap, err := h.svc.Status(groupKey)
	if errors.Is(err, game.ErrNoActiveSession) {
		Error(w, http.StatusNotFound, "no active game for group")
		return
	}
	JSON(w, http.StatusOK, snap)
}

// StorageInfo reports corpus size and usage per namespace.
func (h *Handler) StorageInfo(w http.ResponseWriter, r *http.Request) {
	infos := make([]puzzle.Info, 0)
	for _, name := range h.store.Namespaces() {
		info, err := h.store.InfoFor(r.Context(), name)
		if err != nil {
			Error(w, http.StatusInternalServerError, "failed to read storage info")
			return
		}
		infos = append(infos, info)
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"namespaces":      infos,
		"active_sessions": h.svc.ActiveSessions(),
	})
}

// configInfo is the public view of the effective runtime settings. Provider
// credentials never appear here.
type configInfo struct {
	TurnTimeout    string `json:"turn_timeout"`
	OracleTimeout  string `json:"oracle_timeout"`
	OracleRetries  int    `json:"oracle_retries"`
	MaxTurns       int    `json:"max_turns"`
	StorageMaxSize int    `json:"storage_max_size"`
	JudgeModel     string `json:"judge_model"`
	GenerateModel  string `json:"generate_model"`
	Autogen        struct {
		Enabled   bool   `json:"enabled"`
		StartHour int    `json:"start_hour"`
		EndHour   int    `json:"end_hour"`
		Interval  string `json:"interval"`
	} `json:"autogen"`
}

// ConfigInfo reports the effective game configuration.
func (h *Handler) ConfigInfo(w http.ResponseWriter, _ *http.Request) {
	if h.cfg == nil {
		Error(w, http.StatusServiceUnavailable, "configuration not available")
		return
	}

	info := configInfo{
		TurnTimeout:    h.cfg.TurnTimeout.String(),
		OracleTimeout:  h.cfg.OracleTimeout.String(),
		OracleRetries:  h.cfg.OracleRetries,
		MaxTurns:       h.cfg.MaxTurns,
		StorageMaxSize: h.cfg.StorageMaxSize,
		JudgeModel:     h.cfg.JudgeModel,
		GenerateModel:  h.cfg.GenerateModel,
	}
	info.Autogen.Enabled = h.cfg.Autogen.Enabled
	info.Autogen.StartHour = h.cfg.Autogen.StartHour
	info.Autogen.EndHour = h.cfg.Autogen.EndHour
	info.Autogen.Interval = h.cfg.Autogen.Interval.String()
	JSON(w, http.StatusOK, info)
}

// GeneratorStart enables background puzzle generation.
func (h *Handler) GeneratorStart(w http.ResponseWriter, _ *http.Request) {
	if h.worker == nil {
		Error(w, http.StatusServiceUnavailable, "generation not configured")
		return
	}
	if !h.worker.Enable() {
		Error(w, http.StatusConflict, "generation already running")
		return
	}
	JSON(w, http.StatusOK, h.worker.Status())
}

// GeneratorStop disables background puzzle generation.
func (h *Handler) GeneratorStop(w http.ResponseWriter, _ *http.Request) {
	if h.worker == nil {
		Error(w, http.StatusServiceUnavailable, "generation not configured")
		return
	}
	if !h.worker.Disable() {
		Error(w, http.StatusConflict, "generation not running")
		return
	}
	JSON(w, http.StatusOK, h.worker.Status())
}

// GeneratorStatus reports the generation worker state.
func (h *Handler) GeneratorStatus(w http.ResponseWriter, _ *http.Request) {
	if h.worker == nil {
		Error(w, http.StatusServiceUnavailable, "generation not configured")
		return
	}
	JSON(w, http.StatusOK, h.worker.Status())
}
