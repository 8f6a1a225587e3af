package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/konpigg/soupd/internal/game"
	"github.com/konpigg/soupd/internal/identity"
)

// WSHandler serves the per-group game channel: participants submit questions
// and guesses over the socket and receive verdicts and game events as they
// happen.
type WSHandler struct {
	svc           *game.Service
	allowedOrigin string
	isDev         bool
}

// NewWSHandler creates a WebSocket game-channel handler.
func NewWSHandler(svc *game.Service, allowedOrigin string, isDev bool) *WSHandler {
	return &WSHandler{svc: svc, allowedOrigin: allowedOrigin, isDev: isDev}
}

// wsMessage is an inbound game-channel frame.
type wsMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	groupKey := r.URL.Query().Get("group")
	if groupKey == "" {
		http.Error(w, "group query parameter required", http.StatusBadRequest)
		return
	}
	participant := identity.ParticipantFromContext(r.Context())
	slog.Info("Game channel connection request", "group", groupKey, "participant", participant, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	sess := h.svc.Session(groupKey)
	if sess == nil {
		http.Error(w, "no active game for group", http.StatusNotFound)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "group", groupKey)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "channel closed"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "group", groupKey)
		}
	}()

	subID, events := sess.Subscribe()
	defer sess.Unsubscribe(subID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Late joiners get the surface and current state up front.
	snap := sess.Snapshot()
	if err := h.writeJSON(ctx, ws, game.Event{Type: game.EventStarted, Surface: snap.Surface, State: snap.State}); err != nil {
		slog.Debug("Failed to send channel greeting", "error", err, "group", groupKey)
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)

	// Input loop: socket -> turn collector.
	go func() {
		defer wg.Done()
		defer cancel()
		h.inputLoop(ctx, ws, groupKey, participant)
	}()

	// Output loop: session events -> socket.
	go func() {
		defer wg.Done()
		defer cancel()
		h.outputLoop(ctx, ws, events)
	}()

	wg.Wait()
	slog.Info("Game channel closed", "group", groupKey, "participant", participant)
}

func (h *WSHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("Game channel origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WSHandler) inputLoop(ctx context.Context, ws *websocket.Conn, groupKey, participant string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("Game channel closed by client", "group", groupKey)
			} else if ctx.Err() == nil {
				slog.Warn("Game channel read error", "error", err, "group", groupKey)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			if writeErr := h.writeJSON(ctx, ws, map[string]string{"error": "invalid message"}); writeErr != nil {
				return
			}
			continue
		}

		var submitErr error
		switch msg.Type {
		case "ask":
			submitErr = h.svc.Submit(groupKey, game.Message{Kind: game.KindQuestion, Participant: participant, Text: msg.Text})
		case "guess":
			submitErr = h.svc.Submit(groupKey, game.Message{Kind: game.KindGuess, Participant: participant, Text: msg.Text})
		case "giveup":
			_, submitErr = h.svc.GiveUp(groupKey, participant)
		case "ping":
			if err := h.writeJSON(ctx, ws, map[string]string{"type": "pong"}); err != nil {
				return
			}
			continue
		default:
			submitErr = errors.New("unknown message type")
		}

		if submitErr != nil {
			if err := h.writeJSON(ctx, ws, map[string]string{"error": submitErr.Error()}); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) outputLoop(ctx context.Context, ws *websocket.Conn, events <-chan game.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				// Session finished; the ended event has already been sent.
				return
			}
			if err := h.writeJSON(ctx, ws, ev); err != nil {
				slog.Debug("Game channel write error", "error", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *WSHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
