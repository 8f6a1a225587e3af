package game

import (
	"errors"
	"log/slog"
	"sync"
)

var (
	// ErrAlreadyActive means a start was requested while the group has a
	// non-terminal session.
	ErrAlreadyActive = errors.New("group already has an active game")
	// ErrNoActiveSession means the group has no running game.
	ErrNoActiveSession = errors.New("no active game for group")
)

// Registry tracks at most one session per group key. It holds only the
// mapping; each session is independently owned by its run loop.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// TryCreate atomically creates a session for a group. The builder runs under
// the registry lock, so concurrent starts for the same key see exactly one
// winner; the rest get ErrAlreadyActive. A builder failure leaves no entry
// behind.
func (r *Registry) TryCreate(groupKey string, build func() (*Session, error)) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[groupKey]; exists {
		return nil, ErrAlreadyActive
	}

	s, err := build()
	if err != nil {
		return nil, err
	}

	r.sessions[groupKey] = s
	slog.Info("Game session registered", "group", groupKey, "session_id", s.ID)
	return s, nil
}

// Get returns the session for a group, or nil.
func (r *Registry) Get(groupKey string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[groupKey]
}

// Remove releases a group's slot. Removing an absent key is a no-op.
func (r *Registry) Remove(groupKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[groupKey]; exists {
		delete(r.sessions, groupKey)
		slog.Info("Game session removed", "group", groupKey)
	}
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
