package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/konpigg/soupd/internal/domain"
	"github.com/konpigg/soupd/internal/oracle"
	"github.com/konpigg/soupd/internal/puzzle"
)

// ErrTurnBusy means the session is judging a previous message and cannot
// accept another one for this turn window.
var ErrTurnBusy = errors.New("session is busy judging the previous turn")

// Service is the command surface over the engine: it owns the registry,
// selects puzzles, spawns session run loops, and converts storage and oracle
// failures into typed outcomes. Storage and oracle internals never leak to
// callers.
type Service struct {
	registry  *Registry
	store     *puzzle.Store
	judge     oracle.Client
	generator oracle.Generator
	params    Params
	// preferred is the namespace order tried when a start request names none.
	preferred []string
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// NewService wires the engine. generator may be nil; when set it is the live
// fallback used when no stored puzzle can be served.
func NewService(store *puzzle.Store, judge oracle.Client, generator oracle.Generator, params Params, preferred []string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if len(preferred) == 0 {
		preferred = []string{string(domain.SourceLocal), string(domain.SourceStatic)}
	}
	return &Service{
		registry:  NewRegistry(),
		store:     store,
		judge:     judge,
		generator: generator,
		params:    params,
		preferred: preferred,
		logger:    logger,
	}
}

// StartResult is returned to the caller of a successful start request.
type StartResult struct {
	SessionID string `json:"session_id"`
	Surface   string `json:"surface"`
	Namespace string `json:"namespace"`
}

// Start atomically creates and launches a session for a group. Exactly one
// concurrent caller succeeds; the rest get ErrAlreadyActive. With no puzzle
// available anywhere, callers get puzzle.ErrCorpusEmpty.
func (s *Service) Start(ctx context.Context, groupKey, namespace string) (StartResult, error) {
	sess, err := s.registry.TryCreate(groupKey, func() (*Session, error) {
		p, err := s.pickPuzzle(ctx, namespace)
		if err != nil {
			return nil, err
		}
		// Recorded inside the builder: the registry lock serializes starts,
		// so no other group can select this puzzle before it is marked.
		if p.Source != "" && p.ID != "" {
			if err := s.store.MarkUsed(ctx, string(p.Source), p.ID); err != nil {
				s.logger.Warn("Failed to persist puzzle usage", "group", groupKey,
					"namespace", p.Source, "puzzle_id", p.ID, "error", err)
			}
		}
		return NewSession(groupKey, p, s.judge, s.params, s.logger), nil
	})
	if err != nil {
		return StartResult{}, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.registry.Remove(groupKey)

		outcome := sess.Run(context.WithoutCancel(ctx))
		s.logger.Info("Game session finished",
			"group", groupKey,
			"session_id", sess.ID,
			"state", outcome.State.String(),
			"turns", outcome.Turns,
			"oracle_failed", outcome.OracleFailed)
	}()

	return StartResult{
		SessionID: sess.ID,
		Surface:   sess.Puzzle.Surface,
		Namespace: string(sess.Puzzle.Source),
	}, nil
}

// pickPuzzle selects from the named namespace, or walks the preference order.
// When every store namespace is exhausted or empty and a generator is wired,
// a fresh puzzle is generated live and also added to the local corpus.
func (s *Service) pickPuzzle(ctx context.Context, namespace string) (domain.Puzzle, error) {
	order := s.preferred
	if namespace != "" {
		order = []string{namespace}
	}

	var lastErr error
	for _, name := range order {
		p, err := s.store.Select(ctx, name)
		if err == nil {
			return p, nil
		}
		switch {
		case errors.Is(err, puzzle.ErrUnknownNamespace):
			// The preference walk skips unregistered namespaces, but an
			// explicitly named one must exist.
			if namespace != "" {
				return domain.Puzzle{}, err
			}
		case errors.Is(err, puzzle.ErrCorpusEmpty):
			lastErr = err
		default:
			return domain.Puzzle{}, err
		}
		if lastErr == nil {
			lastErr = err
		}
	}

	// Live generation covers an exhausted or empty corpus, never a namespace
	// the caller got wrong.
	if s.generator != nil && errors.Is(lastErr, puzzle.ErrCorpusEmpty) {
		p, err := s.generator.GeneratePuzzle(ctx)
		if err != nil {
			s.logger.Warn("Live puzzle generation failed", "error", err)
			return domain.Puzzle{}, fmt.Errorf("no stored puzzle and generation failed: %w", puzzle.ErrCorpusEmpty)
		}
		if err := s.store.Add(ctx, string(domain.SourceLocal), p); err != nil {
			s.logger.Warn("Failed to store generated puzzle", "error", err)
		}
		return p, nil
	}

	return domain.Puzzle{}, lastErr
}

// Submit forwards a question or guess to the group's current turn window.
func (s *Service) Submit(groupKey string, msg Message) error {
	sess := s.registry.Get(groupKey)
	if sess == nil {
		return ErrNoActiveSession
	}
	if !sess.Collector().Offer(msg) {
		return ErrTurnBusy
	}
	return nil
}

// GiveUp ends the group's game and reveals the bottom.
func (s *Service) GiveUp(groupKey, participant string) (string, error) {
	sess := s.registry.Get(groupKey)
	if sess == nil {
		return "", ErrNoActiveSession
	}
	if !sess.Collector().Offer(Message{Kind: KindGiveUp, Participant: participant}) {
		return "", ErrTurnBusy
	}
	return sess.Puzzle.Bottom, nil
}

// Abort forces teardown of the group's session from any non-terminal state.
// Aborting a group with no session is a no-op.
func (s *Service) Abort(groupKey string) bool {
	sess := s.registry.Get(groupKey)
	if sess == nil {
		return false
	}
	sess.Abort()
	return true
}

// Status returns a snapshot of the group's session.
func (s *Service) Status(groupKey string) (Snapshot, error) {
	sess := s.registry.Get(groupKey)
	if sess == nil {
		return Snapshot{}, ErrNoActiveSession
	}
	return sess.Snapshot(), nil
}

// Session exposes the group's live session for event subscription.
func (s *Service) Session(groupKey string) *Session {
	return s.registry.Get(groupKey)
}

// ActiveSessions returns the number of running games.
func (s *Service) ActiveSessions() int {
	return s.registry.Len()
}

// Shutdown aborts every running session and waits for their run loops.
func (s *Service) Shutdown() {
	for _, key := range s.activeKeys() {
		s.Abort(key)
	}
	s.wg.Wait()
}

func (s *Service) activeKeys() []string {
	s.registry.mu.RLock()
	defer s.registry.mu.RUnlock()
	keys := make([]string, 0, len(s.registry.sessions))
	for key := range s.registry.sessions {
		keys = append(keys, key)
	}
	return keys
}
