package puzzle

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/konpigg/soupd/internal/domain"
)

// Store coordinates selection and usage tracking across namespaces. All
// read-modify-write sequences on a namespace's usage record go through the
// namespace's own mutex, so selection and mark-used never interleave.
type Store struct {
	mu         sync.RWMutex
	namespaces map[string]*nsState
}

type nsState struct {
	mu    sync.Mutex
	ns    Namespace
	usage *usageFile
	used  map[string]struct{}
}

// Info describes a namespace's corpus and usage for status reporting.
type Info struct {
	Namespace string `json:"namespace"`
	Total     int    `json:"total"`
	Used      int    `json:"used"`
	Capacity  int    `json:"capacity,omitempty"`
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{namespaces: make(map[string]*nsState)}
}

// Register attaches a namespace and loads its persisted usage record from
// dataDir. A missing or corrupt record degrades to an empty one.
func (s *Store) Register(dataDir string, ns Namespace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := ns.Name()
	if _, exists := s.namespaces[name]; exists {
		return fmt.Errorf("namespace %q already registered", name)
	}

	usage := newUsageFile(dataDir, name)
	used := usage.load()
	s.namespaces[name] = &nsState{ns: ns, usage: usage, used: used}
	slog.Info("Puzzle namespace registered", "namespace", name, "used", len(used))
	return nil
}

func (s *Store) state(namespace string) (*nsState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.namespaces[namespace]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, namespace)
	}
	return st, nil
}

// Select picks uniformly among puzzles whose ID is not in the namespace's
// usage record. When every puzzle has been served, the record resets to an
// empty one (a fresh cycle) and selection retries once. An empty corpus
// returns ErrCorpusEmpty.
func (s *Store) Select(ctx context.Context, namespace string) (domain.Puzzle, error) {
	st, err := s.state(namespace)
	if err != nil {
		return domain.Puzzle{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	puzzles, err := st.ns.Puzzles(ctx)
	if err != nil {
		return domain.Puzzle{}, fmt.Errorf("load corpus for %q: %w", namespace, err)
	}
	if len(puzzles) == 0 {
		return domain.Puzzle{}, fmt.Errorf("namespace %q: %w", namespace, ErrCorpusEmpty)
	}

	unused := filterUnused(puzzles, st.used)
	if len(unused) == 0 {
		slog.Info("Puzzle namespace exhausted, resetting usage record",
			"namespace", namespace, "corpus", len(puzzles))
		st.used = make(map[string]struct{})
		if err := st.usage.save(st.used); err != nil {
			slog.Warn("Failed to persist usage record reset", "namespace", namespace, "error", err)
		}
		unused = puzzles
	}

	return unused[rand.IntN(len(unused))], nil
}

// MarkUsed records a served puzzle ID and persists the record atomically.
func (s *Store) MarkUsed(ctx context.Context, namespace, id string) error {
	st, err := s.state(namespace)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if _, done := st.used[id]; done {
		return nil
	}
	st.used[id] = struct{}{}
	if err := st.usage.save(st.used); err != nil {
		return fmt.Errorf("persist usage record for %q: %w", namespace, err)
	}
	return nil
}

// Add inserts a puzzle into a namespace.
func (s *Store) Add(ctx context.Context, namespace string, p domain.Puzzle) error {
	st, err := s.state(namespace)
	if err != nil {
		return err
	}
	if err := st.ns.Add(ctx, p); err != nil {
		return fmt.Errorf("add puzzle to %q: %w", namespace, err)
	}
	return nil
}

// Namespaces lists registered namespace names.
func (s *Store) Namespaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.namespaces))
	for name := range s.namespaces {
		names = append(names, name)
	}
	return names
}

// InfoFor reports corpus size and usage for one namespace.
func (s *Store) InfoFor(ctx context.Context, namespace string) (Info, error) {
	st, err := s.state(namespace)
	if err != nil {
		return Info{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	total, err := st.ns.Count(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("count corpus for %q: %w", namespace, err)
	}
	return Info{
		Namespace: namespace,
		Total:     total,
		Used:      len(st.used),
		Capacity:  st.ns.Capacity(),
	}, nil
}

// Close closes all registered namespaces.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for name, st := range s.namespaces {
		if err := st.ns.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close namespace %q: %w", name, err)
		}
	}
	return firstErr
}

func filterUnused(puzzles []domain.Puzzle, used map[string]struct{}) []domain.Puzzle {
	var out []domain.Puzzle
	for _, p := range puzzles {
		if _, done := used[p.ID]; !done {
			out = append(out, p)
		}
	}
	return out
}
