package puzzle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/konpigg/soupd/internal/domain"
)

// staticEntry is one record of the pre-scraped puzzle artifact.
type staticEntry struct {
	ID      string `json:"id,omitempty"`
	Surface string `json:"surface"`
	Bottom  string `json:"bottom"`
}

// StaticNamespace serves a read-only corpus loaded once from a pre-scraped
// JSON artifact.
type StaticNamespace struct {
	name    string
	puzzles []domain.Puzzle
}

// NewStatic loads the corpus artifact. Entries without an explicit ID get a
// stable derived one so usage tracking survives reloads.
func NewStatic(path string) (*StaticNamespace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read puzzle corpus %s: %w", path, err)
	}

	var entries []staticEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse puzzle corpus %s: %w", path, err)
	}

	loadedAt := time.Now()
	puzzles := make([]domain.Puzzle, 0, len(entries))
	for _, e := range entries {
		if e.Surface == "" || e.Bottom == "" {
			continue
		}
		id := e.ID
		if id == "" {
			id = domain.DeriveID(e.Surface)
		}
		puzzles = append(puzzles, domain.Puzzle{
			ID:        id,
			Surface:   e.Surface,
			Bottom:    e.Bottom,
			Source:    domain.SourceStatic,
			CreatedAt: loadedAt,
		})
	}

	return &StaticNamespace{name: string(domain.SourceStatic), puzzles: puzzles}, nil
}

// Name returns the namespace key.
func (n *StaticNamespace) Name() string { return n.name }

// Puzzles returns the full corpus.
func (n *StaticNamespace) Puzzles(_ context.Context) ([]domain.Puzzle, error) {
	out := make([]domain.Puzzle, len(n.puzzles))
	copy(out, n.puzzles)
	return out, nil
}

// Count returns the number of loaded puzzles.
func (n *StaticNamespace) Count(_ context.Context) (int, error) {
	return len(n.puzzles), nil
}

// Capacity returns 0: the static corpus is not bounded (and not mutable).
func (n *StaticNamespace) Capacity() int { return 0 }

// Add rejects writes; the static corpus is an input artifact.
func (n *StaticNamespace) Add(_ context.Context, _ domain.Puzzle) error {
	return ErrReadOnly
}

// Close is a no-op.
func (n *StaticNamespace) Close() error { return nil }
