// Package puzzle provides the deduplicating puzzle store: namespace-partitioned
// corpora with persisted usage tracking and uniform unused selection.
package puzzle

import (
	"context"
	"errors"

	"github.com/konpigg/soupd/internal/domain"
)

var (
	// ErrCorpusEmpty means a namespace holds no puzzles at all.
	ErrCorpusEmpty = errors.New("puzzle corpus is empty")
	// ErrReadOnly means the namespace does not accept new puzzles.
	ErrReadOnly = errors.New("namespace is read-only")
	// ErrUnknownNamespace means no namespace with that name is registered.
	ErrUnknownNamespace = errors.New("unknown namespace")
)

// Namespace is one logical partition of the puzzle corpus. The store layers
// usage tracking and selection on top; implementations only own the puzzles.
type Namespace interface {
	// Name returns the namespace key used for registration and usage files.
	Name() string

	// Puzzles returns the full corpus in insertion order.
	Puzzles(ctx context.Context) ([]domain.Puzzle, error)

	// Count returns the number of stored puzzles.
	Count(ctx context.Context) (int, error)

	// Capacity returns the maximum stored-puzzle count, or 0 if unbounded.
	Capacity() int

	// Add inserts a puzzle, evicting the oldest entries when the namespace
	// is bounded and full. Read-only namespaces return ErrReadOnly.
	Add(ctx context.Context, p domain.Puzzle) error

	// Close releases any underlying resources.
	Close() error
}
