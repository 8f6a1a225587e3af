// Package oracle defines the contract with the external reasoning provider
// and its OpenAI-compatible adapter. The oracle is an opaque, possibly-failing
// classifier: callers bound every call with a timeout and treat any timeout or
// malformed response as a failure, never as an implicit verdict.
package oracle

import (
	"context"
	"errors"

	"github.com/konpigg/soupd/internal/domain"
)

var (
	// ErrMalformedVerdict means the provider answered outside the allowed
	// response set.
	ErrMalformedVerdict = errors.New("oracle returned malformed verdict")
	// ErrNotConfigured means no provider credentials were supplied.
	ErrNotConfigured = errors.New("oracle provider not configured")
)

// Client judges questions and guesses against a puzzle's hidden bottom.
// Answers are not guaranteed deterministic across repeated identical calls.
type Client interface {
	// JudgeQuestion classifies a yes/no question against the bottom and the
	// conversation so far.
	JudgeQuestion(ctx context.Context, p domain.Puzzle, transcript []domain.Entry, question string) (domain.Verdict, error)

	// JudgeGuess grades a full reconstruction attempt against the bottom.
	JudgeGuess(ctx context.Context, p domain.Puzzle, guess string) (domain.GuessResult, error)
}

// Generator produces new puzzles for the local corpus.
type Generator interface {
	GeneratePuzzle(ctx context.Context) (domain.Puzzle, error)
}
