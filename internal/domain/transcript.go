package domain

import "time"

// Verdict is the oracle's answer to a yes/no question.
type Verdict string

const (
	VerdictYes Verdict = "yes"
	VerdictNo  Verdict = "no"
	// VerdictUnclear covers questions the bottom neither confirms nor denies.
	VerdictUnclear Verdict = "unclear"
)

// GuessLevel grades how closely a guess reconstructs the bottom.
type GuessLevel string

const (
	// GuessFull means the guess matches the bottom including key details.
	GuessFull GuessLevel = "full"
	// GuessCore means the central twist is covered with minor gaps.
	GuessCore GuessLevel = "core"
	// GuessPartial means some of the story is understood but the causal
	// chain is incomplete.
	GuessPartial GuessLevel = "partial"
	// GuessMiss means the guess does not explain the surface at all.
	GuessMiss GuessLevel = "miss"
)

// Match reports whether a graded guess counts as reconstructing the bottom.
// The top two levels win the game.
func (l GuessLevel) Match() bool {
	return l == GuessFull || l == GuessCore
}

// GuessResult is the oracle's graded comparison of a guess against the bottom.
type GuessResult struct {
	Level   GuessLevel `json:"level"`
	Comment string     `json:"comment"`
}

// EntryKind distinguishes transcript entries.
type EntryKind string

const (
	EntryQuestion EntryKind = "question"
	EntryGuess    EntryKind = "guess"
)

// Entry is one accepted turn in a session transcript. Questions carry a
// verdict; failed guesses carry a grade level instead. The transcript is
// append-only and ordered by turn acceptance.
type Entry struct {
	Kind        EntryKind  `json:"kind"`
	Participant string     `json:"participant"`
	Text        string     `json:"text"`
	Verdict     Verdict    `json:"verdict,omitempty"`
	GuessLevel  GuessLevel `json:"guess_level,omitempty"`
	At          time.Time  `json:"at"`
}
