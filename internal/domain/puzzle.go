// Package domain contains core domain types for the soup game server.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Source identifies where a puzzle came from.
type Source string

const (
	// SourceLocal marks puzzles stored in the mutable local corpus.
	SourceLocal Source = "local"
	// SourceStatic marks puzzles loaded from the pre-scraped static corpus.
	SourceStatic Source = "static"
)

// Puzzle is one deduction riddle. The surface is shown to players; the bottom
// is the hidden full story used to judge questions and guesses. Puzzles are
// immutable once loaded.
type Puzzle struct {
	ID        string    `json:"id"`
	Surface   string    `json:"surface"`
	Bottom    string    `json:"bottom"`
	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// DeriveID returns a stable identifier for a puzzle surface. Used when a
// corpus entry carries no explicit ID, so the same entry maps to the same
// usage-record key across reloads.
func DeriveID(surface string) string {
	sum := sha256.Sum256([]byte(surface))
	return hex.EncodeToString(sum[:8])
}
