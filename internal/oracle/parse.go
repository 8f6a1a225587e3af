package oracle

import (
	"fmt"
	"strings"

	"github.com/konpigg/soupd/internal/domain"
)

// parseVerdict maps a judge reply onto the verdict enum. Anything outside the
// allowed response set is a malformed verdict, never an implicit answer.
func parseVerdict(reply string) (domain.Verdict, error) {
	word := strings.ToLower(strings.TrimSpace(reply))
	word = strings.Trim(word, ".!\"'")

	switch {
	case word == "yes" || strings.HasPrefix(word, "yes,"):
		return domain.VerdictYes, nil
	case word == "no" || strings.HasPrefix(word, "no,"):
		return domain.VerdictNo, nil
	case word == "unclear" || word == "irrelevant" || word == "yes and no":
		return domain.VerdictUnclear, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrMalformedVerdict, reply)
	}
}

// parseGuessResult extracts the "Level:"/"Comment:" pair from a verifier
// reply.
func parseGuessResult(reply string) (domain.GuessResult, error) {
	var level, comment string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "Level:"); ok {
			level = strings.ToLower(strings.TrimSpace(v))
		} else if v, ok := strings.CutPrefix(line, "Comment:"); ok {
			comment = strings.TrimSpace(v)
		}
	}

	switch domain.GuessLevel(level) {
	case domain.GuessFull, domain.GuessCore, domain.GuessPartial, domain.GuessMiss:
		return domain.GuessResult{Level: domain.GuessLevel(level), Comment: comment}, nil
	default:
		return domain.GuessResult{}, fmt.Errorf("%w: %q", ErrMalformedVerdict, reply)
	}
}

// parsePuzzle extracts the "Surface:"/"Bottom:" pair from a generator reply.
// The bottom may span multiple lines up to the end of the reply.
func parsePuzzle(reply string) (surface, bottom string, err error) {
	text := strings.ReplaceAll(reply, "**", "")

	// "**Surface:**" collapses to "Surface::" above, so a stray leading
	// colon has to go too.
	trimLabel := func(s string) string {
		return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), ":"))
	}

	if i := strings.Index(text, "Surface:"); i >= 0 {
		rest := text[i+len("Surface:"):]
		if j := strings.Index(rest, "Bottom:"); j >= 0 {
			surface = trimLabel(rest[:j])
			bottom = trimLabel(rest[j+len("Bottom:"):])
		}
	}

	// Cut trailing separators some models append after the bottom.
	for _, sep := range []string{"\n----", "\n---"} {
		if j := strings.Index(bottom, sep); j >= 0 {
			bottom = strings.TrimSpace(bottom[:j])
		}
	}

	if surface == "" || bottom == "" {
		return "", "", fmt.Errorf("%w: generator reply missing surface or bottom", ErrMalformedVerdict)
	}
	return surface, bottom, nil
}
