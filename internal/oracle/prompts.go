package oracle

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/konpigg/soupd/internal/domain"
)

const judgeSystemPrompt = `You are the referee of a lateral-thinking deduction game. ` +
	`Players try to reconstruct a hidden story by asking yes/no questions. ` +
	`You must answer with exactly one word: "yes", "no", or "unclear". ` +
	`Never add anything else.`

const verifySystemPrompt = `You are the referee of a deduction game. Players submit a full ` +
	`reconstruction of a hidden story and you compare it to the reference solution.

Grade the player's statement as exactly one of these levels:
- full: matches the reference including the core logic and key details
- core: the central twist is covered, minor details or secondary causes differ
- partial: parts of the plot or motive are understood, the causal chain is incomplete
- miss: the reconstruction does not explain the story's contradictions

Output exactly this format:
Level: <level>
Comment: <one short sentence>

Do not add any other content.`

const generateSystemPrompt = `You create original puzzles for a lateral-thinking deduction game. ` +
	`Each puzzle has a short surface (a strange but concrete situation, 1-2 sentences) and a bottom ` +
	`(the full hidden explanation, under 200 words, with a complete causal chain and at least two ` +
	`misdirection layers). Every behavior explained in the bottom must be present or hinted at in ` +
	`the surface. No dreams, magic, or mental-illness twists. Each puzzle must be brand new.`

// generationThemes keeps consecutive generated puzzles from converging on the
// same setup.
var generationThemes = []string{
	"the cost of misreading someone's behavior",
	"a choice that looks absurd but is perfectly rational",
	"a deliberate disguise that backfires or pays off",
	"a trap someone else set for the protagonist",
	"a plan that was designed to fail",
	"an illusion created by physical space",
	"a misleading everyday object",
	"cause and effect in the wrong order",
	"a hidden workplace power struggle",
	"a loophole in an everyday rule",
	"a security guard who knows the cameras best",
	"a cleaner who notices more than anyone",
	"a driver whose route makes no sense",
	"an act of kindness mistaken for malice",
	"a lie told to protect someone else",
	"a habit that exposes the truth",
}

func buildQuestionPrompt(p domain.Puzzle, transcript []domain.Entry, question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game rules:\n")
	fmt.Fprintf(&b, "1. The surface shown to players: %s\n", p.Surface)
	fmt.Fprintf(&b, "2. The full hidden truth: %s\n", p.Bottom)

	if len(transcript) > 0 {
		b.WriteString("3. Questions answered so far:\n")
		for _, e := range transcript {
			if e.Kind != domain.EntryQuestion {
				continue
			}
			fmt.Fprintf(&b, "   Q: %s A: %s\n", e.Text, e.Verdict)
		}
	}

	fmt.Fprintf(&b, "\nThe player now asks or states: %q\n\n", question)
	b.WriteString(`Judge whether the statement agrees with the truth. Answer "yes" if it fully agrees, ` +
		`"no" if it fully disagrees, "unclear" if it partially agrees, is ambiguous, or is irrelevant.`)
	return b.String()
}

func buildGuessPrompt(p domain.Puzzle, guess string) string {
	return fmt.Sprintf("The reference solution is:\n%s\n\nThe player's reconstruction is:\n%s\n\nGrade it.",
		p.Bottom, guess)
}

func buildGeneratePrompt() string {
	theme := generationThemes[rand.IntN(len(generationThemes))]
	return fmt.Sprintf(`Create one original deduction puzzle on the theme "%s".

Output exactly this format:
Surface: <the surface>
Bottom: <the bottom>`, theme)
}
