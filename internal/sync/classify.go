package sync

import (
	"strings"

	"github.com/hochfrequenz/ghactl/internal/domain"
)

// Step names a git operation performed by the Engine
type Step string

const (
	StepStatus Step = "status"
	StepStage  Step = "stage"
	StepCommit Step = "commit"
	StepFetch  Step = "fetch"
	StepPull   Step = "pull"
	StepPush   Step = "push"
)

// marker maps diagnostic text of a failed step onto an outcome
type marker struct {
	step Step
	text string
	kind domain.OutcomeKind
}

// outcomeMarkers is the complete list of git message fragments we rely on.
// Matching is case-insensitive over stdout and stderr. git's wording is not a
// stable interface, so every fragment we depend on lives here and nowhere else.
var outcomeMarkers = []marker{
	// commit raced with a clean index
	{StepCommit, "nothing to commit", domain.OutcomeNoChanges},
	{StepCommit, "no changes added to commit", domain.OutcomeNoChanges},

	// push lost the race against a concurrent pusher
	{StepPush, "rejected", domain.OutcomeConflict},
	{StepPush, "non-fast-forward", domain.OutcomeConflict},
	{StepPush, "fetch first", domain.OutcomeConflict},
}

// Classify looks up the outcome a failed step maps to. ok is false when no
// marker matches, which callers treat as a plain failure.
func Classify(step Step, res domain.CommandResult) (kind domain.OutcomeKind, ok bool) {
	text := strings.ToLower(res.Stdout + "\n" + res.Stderr)
	for _, m := range outcomeMarkers {
		if m.step != step {
			continue
		}
		if strings.Contains(text, m.text) {
			return m.kind, true
		}
	}
	return "", false
}
