package domain

import (
	"strings"
	"time"
)

// InternalFailure is the exit code used for timeouts and spawn errors.
// External tools never report it themselves.
const InternalFailure = -1

// CommandResult is produced by every external invocation
type CommandResult struct {
	ExitCode  int
	Stdout    string
	Stderr    string
	Simulated bool // synthesized by dry-run mode, nothing was executed
}

// OK returns true if the invoked tool reported success
func (r CommandResult) OK() bool {
	return r.ExitCode == 0
}

// Diagnostic returns the most useful text for an error message
func (r CommandResult) Diagnostic() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}

// SyncOutcome is the classified result of syncing one repository
type SyncOutcome struct {
	Kind   OutcomeKind
	Reason string // short classification, e.g. "push error"
	Detail string // collaborator diagnostic text
}

// NoChanges is the outcome for a clean working tree
func NoChanges() SyncOutcome {
	return SyncOutcome{Kind: OutcomeNoChanges}
}

// Failed builds a failure outcome
func Failed(reason, detail string) SyncOutcome {
	return SyncOutcome{Kind: OutcomeFailed, Reason: reason, Detail: detail}
}

// Conflict builds an outcome that needs manual resolution
func Conflict(reason, detail string) SyncOutcome {
	return SyncOutcome{Kind: OutcomeConflict, Reason: reason, Detail: detail}
}

// Continue reports whether a coordinator may move on to the next repository
func (o SyncOutcome) Continue() bool {
	switch o.Kind {
	case OutcomeNoChanges, OutcomeCommitted, OutcomeCommittedAndPushed:
		return true
	default:
		return false
	}
}

func (o SyncOutcome) String() string {
	if o.Reason == "" {
		return string(o.Kind)
	}
	return string(o.Kind) + ": " + o.Reason
}

// TagLayout formats generated build tags as YYYY-MM-DD-HHMM
const TagLayout = "2006-01-02-1504"

// commitStampLayout formats the timestamp in generated commit messages
const commitStampLayout = "20060102-150405"

// NewBuildTag derives a tag from the given time
func NewBuildTag(now time.Time) string {
	return now.Format(TagLayout)
}

// DefaultCommitMessage is used when the operator does not pass -m
func DefaultCommitMessage(now time.Time) string {
	return "build: auto commit " + now.Format(commitStampLayout)
}
