package domain

// RunStatus represents the scheduling state of a workflow run as reported by gh
type RunStatus string

const (
	RunQueued     RunStatus = "queued"
	RunInProgress RunStatus = "in_progress"
	RunCompleted  RunStatus = "completed"
	RunOther      RunStatus = "other"
)

// ParseRunStatus maps a gh status string onto a RunStatus.
// gh also reports waiting/requested/pending; those collapse into RunOther.
func ParseRunStatus(s string) RunStatus {
	switch RunStatus(s) {
	case RunQueued, RunInProgress, RunCompleted:
		return RunStatus(s)
	default:
		return RunOther
	}
}

// Active returns true while the run has been scheduled but not finished
func (s RunStatus) Active() bool {
	return s == RunQueued || s == RunInProgress
}

// RunConclusion represents the final result of a completed run
type RunConclusion string

const (
	ConclusionNone    RunConclusion = ""
	ConclusionSuccess RunConclusion = "success"
	ConclusionFailure RunConclusion = "failure"
	ConclusionOther   RunConclusion = "other"
)

// ParseRunConclusion maps a gh conclusion string onto a RunConclusion
func ParseRunConclusion(s string) RunConclusion {
	switch RunConclusion(s) {
	case ConclusionNone, ConclusionSuccess, ConclusionFailure:
		return RunConclusion(s)
	default:
		return ConclusionOther
	}
}

// OutcomeKind tags the variant of a SyncOutcome
type OutcomeKind string

const (
	OutcomeNoChanges          OutcomeKind = "no_changes"
	OutcomeCommitted          OutcomeKind = "committed"
	OutcomeCommittedAndPushed OutcomeKind = "pushed"
	OutcomeConflict           OutcomeKind = "conflict"
	OutcomeFailed             OutcomeKind = "failed"
)

// OperationKind identifies a recorded local operation
type OperationKind string

const (
	OperationPush  OperationKind = "push"
	OperationBuild OperationKind = "build"
)
