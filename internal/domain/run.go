package domain

import (
	"fmt"
	"time"
)

// WorkflowRun is one execution of the remote workflow. It is read-only for us;
// the remote service owns every transition.
type WorkflowRun struct {
	ID         string
	Status     RunStatus
	Conclusion RunConclusion
	Title      string
	CreatedAt  time.Time
}

// Failed returns true if the run completed with a failure conclusion
func (r WorkflowRun) Failed() bool {
	return r.Conclusion == ConclusionFailure
}

// State returns the conclusion for completed runs and the status otherwise
func (r WorkflowRun) State() string {
	if r.Status == RunCompleted && r.Conclusion != ConclusionNone {
		return string(r.Conclusion)
	}
	return string(r.Status)
}

// RepositoryTarget is one git working tree taking part in a push
type RepositoryTarget struct {
	Name      string
	Path      string
	Submodule bool
}

func (r RepositoryTarget) String() string {
	return fmt.Sprintf("%s (%s)", r.Name, r.Path)
}

// Operation is a locally recorded push or build
type Operation struct {
	ID        string
	Kind      OperationKind
	Tag       string
	RunID     string
	Outcome   string
	Detail    string
	CreatedAt time.Time
	Repos     []RepoOutcome
}

// RepoOutcome is the recorded sync result of one repository
type RepoOutcome struct {
	Name    string
	Outcome OutcomeKind
	Reason  string
}
