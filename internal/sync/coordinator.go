package sync

import (
	"context"
	"fmt"
	"io"

	"github.com/hochfrequenz/ghactl/internal/console"
	"github.com/hochfrequenz/ghactl/internal/domain"
)

// Syncer syncs a single repository
type Syncer interface {
	Sync(ctx context.Context, repo domain.RepositoryTarget, message string) domain.SyncOutcome
}

// RepoResult is the outcome for one repository in a PushAll run
type RepoResult struct {
	Repo    domain.RepositoryTarget
	Outcome domain.SyncOutcome
}

// Report collects the outcomes of PushAll in processing order
type Report struct {
	Results []RepoResult
	invalid error
}

// OK returns true if every attempted repository may continue
func (r Report) OK() bool {
	return r.Err() == nil
}

// Err returns the error that stopped the chain, if any
func (r Report) Err() error {
	if r.invalid != nil {
		return r.invalid
	}
	for _, res := range r.Results {
		switch res.Outcome.Kind {
		case domain.OutcomeConflict:
			return fmt.Errorf("%s: %s: %w", res.Repo.Name, res.Outcome.Reason, domain.ErrConflict)
		case domain.OutcomeFailed:
			return fmt.Errorf("%s: %s: %w", res.Repo.Name, res.Outcome.Reason, domain.ErrSyncFailed)
		}
	}
	return nil
}

// Count returns how many repositories ended with kind
func (r Report) Count(kind domain.OutcomeKind) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome.Kind == kind {
			n++
		}
	}
	return n
}

// Coordinator runs a Syncer across an ordered list of repositories
type Coordinator struct {
	syncer  Syncer
	printer *console.Printer
}

// NewCoordinator creates a Coordinator. printer may be nil.
func NewCoordinator(syncer Syncer, printer *console.Printer) *Coordinator {
	if printer == nil {
		printer = console.New(io.Discard)
	}
	return &Coordinator{syncer: syncer, printer: printer}
}

// PushAll syncs repos strictly in order and stops at the first repository
// that does not succeed. Submodules must come before the superproject: its
// commit records the submodule revision, which has to be published first.
func (c *Coordinator) PushAll(ctx context.Context, repos []domain.RepositoryTarget, message string) Report {
	var report Report
	if err := ValidateOrder(repos); err != nil {
		report.invalid = err
		return report
	}

	for _, repo := range repos {
		c.printer.Banner("Repository: "+repo.Name, "Path: "+repo.Path)

		outcome := c.syncer.Sync(ctx, repo, message)
		report.Results = append(report.Results, RepoResult{Repo: repo, Outcome: outcome})

		if !outcome.Continue() {
			if outcome.Kind == domain.OutcomeConflict {
				c.printer.Warn("Pull and resolve the conflicts in %s manually, then retry", repo.Name)
			}
			c.printer.Error("%s failed (%s), aborting", repo.Name, outcome.Reason)
			return report
		}
		if err := ctx.Err(); err != nil {
			report.invalid = err
			return report
		}
	}
	return report
}

// ValidateOrder checks the repository ordering invariant: exactly one
// superproject, listed last, preceded by its submodules.
func ValidateOrder(repos []domain.RepositoryTarget) error {
	if len(repos) == 0 {
		return fmt.Errorf("no repositories configured: %w", domain.ErrInvalidConfig)
	}
	for i, repo := range repos {
		last := i == len(repos)-1
		if repo.Submodule == last {
			if last {
				return fmt.Errorf("last repository %q must be the superproject: %w", repo.Name, domain.ErrInvalidConfig)
			}
			return fmt.Errorf("superproject %q must come after its submodules: %w", repo.Name, domain.ErrInvalidConfig)
		}
	}
	return nil
}
