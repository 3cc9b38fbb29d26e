// Package sync commits and pushes pending changes across coupled repositories.
package sync

import (
	"context"
	"io"
	"log/slog"

	"github.com/hochfrequenz/ghactl/internal/console"
	"github.com/hochfrequenz/ghactl/internal/domain"
)

// Options control how much of the commit/push sequence the Engine performs
type Options struct {
	// AutoPull rebases onto upstream before pushing when the remote is ahead
	AutoPull bool
	// CommitOnly stops after a successful commit
	CommitOnly bool
}

// Engine runs the commit/push sequence for a single repository
type Engine struct {
	vcs     VCS
	opts    Options
	printer *console.Printer
	logger  *slog.Logger
}

// NewEngine creates an Engine. printer and logger may be nil.
func NewEngine(vcs VCS, opts Options, printer *console.Printer, logger *slog.Logger) *Engine {
	if printer == nil {
		printer = console.New(io.Discard)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{vcs: vcs, opts: opts, printer: printer, logger: logger}
}

// Sync stages, commits and pushes everything pending in repo.
//
// The behind-check before the push and the push itself are not atomic: a
// concurrent pusher can still win. A late rejection is classified as a
// conflict exactly like an early one and is never retried.
func (e *Engine) Sync(ctx context.Context, repo domain.RepositoryTarget, message string) domain.SyncOutcome {
	dir := repo.Path
	log := e.logger.With("repo", repo.Name)

	status := e.vcs.Status(ctx, dir)
	if !status.OK() {
		return domain.Failed("status error", status.Diagnostic())
	}
	if status.Stdout == "" && !status.Simulated {
		e.printer.Warn("No changes to commit, skipping")
		return domain.NoChanges()
	}

	e.printer.Step("Running: git add .")
	if res := e.vcs.AddAll(ctx, dir); !res.OK() {
		e.printer.Error("git add failed: %s", res.Diagnostic())
		return domain.Failed("stage error", res.Diagnostic())
	}

	e.printer.Step("Running: git commit -m %q", message)
	res := e.vcs.Commit(ctx, dir, message)
	if !res.OK() {
		if kind, ok := Classify(StepCommit, res); ok && kind == domain.OutcomeNoChanges {
			e.printer.Warn("Nothing to commit")
			return domain.NoChanges()
		}
		e.printer.Error("git commit failed: %s", res.Diagnostic())
		return domain.Failed("commit error", res.Diagnostic())
	}
	if res.Stdout != "" && !res.Simulated {
		e.printer.Success("%s", res.Stdout)
	}

	if e.opts.CommitOnly {
		log.Debug("commit only, skipping push")
		return domain.SyncOutcome{Kind: domain.OutcomeCommitted}
	}

	if e.opts.AutoPull {
		if outcome, stop := e.integrateUpstream(ctx, dir); stop {
			return outcome
		}
	}

	e.printer.Step("Running: git push")
	res = e.vcs.Push(ctx, dir)
	if !res.OK() {
		e.printer.Error("git push failed: %s", res.Diagnostic())
		if kind, ok := Classify(StepPush, res); ok && kind == domain.OutcomeConflict {
			e.printer.Warn("Hint: the remote has new commits, run git pull first")
			return domain.Conflict("push rejected", res.Diagnostic())
		}
		return domain.Failed("push error", res.Diagnostic())
	}
	e.printer.Success("Push succeeded")

	return domain.SyncOutcome{Kind: domain.OutcomeCommittedAndPushed}
}

// integrateUpstream rebases onto the remote when it is ahead. stop is true
// when the sequence must end with the returned outcome.
func (e *Engine) integrateUpstream(ctx context.Context, dir string) (outcome domain.SyncOutcome, stop bool) {
	if res := e.vcs.Fetch(ctx, dir); !res.OK() {
		// an unreachable remote shows up again at push time
		e.logger.Debug("fetch failed", "dir", dir, "err", res.Diagnostic())
	}

	behind := parseCount(e.vcs.BehindCount(ctx, dir))
	if behind == 0 {
		return domain.SyncOutcome{}, false
	}

	e.printer.Warn("Remote has %d new commit(s), rebasing...", behind)
	e.printer.Step("Running: git pull --rebase")
	res := e.vcs.PullRebase(ctx, dir)
	if res.OK() {
		return domain.SyncOutcome{}, false
	}

	// a failed rebase always leaves work for the operator, whatever git printed
	e.printer.Error("git pull failed: %s", res.Diagnostic())
	e.printer.Warn("Resolve the conflicts manually and retry")
	return domain.Conflict("rebase failed", res.Diagnostic()), true
}
