package sync

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/hochfrequenz/ghactl/internal/domain"
	"github.com/hochfrequenz/ghactl/internal/runner"
)

// VCS is the version-control collaborator used by the Engine.
// Every method runs in dir and reports the raw CommandResult.
type VCS interface {
	Status(ctx context.Context, dir string) domain.CommandResult
	AddAll(ctx context.Context, dir string) domain.CommandResult
	Commit(ctx context.Context, dir, message string) domain.CommandResult
	Fetch(ctx context.Context, dir string) domain.CommandResult
	BehindCount(ctx context.Context, dir string) domain.CommandResult
	PullRebase(ctx context.Context, dir string) domain.CommandResult
	Push(ctx context.Context, dir string) domain.CommandResult
}

// Timeouts are the per-call budgets for git operations
type Timeouts struct {
	Command time.Duration
	Fetch   time.Duration
	Pull    time.Duration
	Push    time.Duration
}

// DefaultTimeouts mirror the budgets of the original shell workflow
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Command: 5 * time.Minute,
		Fetch:   60 * time.Second,
		Pull:    120 * time.Second,
		Push:    10 * time.Minute,
	}
}

// Git implements VCS with the git binary
type Git struct {
	runner   runner.Runner
	timeouts Timeouts
}

// NewGit creates a Git collaborator
func NewGit(r runner.Runner, timeouts Timeouts) *Git {
	return &Git{runner: r, timeouts: timeouts}
}

func (g *Git) run(ctx context.Context, dir string, timeout time.Duration, args ...string) domain.CommandResult {
	return g.runner.Run(ctx, runner.Command{Name: "git", Args: args, Dir: dir, Timeout: timeout})
}

// Status lists working tree changes in porcelain format
func (g *Git) Status(ctx context.Context, dir string) domain.CommandResult {
	return g.run(ctx, dir, g.timeouts.Command, "status", "--porcelain")
}

// AddAll stages every change in the working tree
func (g *Git) AddAll(ctx context.Context, dir string) domain.CommandResult {
	return g.run(ctx, dir, g.timeouts.Command, "add", ".")
}

// Commit records the staged changes
func (g *Git) Commit(ctx context.Context, dir, message string) domain.CommandResult {
	return g.run(ctx, dir, g.timeouts.Command, "commit", "-m", message)
}

// Fetch updates remote-tracking refs
func (g *Git) Fetch(ctx context.Context, dir string) domain.CommandResult {
	return g.run(ctx, dir, g.timeouts.Fetch, "fetch")
}

// BehindCount counts upstream commits missing locally
func (g *Git) BehindCount(ctx context.Context, dir string) domain.CommandResult {
	return g.run(ctx, dir, g.timeouts.Command, "rev-list", "HEAD..@{u}", "--count")
}

// PullRebase replays local commits on top of upstream
func (g *Git) PullRebase(ctx context.Context, dir string) domain.CommandResult {
	return g.run(ctx, dir, g.timeouts.Pull, "pull", "--rebase")
}

// Push publishes the current branch
func (g *Git) Push(ctx context.Context, dir string) domain.CommandResult {
	return g.run(ctx, dir, g.timeouts.Push, "push")
}

// SubmoduleInit checks out missing submodules, streaming progress to the terminal
func (g *Git) SubmoduleInit(ctx context.Context, dir string) domain.CommandResult {
	return g.runner.RunLive(ctx, runner.Command{
		Name:    "git",
		Args:    []string{"submodule", "update", "--init"},
		Dir:     dir,
		Timeout: g.timeouts.Push,
	})
}

// parseCount reads the output of rev-list --count. Anything that is not a
// plain non-negative integer (including simulated output) reads as zero.
func parseCount(res domain.CommandResult) int {
	if !res.OK() || res.Simulated {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
