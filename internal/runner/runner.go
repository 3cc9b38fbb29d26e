// Package runner executes external commands (git, gh) with per-call timeouts.
//
// Every side effect of ghactl goes through a Runner, which is what makes
// dry-run mode safe: an ExecRunner with DryRun set never starts a process.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/hochfrequenz/ghactl/internal/domain"
)

// DefaultTimeout applies when a Command does not set its own
const DefaultTimeout = 5 * time.Minute

// SimulatedOutput is the stdout of every dry-run result
const SimulatedOutput = "[dry-run]"

// WaitDelay bounds how long a timed-out command may keep its output pipes
// open through leftover grandchildren (ssh under git push, for example)
const WaitDelay = 2 * time.Second

// Command describes one external invocation
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Timeout time.Duration
}

// String renders the command line for previews and logs
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Runner is the collaborator interface consumed by the sync engine and the gh client
type Runner interface {
	// Run executes the command and captures its output
	Run(ctx context.Context, cmd Command) domain.CommandResult

	// RunLive executes the command with output streamed to the terminal.
	// Only ExitCode (and Stderr for internal failures) is populated.
	RunLive(ctx context.Context, cmd Command) domain.CommandResult
}

// Announcer receives a preview line for each command skipped in dry-run mode
type Announcer func(line string)

// ExecRunner runs commands through os/exec
type ExecRunner struct {
	DryRun   bool
	Announce Announcer
	Stdout   io.Writer // live output, defaults to os.Stdout
	Stderr   io.Writer // live output, defaults to os.Stderr
	Logger   *slog.Logger
}

// New creates an ExecRunner. dryRun is fixed for the runner's lifetime.
func New(dryRun bool, announce Announcer, logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ExecRunner{
		DryRun:   dryRun,
		Announce: announce,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Logger:   logger,
	}
}

// Run implements Runner.Run
func (r *ExecRunner) Run(ctx context.Context, c Command) domain.CommandResult {
	return r.exec(ctx, c, true)
}

// RunLive implements Runner.RunLive
func (r *ExecRunner) RunLive(ctx context.Context, c Command) domain.CommandResult {
	return r.exec(ctx, c, false)
}

func (r *ExecRunner) exec(ctx context.Context, c Command, capture bool) domain.CommandResult {
	if c.Name == "" {
		return domain.CommandResult{ExitCode: domain.InternalFailure, Stderr: "empty command"}
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if r.DryRun {
		if r.Announce != nil {
			r.Announce(c.String())
		}
		r.logger().Debug("simulated command", "cmd", c.String(), "dir", c.Dir)
		return domain.CommandResult{ExitCode: 0, Stdout: SimulatedOutput, Simulated: true}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = WaitDelay

	var stdout, stderr bytes.Buffer
	if capture {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		// live commands stay in the terminal's process group so they can read it
		killProcessGroup(cmd)
	} else {
		cmd.Stdin = os.Stdin
		cmd.Stdout = r.stdout()
		cmd.Stderr = r.stderr()
	}

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	result := domain.CommandResult{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result = domain.CommandResult{
			ExitCode: domain.InternalFailure,
			Stderr:   fmt.Sprintf("command timed out after %s", timeout),
		}
	case err != nil:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result = domain.CommandResult{ExitCode: domain.InternalFailure, Stderr: err.Error()}
		}
	}

	r.logger().Debug("command finished",
		"cmd", c.String(),
		"dir", c.Dir,
		"exit", result.ExitCode,
		"duration", elapsed.Round(time.Millisecond))

	return result
}

func (r *ExecRunner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r.Logger
}

func (r *ExecRunner) stdout() io.Writer {
	if r.Stdout == nil {
		return os.Stdout
	}
	return r.Stdout
}

func (r *ExecRunner) stderr() io.Writer {
	if r.Stderr == nil {
		return os.Stderr
	}
	return r.Stderr
}
