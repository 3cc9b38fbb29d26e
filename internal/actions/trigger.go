package actions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hochfrequenz/ghactl/internal/console"
	"github.com/hochfrequenz/ghactl/internal/domain"
)

const (
	// DefaultPollInterval is the delay between two run listings while confirming
	DefaultPollInterval = 2 * time.Second
	// DefaultBudget bounds how long Confirm waits for the run to appear
	DefaultBudget = 30 * time.Second
	// DefaultTagInput is the workflow_dispatch input carrying the build tag
	DefaultTagInput = "upload-tag"
)

// RunLister lists workflow runs
type RunLister interface {
	ListRuns(ctx context.Context, opts ListOptions) ([]domain.WorkflowRun, error)
}

// Dispatcher triggers the workflow
type Dispatcher interface {
	Dispatch(ctx context.Context, inputs map[string]string) domain.CommandResult
}

// TriggerAPI is the part of the gh client a Trigger needs
type TriggerAPI interface {
	RunLister
	Dispatcher
}

// Clock provides the current time
type Clock interface {
	Now() time.Time
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ConfirmState is a state of the confirmation machine
type ConfirmState string

const (
	StateWaitingForRun ConfirmState = "waiting_for_run"
	StateConfirmed     ConfirmState = "confirmed"
	StateTimedOut      ConfirmState = "timed_out"
	StateCancelled     ConfirmState = "cancelled"
	// StateSkipped means confirmation was not requested (dry-run)
	StateSkipped ConfirmState = "skipped"
)

// Confirmation is the terminal state of Confirm
type Confirmation struct {
	State ConfirmState
	RunID string // set only when State is StateConfirmed
	Polls int
}

// TriggerConfig configures a Trigger
type TriggerConfig struct {
	TagInput     string
	PollInterval time.Duration
	Budget       time.Duration
}

// TriggerResult summarizes TriggerBuild
type TriggerResult struct {
	Tag   string
	State ConfirmState
	RunID string
}

// Trigger dispatches the build workflow and confirms a run was scheduled
type Trigger struct {
	api     TriggerAPI
	cfg     TriggerConfig
	clock   Clock
	sleep   SleepFunc
	printer *console.Printer
	logger  *slog.Logger

	baseline string
}

// NewTrigger creates a Trigger. printer and logger may be nil.
func NewTrigger(api TriggerAPI, cfg TriggerConfig, printer *console.Printer, logger *slog.Logger) *Trigger {
	if cfg.TagInput == "" {
		cfg.TagInput = DefaultTagInput
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultBudget
	}
	if printer == nil {
		printer = console.New(io.Discard)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Trigger{
		api:     api,
		cfg:     cfg,
		clock:   realClock{},
		sleep:   sleepContext,
		printer: printer,
		logger:  logger,
	}
}

// WithClock replaces the time source and the sleep primitive
func (t *Trigger) WithClock(clock Clock, sleep SleepFunc) *Trigger {
	t.clock = clock
	t.sleep = sleep
	return t
}

// MarkBaseline records the newest existing run so Confirm does not mistake
// it for the one we are about to trigger. Failures are ignored.
func (t *Trigger) MarkBaseline(ctx context.Context) {
	runs, err := t.api.ListRuns(ctx, ListOptions{Limit: 1})
	if err != nil {
		t.logger.Debug("baseline query failed", "err", err)
		return
	}
	if len(runs) > 0 {
		t.baseline = runs[0].ID
	}
}

// Fire dispatches the workflow with tag as its tag input
func (t *Trigger) Fire(ctx context.Context, tag string) error {
	if tag == "" {
		return fmt.Errorf("empty build tag: %w", domain.ErrTriggerRejected)
	}
	t.printer.Step("Triggering workflow (tag: %s)", tag)

	res := t.api.Dispatch(ctx, map[string]string{t.cfg.TagInput: tag})
	if !res.OK() {
		t.printer.Error("Trigger failed: %s", res.Diagnostic())
		return fmt.Errorf("%s: %w", res.Diagnostic(), domain.ErrTriggerRejected)
	}
	t.printer.Success("Workflow triggered")
	return nil
}

// Confirm polls until a freshly scheduled run shows up or the budget runs out.
// It never returns an error: a missing confirmation is only a warning.
func (t *Trigger) Confirm(ctx context.Context) Confirmation {
	t.printer.Info("Waiting for the run to start (up to %s)...", t.cfg.Budget)

	deadline := t.clock.Now().Add(t.cfg.Budget)
	c := Confirmation{State: StateWaitingForRun}
	for c.State == StateWaitingForRun {
		c = t.step(ctx, c, deadline)
	}

	switch c.State {
	case StateConfirmed:
		t.printer.Success("Run started, ID: %s", c.RunID)
	case StateTimedOut:
		t.printer.Warn("No run appeared within %s, check the workflow status manually", t.cfg.Budget)
	case StateCancelled:
		t.printer.Warn("Stopped waiting for the run")
	}
	return c
}

// step performs one transition out of StateWaitingForRun. Neither the
// query nor the sleep may run past deadline.
func (t *Trigger) step(ctx context.Context, c Confirmation, deadline time.Time) Confirmation {
	remaining := deadline.Sub(t.clock.Now())
	if remaining <= 0 {
		c.State = StateTimedOut
		return c
	}

	c.Polls++
	runs, err := t.poll(ctx, remaining)
	switch {
	case ctx.Err() != nil:
		c.State = StateCancelled
		return c
	case err != nil:
		t.logger.Debug("run query failed, still waiting", "err", err)
	case len(runs) > 0 && runs[0].Status.Active() && runs[0].ID != t.baseline:
		c.State = StateConfirmed
		c.RunID = runs[0].ID
		return c
	}

	wait := t.cfg.PollInterval
	if left := deadline.Sub(t.clock.Now()); left < wait {
		wait = max(left, 0)
	}
	if err := t.sleep(ctx, wait); err != nil {
		c.State = StateCancelled
	}
	return c
}

// poll lists the newest run with the query cut off after remaining
func (t *Trigger) poll(ctx context.Context, remaining time.Duration) ([]domain.WorkflowRun, error) {
	ctx, cancel := context.WithTimeout(ctx, remaining)
	defer cancel()
	return t.api.ListRuns(ctx, ListOptions{Limit: 1})
}

// TriggerBuild fires the workflow and, if confirm is set, waits for the run
func (t *Trigger) TriggerBuild(ctx context.Context, tag string, confirm bool) (TriggerResult, error) {
	if confirm {
		t.MarkBaseline(ctx)
	}
	if err := t.Fire(ctx, tag); err != nil {
		return TriggerResult{Tag: tag}, err
	}

	result := TriggerResult{Tag: tag, State: StateSkipped}
	if !confirm {
		return result, nil
	}
	c := t.Confirm(ctx)
	result.State = c.State
	result.RunID = c.RunID
	return result, nil
}
