package main

import (
	"context"
	"errors"
	"time"

	"github.com/hochfrequenz/ghactl/internal/actions"
	"github.com/hochfrequenz/ghactl/internal/domain"
	"github.com/hochfrequenz/ghactl/internal/notify"
	"github.com/hochfrequenz/ghactl/internal/sync"
)

// push syncs every configured repository and records the result
func (a *app) push(ctx context.Context, message string, opts sync.Options) (sync.Report, error) {
	a.printer.Header("Commit message: %s", message)
	if a.dryRun {
		a.printer.Warn("Dry run: the commands below are not executed")
	}

	engine := sync.NewEngine(a.git, opts, a.printer, a.logger)
	report := sync.NewCoordinator(engine, a.printer).PushAll(ctx, a.repos, message)

	op := &domain.Operation{Kind: domain.OperationPush, Outcome: summarize(report)}
	for _, res := range report.Results {
		op.Repos = append(op.Repos, domain.RepoOutcome{
			Name:    res.Repo.Name,
			Outcome: res.Outcome.Kind,
			Reason:  res.Outcome.Reason,
		})
	}

	err := report.Err()
	if err != nil {
		op.Detail = err.Error()
	}
	a.record(ctx, op)

	if err != nil {
		a.notify(ctx, notify.Notification{Title: "Push failed", Message: err.Error(), Type: notify.NotifyError})
		return report, err
	}
	a.printer.Success("All repositories are up to date")
	return report, nil
}

// summarize reduces a report to a single outcome word for history
func summarize(r sync.Report) string {
	for _, res := range r.Results {
		if !res.Outcome.Continue() {
			return string(res.Outcome.Kind)
		}
	}
	if r.Err() != nil {
		return string(domain.OutcomeFailed)
	}
	switch {
	case r.Count(domain.OutcomeCommittedAndPushed) > 0:
		return string(domain.OutcomeCommittedAndPushed)
	case r.Count(domain.OutcomeCommitted) > 0:
		return string(domain.OutcomeCommitted)
	default:
		return string(domain.OutcomeNoChanges)
	}
}

// buildRequest describes one build
type buildRequest struct {
	Tag     string
	Message string
	Budget  time.Duration // zero uses the configured confirm budget
}

// build pushes, triggers the workflow and waits for the run to appear
func (a *app) build(ctx context.Context, req buildRequest) (actions.TriggerResult, error) {
	a.printer.Header("Step 1/3: push")
	opts := sync.Options{AutoPull: a.cfg.Git.AutoPull}
	if _, err := a.push(ctx, req.Message, opts); err != nil {
		a.record(ctx, &domain.Operation{Kind: domain.OperationBuild, Tag: req.Tag, Outcome: "push_failed", Detail: err.Error()})
		return actions.TriggerResult{Tag: req.Tag}, err
	}

	a.printer.Header("Step 2/3: tag %s", req.Tag)

	a.printer.Header("Step 3/3: trigger %s", a.cfg.GitHub.Workflow)
	budget := req.Budget
	if budget <= 0 {
		budget = a.cfg.Timeouts.ConfirmBudget.Duration
	}
	trigger := actions.NewTrigger(a.client, actions.TriggerConfig{
		TagInput:     a.cfg.GitHub.TagInput,
		PollInterval: a.cfg.Timeouts.PollInterval.Duration,
		Budget:       budget,
	}, a.printer, a.logger)

	// a simulated dispatch never produces a run to wait for
	res, err := trigger.TriggerBuild(ctx, req.Tag, !a.dryRun)
	op := &domain.Operation{Kind: domain.OperationBuild, Tag: req.Tag, RunID: res.RunID, Outcome: string(res.State)}
	if err != nil {
		op.Outcome = "rejected"
		op.Detail = err.Error()
		a.record(ctx, op)
		a.notify(ctx, notify.Notification{Title: "Build trigger failed", Message: err.Error(), Type: notify.NotifyError, Tag: req.Tag})
		return res, err
	}
	a.record(ctx, op)

	a.printer.Success("Build triggered, tag: %s", req.Tag)
	switch res.State {
	case actions.StateConfirmed:
		a.printer.Info("Run details: %s", a.client.ViewCommand(res.RunID))
		a.notify(ctx, notify.Notification{Title: "Build started", Message: a.cfg.GitHub.Workflow, Type: notify.NotifySuccess, Tag: req.Tag, RunID: res.RunID})
	case actions.StateTimedOut:
		a.notify(ctx, notify.Notification{Title: "Build triggered, run not confirmed", Message: a.cfg.GitHub.Workflow, Type: notify.NotifyWarning, Tag: req.Tag})
	case actions.StateCancelled:
		return res, ctx.Err()
	}
	a.printer.Dim("Monitor the build with: ghactl watch")
	return res, nil
}

// ignoreCanceled maps a Ctrl-C shutdown to a clean exit
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
