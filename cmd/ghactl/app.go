package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hochfrequenz/ghactl/internal/actions"
	"github.com/hochfrequenz/ghactl/internal/config"
	"github.com/hochfrequenz/ghactl/internal/console"
	"github.com/hochfrequenz/ghactl/internal/domain"
	"github.com/hochfrequenz/ghactl/internal/history"
	"github.com/hochfrequenz/ghactl/internal/notify"
	"github.com/hochfrequenz/ghactl/internal/preflight"
	"github.com/hochfrequenz/ghactl/internal/runner"
	"github.com/hochfrequenz/ghactl/internal/sync"
)

// app bundles the collaborators shared by all commands
type app struct {
	cfg      *config.Config
	dryRun   bool
	printer  *console.Printer
	logger   *slog.Logger
	runner   *runner.ExecRunner
	git      *sync.Git
	client   *actions.Client
	notifier notify.Notifier
	repos    []domain.RepositoryTarget
	store    *history.Store
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithLocalFallback(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	repos, err := cfg.Targets()
	if err != nil {
		return nil, err
	}

	logger := newLogger()
	slog.SetDefault(logger)
	printer := console.New(os.Stdout)

	r := runner.New(dryRun, func(line string) {
		printer.Dim("[dry-run] would run: %s", line)
	}, logger)

	superproject := repos[len(repos)-1]
	client := actions.NewClient(r, actions.ClientConfig{
		Owner:        cfg.GitHub.Owner,
		Repo:         cfg.GitHub.Repo,
		Workflow:     cfg.GitHub.Workflow,
		Dir:          superproject.Path,
		QueryTimeout: cfg.Timeouts.Command.Duration,
		LiveTimeout:  cfg.Timeouts.Watch.Duration,
	})

	return &app{
		cfg:     cfg,
		dryRun:  dryRun,
		printer: printer,
		logger:  logger,
		runner:  r,
		git:     sync.NewGit(r, cfg.GitTimeouts()),
		client:  client,
		notifier: notify.New(notify.Options{
			Desktop:      cfg.Notifications.Desktop,
			SlackWebhook: cfg.Notifications.SlackWebhook,
			DryRun:       dryRun,
		}, r),
		repos: repos,
	}, nil
}

// Close releases the history store, if it was opened
func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// quiet drops the dry-run previews of commands that own the terminal, such
// as the dashboard's alt screen
func (a *app) quiet() {
	a.runner.Announce = nil
}

func (a *app) checker() *preflight.Checker {
	return preflight.New(a.client, a.git, a.printer)
}

func (a *app) checkTooling(ctx context.Context) error {
	return a.checker().CheckTooling(ctx)
}

func (a *app) checkRepositories(ctx context.Context) error {
	return a.checker().CheckRepositories(ctx, a.repos)
}

func (a *app) openStore() (*history.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := history.New(a.cfg.General.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	a.store = store
	return store, nil
}

// record stores op unless history is disabled or nothing really ran
func (a *app) record(ctx context.Context, op *domain.Operation) {
	if a.dryRun || !a.cfg.General.History {
		return
	}
	store, err := a.openStore()
	if err == nil {
		err = store.Record(ctx, op)
	}
	if err != nil {
		a.logger.Warn("could not record operation", "kind", op.Kind, "err", err)
	}
}

func (a *app) notify(ctx context.Context, n notify.Notification) {
	if err := a.notifier.Send(ctx, n); err != nil {
		a.logger.Warn("notification failed", "err", err)
	}
}

func (a *app) reporter() *actions.Reporter {
	return actions.NewReporter(a.client)
}
