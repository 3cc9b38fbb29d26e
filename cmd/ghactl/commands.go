package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/hochfrequenz/ghactl/internal/actions"
	"github.com/hochfrequenz/ghactl/internal/config"
	"github.com/hochfrequenz/ghactl/internal/console"
	"github.com/hochfrequenz/ghactl/internal/domain"
	"github.com/hochfrequenz/ghactl/internal/history"
	"github.com/hochfrequenz/ghactl/internal/schedule"
	"github.com/hochfrequenz/ghactl/internal/sync"
	"github.com/hochfrequenz/ghactl/tui"
)

var (
	pushMessage    string
	pushCommitOnly bool
	pushNoPull     bool

	buildTag     string
	buildMessage string
	buildWait    time.Duration

	watchFollow bool
	watchLimit  int

	historyLimit  int
	historyFormat string

	scheduleOnce bool
	scheduleFile string

	dashboardInterval time.Duration

	initForce bool
)

func init() {
	// push command
	pushCmd := &cobra.Command{
		Use:   "push",
		Short: "Commit and push the submodules, then the superproject",
		Args:  cobra.NoArgs,
		RunE:  runPush,
	}
	pushCmd.Flags().StringVarP(&pushMessage, "message", "m", "", "commit message (default: build: auto commit <timestamp>)")
	pushCmd.Flags().BoolVar(&pushCommitOnly, "commit-only", false, "commit but do not push")
	pushCmd.Flags().BoolVar(&pushNoPull, "no-pull", false, "do not rebase onto the remote before pushing")
	rootCmd.AddCommand(pushCmd)

	// build command
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Push, then trigger the build workflow",
		Args:  cobra.NoArgs,
		RunE:  runBuild,
	}
	buildCmd.Flags().StringVarP(&buildTag, "tag", "t", "", "release tag (default: YYYY-MM-DD-HHMM)")
	buildCmd.Flags().StringVarP(&buildMessage, "message", "m", "", "commit message")
	buildCmd.Flags().DurationVar(&buildWait, "wait", 0, "how long to wait for the run to start (default from config)")
	rootCmd.AddCommand(buildCmd)

	// watch command
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "List recent runs of the build workflow",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
	watchCmd.Flags().BoolVarP(&watchFollow, "follow", "f", false, "stream the newest run until it finishes")
	watchCmd.Flags().IntVarP(&watchLimit, "limit", "n", 0, "number of runs to list (default from config)")
	rootCmd.AddCommand(watchCmd)

	// fail command
	failCmd := &cobra.Command{
		Use:   "fail",
		Short: "Show the logs of the most recent failed run",
		Args:  cobra.NoArgs,
		RunE:  runFail,
	}
	rootCmd.AddCommand(failCmd)

	// history command
	historyCmd := &cobra.Command{
		Use:   "history [id]",
		Short: "List recorded pushes and builds, or show one by ID",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of operations to list")
	historyCmd.Flags().StringVar(&historyFormat, "format", "table", "output format: table or yaml")
	rootCmd.AddCommand(historyCmd)

	// schedule command
	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run builds on their cron schedules",
		Args:  cobra.NoArgs,
		RunE:  runSchedule,
	}
	scheduleCmd.Flags().BoolVar(&scheduleOnce, "once", false, "run every scheduled build once now and exit")
	scheduleCmd.Flags().StringVar(&scheduleFile, "file", "", "additional TOML file with [[schedule]] entries")
	rootCmd.AddCommand(scheduleCmd)

	// dashboard command
	dashboardCmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Launch the live run dashboard",
		Args:  cobra.NoArgs,
		RunE:  runDashboard,
	}
	dashboardCmd.Flags().DurationVar(&dashboardInterval, "interval", tui.DefaultInterval, "refresh interval")
	rootCmd.AddCommand(dashboardCmd)

	// init command
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default " + config.LocalConfigName + " (or --config file)",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.LocalConfigName
	}
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}
	if err := config.Default().Save(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	console.New(os.Stdout).Success("Wrote %s", path)
	return nil
}

func runPush(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.checker().WarnTooling(ctx); err != nil {
		a.logger.Debug("gh is not ready, pushing anyway", "err", err)
	}
	if err := a.checkRepositories(ctx); err != nil {
		return err
	}

	message := pushMessage
	if message == "" {
		message = domain.DefaultCommitMessage(time.Now())
	}
	opts := sync.Options{
		AutoPull:   a.cfg.Git.AutoPull && !pushNoPull,
		CommitOnly: pushCommitOnly,
	}
	_, err = a.push(ctx, message, opts)
	return err
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if cmd.Flags().Changed("tag") && strings.TrimSpace(buildTag) == "" {
		return fmt.Errorf("--tag must not be empty")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.checkTooling(ctx); err != nil {
		return err
	}
	if err := a.checkRepositories(ctx); err != nil {
		return err
	}

	now := time.Now()
	req := buildRequest{Tag: buildTag, Message: buildMessage, Budget: buildWait}
	if req.Tag == "" {
		req.Tag = domain.NewBuildTag(now)
	}
	if req.Message == "" {
		req.Message = domain.DefaultCommitMessage(now)
	}

	_, err = a.build(ctx, req)
	return ignoreCanceled(err)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.checkTooling(ctx); err != nil {
		return err
	}

	limit := watchLimit
	if limit <= 0 {
		limit = a.cfg.GitHub.WatchLimit
	}

	a.printer.Header("Recent runs of %s", a.client.Workflow())
	reporter := a.reporter()
	runs, err := reporter.ListRecent(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		a.printer.Warn("No runs found")
		return nil
	}

	a.printer.Rule(80)
	if err := actions.RenderRuns(a.printer.Writer(), runs, time.Now()); err != nil {
		return err
	}
	a.printer.Rule(80)

	if !watchFollow {
		return nil
	}
	a.printer.Header("Following run %s", runs[0].ID)
	return ignoreCanceled(reporter.Follow(ctx, runs[0].ID))
}

func runFail(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.checkTooling(ctx); err != nil {
		return err
	}

	a.printer.Header("Looking for the most recent failed run")
	reporter := a.reporter()
	run, err := reporter.LatestFailure(ctx)
	if err != nil {
		return err
	}
	if run == nil {
		a.printer.Success("No failed runs found")
		return nil
	}

	a.printer.Error("Failed run:")
	a.printer.Info("  Run ID:  %s", run.ID)
	a.printer.Info("  Title:   %s", run.Title)
	a.printer.Info("  Created: %s (%s)", run.CreatedAt.Local().Format(time.DateTime), humanize.Time(run.CreatedAt))
	a.printer.Warn("Failed step logs (may be long):")
	a.printer.Rule(80)
	return reporter.StreamFailureLog(ctx, *run)
}

// historyRecord is the YAML shape of an operation
type historyRecord struct {
	ID        string              `yaml:"id"`
	Kind      string              `yaml:"kind"`
	Tag       string              `yaml:"tag,omitempty"`
	RunID     string              `yaml:"run_id,omitempty"`
	Outcome   string              `yaml:"outcome"`
	Detail    string              `yaml:"detail,omitempty"`
	CreatedAt time.Time           `yaml:"created_at"`
	Repos     []historyRepoRecord `yaml:"repositories,omitempty"`
}

type historyRepoRecord struct {
	Name    string `yaml:"name"`
	Outcome string `yaml:"outcome"`
	Reason  string `yaml:"reason,omitempty"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyFormat != "table" && historyFormat != "yaml" {
		return fmt.Errorf("unknown format %q, want table or yaml", historyFormat)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.openStore()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		op, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if historyFormat == "yaml" {
			return writeHistoryYAML(a.printer.Writer(), []domain.Operation{*op})
		}
		return writeOperation(a.printer.Writer(), *op)
	}

	ops, err := store.List(cmd.Context(), history.ListOptions{Limit: historyLimit})
	if err != nil {
		return err
	}

	if historyFormat == "yaml" {
		return writeHistoryYAML(a.printer.Writer(), ops)
	}
	if len(ops) == 0 {
		a.printer.Warn("No recorded operations")
		return nil
	}
	return writeHistoryTable(a.printer.Writer(), ops)
}

func writeHistoryTable(w io.Writer, ops []domain.Operation) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tTAG\tRUN\tOUTCOME\tWHEN")
	for _, op := range ops {
		id := op.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			id, op.Kind, orDash(op.Tag), orDash(op.RunID), op.Outcome, humanize.Time(op.CreatedAt))
	}
	return tw.Flush()
}

func writeOperation(w io.Writer, op domain.Operation) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", op.ID)
	fmt.Fprintf(tw, "Kind:\t%s\n", op.Kind)
	fmt.Fprintf(tw, "Tag:\t%s\n", orDash(op.Tag))
	fmt.Fprintf(tw, "Run:\t%s\n", orDash(op.RunID))
	fmt.Fprintf(tw, "Outcome:\t%s\n", op.Outcome)
	if op.Detail != "" {
		fmt.Fprintf(tw, "Detail:\t%s\n", op.Detail)
	}
	fmt.Fprintf(tw, "Created:\t%s (%s)\n", op.CreatedAt.Local().Format(time.DateTime), humanize.Time(op.CreatedAt))
	for _, r := range op.Repos {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", r.Name, r.Outcome, r.Reason)
	}
	return tw.Flush()
}

func writeHistoryYAML(w io.Writer, ops []domain.Operation) error {
	records := make([]historyRecord, 0, len(ops))
	for _, op := range ops {
		rec := historyRecord{
			ID:        op.ID,
			Kind:      string(op.Kind),
			Tag:       op.Tag,
			RunID:     op.RunID,
			Outcome:   op.Outcome,
			Detail:    op.Detail,
			CreatedAt: op.CreatedAt,
		}
		for _, r := range op.Repos {
			rec.Repos = append(rec.Repos, historyRepoRecord{Name: r.Name, Outcome: string(r.Outcome), Reason: r.Reason})
		}
		records = append(records, rec)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return err
	}
	return enc.Close()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// scheduleEntries combines the configured entries with the --file entries
func scheduleEntries(configured []schedule.Entry) ([]schedule.Entry, error) {
	entries := append([]schedule.Entry(nil), configured...)
	if scheduleFile == "" {
		return entries, nil
	}
	extra, err := schedule.LoadFile(scheduleFile)
	if err != nil {
		return nil, err
	}
	return append(entries, extra...), nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := scheduleEntries(a.cfg.Schedule)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no [[schedule]] entries configured: %w", domain.ErrInvalidConfig)
	}

	if err := a.checkTooling(ctx); err != nil {
		return err
	}
	if err := a.checkRepositories(ctx); err != nil {
		return err
	}

	sched, err := schedule.NewScheduler(entries, a.logger)
	if err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrInvalidConfig)
	}

	run := func(ctx context.Context, e schedule.Entry, at time.Time) error {
		a.printer.Banner("Scheduled build: "+e.Name, at.Format(time.DateTime))
		_, err := a.build(ctx, buildRequest{Tag: e.Tag(at), Message: e.CommitMessage(at)})
		return err
	}

	if scheduleOnce {
		return ignoreCanceled(sched.RunAll(ctx, run))
	}

	for _, e := range sched.Entries() {
		a.printer.Info("%-20s %-15s next: %s", e.Name, e.Cron, sched.NextRun(e.Name).Format(time.DateTime))
	}
	a.printer.Dim("Waiting for scheduled builds, press Ctrl-C to stop")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Start(ctx, time.Minute, run)
	})

	cfgFile := config.ResolvePath(configPath)
	files := []string{cfgFile}
	if scheduleFile != "" {
		files = append(files, scheduleFile)
	}
	watcher, err := schedule.NewWatcher(files, func() ([]schedule.Entry, error) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		return scheduleEntries(cfg.Schedule)
	}, sched, a.logger)
	if err != nil {
		// schedules still run, edits just need a restart
		a.logger.Warn("cannot watch schedule files", "err", err)
	} else {
		g.Go(func() error {
			return watcher.Run(ctx)
		})
	}

	return ignoreCanceled(g.Wait())
}

func runDashboard(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.checkTooling(ctx); err != nil {
		return err
	}

	a.quiet()

	reporter := a.reporter()
	cfg := tui.ModelConfig{
		Context:  ctx,
		Workflow: a.client.Workflow(),
		Interval: dashboardInterval,
		FetchRuns: func(ctx context.Context) ([]domain.WorkflowRun, error) {
			return reporter.ListRecent(ctx, 2*a.cfg.GitHub.WatchLimit)
		},
	}
	if a.cfg.General.History {
		store, err := a.openStore()
		if err != nil {
			return err
		}
		cfg.FetchHistory = func(ctx context.Context) ([]domain.Operation, error) {
			return store.List(ctx, history.ListOptions{Limit: 20})
		}
	}

	p := tea.NewProgram(tui.NewModel(cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return ignoreCanceled(err)
	}
	return nil
}
