package actions

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hochfrequenz/ghactl/internal/domain"
)

// DefaultWatchLimit is how many runs watch lists without -n
const DefaultWatchLimit = 5

// ReporterAPI is the part of the gh client a Reporter needs
type ReporterAPI interface {
	RunLister
	Watch(ctx context.Context, runID string) domain.CommandResult
	ViewFailedLog(ctx context.Context, runID string) domain.CommandResult
}

// Reporter reads run status and failure logs
type Reporter struct {
	api ReporterAPI
}

// NewReporter creates a Reporter
func NewReporter(api ReporterAPI) *Reporter {
	return &Reporter{api: api}
}

// ListRecent returns up to limit runs, newest first
func (r *Reporter) ListRecent(ctx context.Context, limit int) ([]domain.WorkflowRun, error) {
	if limit <= 0 {
		limit = DefaultWatchLimit
	}
	return r.api.ListRuns(ctx, ListOptions{Limit: limit})
}

// Follow streams a run until it finishes
func (r *Reporter) Follow(ctx context.Context, runID string) error {
	if res := r.api.Watch(ctx, runID); !res.OK() {
		return liveError("gh run watch", res)
	}
	return nil
}

// LatestFailure returns the newest failed run, or nil when there is none
func (r *Reporter) LatestFailure(ctx context.Context) (*domain.WorkflowRun, error) {
	runs, err := r.api.ListRuns(ctx, ListOptions{Status: string(domain.ConclusionFailure), Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// StreamFailureLog prints the logs of the failed steps of run
func (r *Reporter) StreamFailureLog(ctx context.Context, run domain.WorkflowRun) error {
	if res := r.api.ViewFailedLog(ctx, run.ID); !res.OK() {
		return liveError("gh run view", res)
	}
	return nil
}

func liveError(what string, res domain.CommandResult) error {
	if diag := res.Diagnostic(); diag != "" {
		return fmt.Errorf("%s: %s: %w", what, diag, domain.ErrQueryFailed)
	}
	return fmt.Errorf("%s exited with %d: %w", what, res.ExitCode, domain.ErrQueryFailed)
}

// RenderRuns writes runs as an aligned table
func RenderRuns(w io.Writer, runs []domain.WorkflowRun, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATE\tTITLE\tCREATED")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", run.ID, run.State(), truncate(run.Title, 50), Age(run.CreatedAt, now))
	}
	return tw.Flush()
}

// Age renders t relative to now, e.g. "3 minutes ago"
func Age(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
