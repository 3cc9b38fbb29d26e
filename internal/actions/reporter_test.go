package actions

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hochfrequenz/ghactl/internal/domain"
	"github.com/hochfrequenz/ghactl/internal/runner"
)

const oneFailure = `[{"databaseId": 77, "status": "completed", "conclusion": "failure", "displayTitle": "nightly", "createdAt": "2024-05-01T09:30:00Z"}]`

func TestReporter_ListRecentDefaultsLimit(t *testing.T) {
	f := &runner.Fake{Respond: func(runner.Command) domain.CommandResult {
		return domain.CommandResult{Stdout: twoRuns}
	}}

	runs, err := NewReporter(newTestClient(f)).ListRecent(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("got %d runs, want 2", len(runs))
	}
	if !strings.Contains(f.Calls()[0], "-L 5") {
		t.Errorf("call = %q, want the default limit", f.Calls()[0])
	}
}

func TestReporter_LatestFailure(t *testing.T) {
	f := &runner.Fake{Respond: func(runner.Command) domain.CommandResult {
		return domain.CommandResult{Stdout: oneFailure}
	}}

	run, err := NewReporter(newTestClient(f)).LatestFailure(context.Background())
	if err != nil {
		t.Fatalf("LatestFailure: %v", err)
	}
	if run == nil || run.ID != "77" {
		t.Fatalf("run = %+v, want 77", run)
	}
	if !strings.Contains(f.Calls()[0], "-s failure -L 1") {
		t.Errorf("call = %q", f.Calls()[0])
	}
}

func TestReporter_NoFailures(t *testing.T) {
	f := &runner.Fake{Respond: func(runner.Command) domain.CommandResult {
		return domain.CommandResult{Stdout: "[]"}
	}}

	run, err := NewReporter(newTestClient(f)).LatestFailure(context.Background())
	if err != nil {
		t.Fatalf("LatestFailure: %v", err)
	}
	if run != nil {
		t.Errorf("run = %+v, want nil", run)
	}
}

// Scenario: the newest failed run is found and its failed-step logs are streamed.
func TestReporter_FailScenario(t *testing.T) {
	f := &runner.Fake{Respond: func(cmd runner.Command) domain.CommandResult {
		if cmd.Args[0] == "run" && cmd.Args[1] == "list" {
			return domain.CommandResult{Stdout: oneFailure}
		}
		return domain.CommandResult{}
	}}
	r := NewReporter(newTestClient(f))

	run, err := r.LatestFailure(context.Background())
	if err != nil || run == nil {
		t.Fatalf("LatestFailure: %+v, %v", run, err)
	}
	if err := r.StreamFailureLog(context.Background(), *run); err != nil {
		t.Fatalf("StreamFailureLog: %v", err)
	}

	calls := f.Calls()
	if len(calls) != 2 {
		t.Fatalf("calls = %v, want 2", calls)
	}
	if calls[1] != "gh run view 77 --log-failed -R rustdesk/rs-client" {
		t.Errorf("calls[1] = %q", calls[1])
	}
	if f.LiveCount() != 1 {
		t.Errorf("LiveCount() = %d, want 1", f.LiveCount())
	}
}

func TestReporter_LiveFailure(t *testing.T) {
	f := &runner.Fake{Respond: func(runner.Command) domain.CommandResult {
		return domain.CommandResult{ExitCode: 1}
	}}

	err := NewReporter(newTestClient(f)).Follow(context.Background(), "42")
	if !errors.Is(err, domain.ErrQueryFailed) {
		t.Fatalf("err = %v, want ErrQueryFailed", err)
	}
	if !strings.Contains(err.Error(), "exited with 1") {
		t.Errorf("err = %q", err)
	}
}

func TestRenderRuns(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	runs := []domain.WorkflowRun{
		{ID: "2", Status: domain.RunInProgress, Title: "nightly", CreatedAt: now.Add(-3 * time.Minute)},
		{ID: "1", Status: domain.RunCompleted, Conclusion: domain.ConclusionFailure, Title: strings.Repeat("x", 80), CreatedAt: now.Add(-2 * time.Hour)},
	}

	var buf bytes.Buffer
	if err := RenderRuns(&buf, runs, now); err != nil {
		t.Fatalf("RenderRuns: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "ID") {
		t.Errorf("header = %q", lines[0])
	}
	for _, want := range []string{"in_progress", "3 minutes ago"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("line %q missing %q", lines[1], want)
		}
	}
	for _, want := range []string{"failure", "...", "2 hours ago"} {
		if !strings.Contains(lines[2], want) {
			t.Errorf("line %q missing %q", lines[2], want)
		}
	}
}

func TestAge_ZeroTime(t *testing.T) {
	if got := Age(time.Time{}, time.Now()); got != "-" {
		t.Errorf("Age() = %q, want -", got)
	}
}
