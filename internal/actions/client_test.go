package actions

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/hochfrequenz/ghactl/internal/domain"
	"github.com/hochfrequenz/ghactl/internal/runner"
)

const twoRuns = `[
  {"databaseId": 9876543210, "status": "in_progress", "conclusion": "", "displayTitle": "nightly 2024-05-01-0930", "createdAt": "2024-05-01T09:30:12Z"},
  {"databaseId": 9876543100, "status": "completed", "conclusion": "failure", "displayTitle": "nightly 2024-04-30-0930", "createdAt": "2024-04-30T09:30:05Z"}
]`

func newTestClient(f *runner.Fake) *Client {
	return NewClient(f, ClientConfig{
		Owner:        "rustdesk",
		Repo:         "rs-client",
		Workflow:     "flutter-nightly.yml",
		Dir:          "/src/rs-client",
		QueryTimeout: time.Minute,
		LiveTimeout:  time.Hour,
	})
}

func TestClient_ListRuns(t *testing.T) {
	f := &runner.Fake{Respond: func(runner.Command) domain.CommandResult {
		return domain.CommandResult{Stdout: twoRuns}
	}}

	runs, err := newTestClient(f).ListRuns(context.Background(), ListOptions{Limit: 5})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}

	got := runs[0]
	if got.ID != "9876543210" || got.Status != domain.RunInProgress || got.Title != "nightly 2024-05-01-0930" {
		t.Errorf("runs[0] = %+v", got)
	}
	if want := time.Date(2024, 5, 1, 9, 30, 12, 0, time.UTC); !got.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %s, want %s", got.CreatedAt, want)
	}
	if !runs[1].Failed() {
		t.Error("runs[1] should be failed")
	}

	want := []string{"gh run list -R rustdesk/rs-client -w flutter-nightly.yml -L 5 --json " + runFields}
	if !slices.Equal(f.Calls(), want) {
		t.Fatalf("calls = %v, want %v", f.Calls(), want)
	}
	if cmd := f.Commands()[0]; cmd.Dir != "/src/rs-client" || cmd.Timeout != time.Minute {
		t.Errorf("Dir = %q, Timeout = %s", cmd.Dir, cmd.Timeout)
	}
}

func TestClient_ListRunsStatusFilter(t *testing.T) {
	f := &runner.Fake{}
	c := NewClient(f, ClientConfig{Workflow: "flutter-nightly.yml"})

	runs, err := c.ListRuns(context.Background(), ListOptions{Status: "failure"})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("runs = %v, want none", runs)
	}

	// no owner/repo configured: gh infers the repository, limit falls back to 1
	want := []string{"gh run list -w flutter-nightly.yml -s failure -L 1 --json " + runFields}
	if !slices.Equal(f.Calls(), want) {
		t.Errorf("calls = %v, want %v", f.Calls(), want)
	}
}

func TestClient_ListRunsErrors(t *testing.T) {
	tests := []struct {
		name   string
		result domain.CommandResult
	}{
		{"non-zero exit", domain.CommandResult{ExitCode: 1, Stderr: "HTTP 404: Not Found"}},
		{"timeout", domain.CommandResult{ExitCode: domain.InternalFailure, Stderr: "command timed out after 5m0s"}},
		{"garbage output", domain.CommandResult{Stdout: "no runs found"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &runner.Fake{Respond: func(runner.Command) domain.CommandResult { return tt.result }}
			_, err := newTestClient(f).ListRuns(context.Background(), ListOptions{Limit: 1})
			if !errors.Is(err, domain.ErrQueryFailed) {
				t.Errorf("err = %v, want ErrQueryFailed", err)
			}
		})
	}
}

func TestClient_SimulatedListingIsEmpty(t *testing.T) {
	f := &runner.Fake{Respond: func(runner.Command) domain.CommandResult {
		return domain.CommandResult{Stdout: runner.SimulatedOutput, Simulated: true}
	}}

	runs, err := newTestClient(f).ListRuns(context.Background(), ListOptions{Limit: 5})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("runs = %v, want none", runs)
	}
}

func TestClient_DispatchSortsInputs(t *testing.T) {
	f := &runner.Fake{}
	newTestClient(f).Dispatch(context.Background(), map[string]string{
		"upload-tag": "2024-05-01-0930",
		"channel":    "nightly",
	})

	want := []string{"gh workflow run flutter-nightly.yml -R rustdesk/rs-client -f channel=nightly -f upload-tag=2024-05-01-0930"}
	if !slices.Equal(f.Calls(), want) {
		t.Errorf("calls = %v, want %v", f.Calls(), want)
	}
	if f.LiveCount() != 0 {
		t.Errorf("LiveCount() = %d, want 0", f.LiveCount())
	}
}

func TestClient_LiveCommands(t *testing.T) {
	f := &runner.Fake{}
	c := newTestClient(f)

	c.Watch(context.Background(), "42")
	c.ViewFailedLog(context.Background(), "42")

	want := []string{
		"gh run watch 42 -R rustdesk/rs-client",
		"gh run view 42 --log-failed -R rustdesk/rs-client",
	}
	if !slices.Equal(f.Calls(), want) {
		t.Errorf("calls = %v, want %v", f.Calls(), want)
	}
	if f.LiveCount() != 2 {
		t.Errorf("LiveCount() = %d, want 2", f.LiveCount())
	}
	if got := f.Commands()[0].Timeout; got != time.Hour {
		t.Errorf("Timeout = %s, want 1h", got)
	}
}

func TestClient_ViewCommand(t *testing.T) {
	c := NewClient(&runner.Fake{}, ClientConfig{})
	if got := c.ViewCommand("42"); got != "gh run view 42" {
		t.Errorf("ViewCommand() = %q", got)
	}
}

func TestClient_Workflow(t *testing.T) {
	if got := newTestClient(&runner.Fake{}).Workflow(); got != "flutter-nightly.yml" {
		t.Errorf("Workflow() = %q", got)
	}
}
