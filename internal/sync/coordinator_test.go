package sync

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hochfrequenz/ghactl/internal/console"
	"github.com/hochfrequenz/ghactl/internal/domain"
	"github.com/hochfrequenz/ghactl/internal/runner"
)

type recordingSyncer struct {
	outcomes map[string]domain.SyncOutcome
	synced   []string
}

func (s *recordingSyncer) Sync(_ context.Context, repo domain.RepositoryTarget, _ string) domain.SyncOutcome {
	s.synced = append(s.synced, repo.Name)
	if o, ok := s.outcomes[repo.Name]; ok {
		return o
	}
	return domain.SyncOutcome{Kind: domain.OutcomeCommittedAndPushed}
}

var (
	submodule    = domain.RepositoryTarget{Name: "hbb_common", Path: "/src/rs-client/libs/hbb_common", Submodule: true}
	superproject = domain.RepositoryTarget{Name: "rs-client", Path: "/src/rs-client"}
)

func TestCoordinator_StopsAtFirstFailure(t *testing.T) {
	tests := []struct {
		name    string
		outcome domain.SyncOutcome
		wantErr error
	}{
		{"failed", domain.Failed("commit error", "hook"), domain.ErrSyncFailed},
		{"conflict", domain.Conflict("push rejected", "rejected"), domain.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncer := &recordingSyncer{outcomes: map[string]domain.SyncOutcome{"hbb_common": tt.outcome}}
			report := NewCoordinator(syncer, nil).PushAll(context.Background(),
				[]domain.RepositoryTarget{submodule, superproject}, "msg")

			if report.OK() {
				t.Fatal("report should not be OK")
			}
			if !errors.Is(report.Err(), tt.wantErr) {
				t.Errorf("Err() = %v, want %v", report.Err(), tt.wantErr)
			}
			if len(syncer.synced) != 1 || syncer.synced[0] != "hbb_common" {
				t.Errorf("synced = %v, superproject must not be attempted", syncer.synced)
			}
		})
	}
}

func TestCoordinator_ContinuesOnNoChanges(t *testing.T) {
	syncer := &recordingSyncer{outcomes: map[string]domain.SyncOutcome{
		"hbb_common": domain.NoChanges(),
		"rs-client":  domain.NoChanges(),
	}}
	var out bytes.Buffer
	report := NewCoordinator(syncer, console.New(&out)).PushAll(context.Background(),
		[]domain.RepositoryTarget{submodule, superproject}, "msg")

	if !report.OK() {
		t.Fatalf("Err() = %v", report.Err())
	}
	if report.Count(domain.OutcomeNoChanges) != 2 {
		t.Errorf("NoChanges count = %d, want 2", report.Count(domain.OutcomeNoChanges))
	}
	if strings.Join(syncer.synced, ",") != "hbb_common,rs-client" {
		t.Errorf("order = %v, want submodule first", syncer.synced)
	}
	if !strings.Contains(out.String(), "Repository: hbb_common") {
		t.Error("expected a banner per repository")
	}
}

func TestCoordinator_RejectsSuperprojectFirst(t *testing.T) {
	syncer := &recordingSyncer{}
	report := NewCoordinator(syncer, nil).PushAll(context.Background(),
		[]domain.RepositoryTarget{superproject, submodule}, "msg")

	if !errors.Is(report.Err(), domain.ErrInvalidConfig) {
		t.Errorf("Err() = %v, want ErrInvalidConfig", report.Err())
	}
	if len(syncer.synced) != 0 {
		t.Error("nothing should be synced with an invalid order")
	}
}

func TestValidateOrder(t *testing.T) {
	third := domain.RepositoryTarget{Name: "proto", Path: "libs/proto", Submodule: true}

	tests := []struct {
		name    string
		repos   []domain.RepositoryTarget
		wantErr bool
	}{
		{"submodule then superproject", []domain.RepositoryTarget{submodule, superproject}, false},
		{"two submodules", []domain.RepositoryTarget{submodule, third, superproject}, false},
		{"superproject only", []domain.RepositoryTarget{superproject}, false},
		{"empty", nil, true},
		{"superproject first", []domain.RepositoryTarget{superproject, submodule}, true},
		{"no superproject", []domain.RepositoryTarget{submodule, third}, true},
		{"two superprojects", []domain.RepositoryTarget{superproject, superproject}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOrder(tt.repos)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOrder() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// Dirty submodule, clean remote: both repositories are committed and pushed
// because the superproject picks up the new submodule pointer.
func TestPushAll_DirtySubmoduleScenario(t *testing.T) {
	f := fakeGit(script{
		"git status":   dirty(),
		"git rev-list": {Stdout: "0"},
	})
	engine := newTestEngine(f, Options{AutoPull: true})

	report := NewCoordinator(engine, nil).PushAll(context.Background(),
		[]domain.RepositoryTarget{submodule, superproject}, "msg")

	if !report.OK() {
		t.Fatalf("Err() = %v", report.Err())
	}
	if report.Count(domain.OutcomeCommittedAndPushed) != 2 {
		t.Errorf("pushed = %d, want 2", report.Count(domain.OutcomeCommittedAndPushed))
	}

	var pushDirs []string
	for _, cmd := range f.Commands() {
		if cmd.Args[0] == "push" {
			pushDirs = append(pushDirs, cmd.Dir)
		}
	}
	if strings.Join(pushDirs, ",") != submodule.Path+","+superproject.Path {
		t.Errorf("push order = %v", pushDirs)
	}
}

func TestPushAll_RejectedSubmoduleScenario(t *testing.T) {
	f := &runner.Fake{Respond: func(cmd runner.Command) domain.CommandResult {
		switch {
		case cmd.Args[0] == "status":
			return dirty()
		case cmd.Args[0] == "push" && cmd.Dir == submodule.Path:
			return domain.CommandResult{ExitCode: 1, Stderr: "! [rejected] main -> main (non-fast-forward)"}
		}
		return domain.CommandResult{}
	}}

	report := NewCoordinator(newTestEngine(f, Options{AutoPull: true}), nil).PushAll(context.Background(),
		[]domain.RepositoryTarget{submodule, superproject}, "msg")

	if !errors.Is(report.Err(), domain.ErrConflict) {
		t.Fatalf("Err() = %v, want ErrConflict", report.Err())
	}
	for _, cmd := range f.Commands() {
		if cmd.Dir == superproject.Path {
			t.Errorf("superproject touched: %s", cmd.String())
		}
	}
}
