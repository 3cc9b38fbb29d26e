package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hochfrequenz/ghactl/internal/domain"
)

func TestExecRunner_CapturesOutput(t *testing.T) {
	r := New(false, nil, nil)

	res := r.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo hello; echo oops >&2"},
	})

	if res.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0", res.ExitCode)
	}
	if res.Stdout != "hello" {
		t.Errorf("Stdout = %q, want hello", res.Stdout)
	}
	if res.Stderr != "oops" {
		t.Errorf("Stderr = %q, want oops", res.Stderr)
	}
	if res.Simulated {
		t.Error("real execution should not be marked simulated")
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	r := New(false, nil, nil)

	res := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "exit 3"}})
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
}

func TestExecRunner_UsesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	r := New(false, nil, nil)

	res := r.Run(context.Background(), Command{Name: "pwd", Dir: dir})
	if res.ExitCode != 0 {
		t.Fatalf("pwd failed: %s", res.Stderr)
	}

	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(res.Stdout)
	if got != want {
		t.Errorf("pwd = %q, want %q", got, want)
	}
}

func TestExecRunner_Timeout(t *testing.T) {
	r := New(false, nil, nil)

	start := time.Now()
	res := r.Run(context.Background(), Command{
		Name:    "sleep",
		Args:    []string{"5"},
		Timeout: 100 * time.Millisecond,
	})

	if res.ExitCode != domain.InternalFailure {
		t.Errorf("ExitCode = %d, want %d", res.ExitCode, domain.InternalFailure)
	}
	if res.Stderr != "command timed out after 100ms" {
		t.Errorf("Stderr = %q", res.Stderr)
	}
	if time.Since(start) > 3*time.Second {
		t.Error("timeout was not enforced")
	}
}

// A grandchild holding the output pipes open must not outlive the timeout.
func TestExecRunner_TimeoutKillsGrandchildren(t *testing.T) {
	r := New(false, nil, nil)

	start := time.Now()
	res := r.Run(context.Background(), Command{
		Name:    "sh",
		Args:    []string{"-c", "sleep 4; echo done"},
		Timeout: 100 * time.Millisecond,
	})
	elapsed := time.Since(start)

	if res.ExitCode != domain.InternalFailure {
		t.Errorf("ExitCode = %d, want %d", res.ExitCode, domain.InternalFailure)
	}
	if res.Stdout != "" {
		t.Errorf("Stdout = %q, the grandchild should have been killed", res.Stdout)
	}
	if elapsed > WaitDelay+time.Second {
		t.Errorf("Run returned after %s, want about 100ms", elapsed)
	}
}

func TestExecRunner_SpawnError(t *testing.T) {
	r := New(false, nil, nil)

	res := r.Run(context.Background(), Command{Name: "ghactl-definitely-not-installed"})
	if res.ExitCode != domain.InternalFailure {
		t.Errorf("ExitCode = %d, want -1", res.ExitCode)
	}
	if res.Stderr == "" {
		t.Error("spawn failure should describe the error")
	}
}

func TestExecRunner_EmptyCommand(t *testing.T) {
	r := New(false, nil, nil)

	res := r.Run(context.Background(), Command{})
	if res.ExitCode != domain.InternalFailure || res.Stderr != "empty command" {
		t.Errorf("got %+v", res)
	}
}

func TestExecRunner_DryRunHasNoSideEffects(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")

	var announced []string
	r := New(true, func(line string) { announced = append(announced, line) }, nil)

	res := r.Run(context.Background(), Command{Name: "touch", Args: []string{marker}})
	live := r.RunLive(context.Background(), Command{Name: "touch", Args: []string{marker}})

	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Fatal("dry-run executed the command")
	}
	for _, got := range []domain.CommandResult{res, live} {
		if got.ExitCode != 0 || !got.Simulated || got.Stdout != SimulatedOutput {
			t.Errorf("simulated result = %+v", got)
		}
	}
	if len(announced) != 2 || !strings.HasPrefix(announced[0], "touch ") {
		t.Errorf("announced = %v", announced)
	}
}

func TestExecRunner_RunLiveStreams(t *testing.T) {
	var out bytes.Buffer
	r := New(false, nil, nil)
	r.Stdout = &out

	res := r.RunLive(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo streamed"}})
	if res.ExitCode != 0 {
		t.Fatalf("ExitCode = %d", res.ExitCode)
	}
	if res.Stdout != "" {
		t.Error("live mode should not capture output")
	}
	if strings.TrimSpace(out.String()) != "streamed" {
		t.Errorf("streamed output = %q", out.String())
	}
}

func TestCommand_String(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{Command{Name: "git", Args: []string{"add", "."}}, "git add ."},
		{Command{Name: "git", Args: []string{"commit", "-m", "build: auto commit"}}, `git commit -m "build: auto commit"`},
		{Command{Name: "gh", Args: []string{"run", "list", "-L", "1"}}, "gh run list -L 1"},
	}

	for _, tt := range tests {
		if got := tt.cmd.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestFake_RecordsCalls(t *testing.T) {
	f := &Fake{Respond: func(cmd Command) domain.CommandResult {
		if cmd.Name == "gh" {
			return domain.CommandResult{ExitCode: 1}
		}
		return domain.CommandResult{}
	}}

	f.Run(context.Background(), Command{Name: "git", Args: []string{"status"}})
	res := f.RunLive(context.Background(), Command{Name: "gh", Args: []string{"run", "watch"}})

	if res.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", res.ExitCode)
	}
	if f.Count("git ") != 1 || f.Count("gh ") != 1 {
		t.Errorf("calls = %v", f.Calls())
	}
	if f.LiveCount() != 1 {
		t.Errorf("LiveCount() = %d, want 1", f.LiveCount())
	}
}
