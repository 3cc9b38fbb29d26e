//go:build integration

package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// requireGit skips the test when git is not installed and isolates it from
// the user's git configuration
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_AUTHOR_NAME", "ghactl")
	t.Setenv("GIT_AUTHOR_EMAIL", "ghactl@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "ghactl")
	t.Setenv("GIT_COMMITTER_EMAIL", "ghactl@example.com")
}

// git runs git in dir and returns its trimmed output
func git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// NewRemote creates a bare repository on branch main with one commit
func NewRemote(t *testing.T, name string) string {
	t.Helper()
	root := t.TempDir()
	remote := filepath.Join(root, name+".git")
	git(t, root, "init", "-q", "--bare", "-b", "main", remote)

	seed := filepath.Join(root, "seed")
	git(t, root, "clone", "-q", remote, seed)
	git(t, seed, "symbolic-ref", "HEAD", "refs/heads/main")
	WriteFile(t, seed, "README.md", name+"\n")
	git(t, seed, "add", ".")
	git(t, seed, "commit", "-q", "-m", "initial commit")
	git(t, seed, "push", "-q", "-u", "origin", "main")
	return remote
}

// Clone checks out remote into a fresh working tree
func Clone(t *testing.T, remote string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "work")
	git(t, filepath.Dir(dir), "clone", "-q", remote, dir)
	return dir
}

// WriteFile writes content to name inside dir
func WriteFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// PushChange commits and pushes a file from a second clone, moving the remote ahead
func PushChange(t *testing.T, remote, name, content, message string) {
	t.Helper()
	other := Clone(t, remote)
	WriteFile(t, other, name, content)
	git(t, other, "add", ".")
	git(t, other, "commit", "-q", "-m", message)
	git(t, other, "push", "-q")
}

// RemoteSubjects lists the commit subjects on the remote's main branch, newest first
func RemoteSubjects(t *testing.T, remote string) []string {
	t.Helper()
	out := git(t, remote, "log", "--format=%s", "main")
	return strings.Split(out, "\n")
}
