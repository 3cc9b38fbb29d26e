package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hochfrequenz/ghactl/internal/domain"
	"github.com/hochfrequenz/ghactl/internal/schedule"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Default()

	if cfg.GitHub.Workflow != "flutter-nightly.yml" {
		t.Errorf("Workflow = %q, want flutter-nightly.yml", cfg.GitHub.Workflow)
	}
	if cfg.GitHub.TagInput != "upload-tag" {
		t.Errorf("TagInput = %q, want upload-tag", cfg.GitHub.TagInput)
	}
	if !cfg.Git.AutoPull {
		t.Error("auto_pull should be enabled by default")
	}
	if cfg.Timeouts.Push.Duration != 10*time.Minute {
		t.Errorf("Timeouts.Push = %s, want 10m", cfg.Timeouts.Push)
	}
	if cfg.Timeouts.ConfirmBudget.Duration != 30*time.Second {
		t.Errorf("Timeouts.ConfirmBudget = %s, want 30s", cfg.Timeouts.ConfirmBudget)
	}
	if len(cfg.Repositories) != 2 || !cfg.Repositories[0].Submodule || cfg.Repositories[1].Path != "." {
		t.Errorf("Repositories = %+v, want submodule then superproject", cfg.Repositories)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GitHub.WatchLimit != 5 {
		t.Errorf("WatchLimit = %d, want 5", cfg.GitHub.WatchLimit)
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := writeTempConfig(t, `
[general]
project_root = "/test/project"

[[repositories]]
name = "proto"
path = "libs/proto"
submodule = true

[[repositories]]
name = "app"
path = "."

[github]
owner = "acme"
repo = "app"
workflow = "release.yml"

[git]
auto_pull = false

[timeouts]
push = "15m"
poll_interval = "500ms"

[[schedule]]
name = "nightly"
cron = "0 22 * * *"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.General.ProjectRoot != "/test/project" {
		t.Errorf("ProjectRoot = %q, want /test/project", cfg.General.ProjectRoot)
	}
	if len(cfg.Repositories) != 2 || cfg.Repositories[0].Name != "proto" {
		t.Errorf("Repositories = %+v, configured list should replace the defaults", cfg.Repositories)
	}
	if cfg.GitHub.Workflow != "release.yml" || cfg.GitHub.TagInput != "upload-tag" {
		t.Errorf("GitHub = %+v", cfg.GitHub)
	}
	if cfg.Git.AutoPull {
		t.Error("auto_pull should be false")
	}
	if cfg.Timeouts.Push.Duration != 15*time.Minute {
		t.Errorf("Timeouts.Push = %s, want 15m", cfg.Timeouts.Push)
	}
	if cfg.Timeouts.PollInterval.Duration != 500*time.Millisecond {
		t.Errorf("Timeouts.PollInterval = %s, want 500ms", cfg.Timeouts.PollInterval)
	}
	if cfg.Timeouts.Fetch.Duration != 60*time.Second {
		t.Errorf("Timeouts.Fetch = %s, unset values keep their default", cfg.Timeouts.Fetch)
	}
	if len(cfg.Schedule) != 1 || cfg.Schedule[0].Cron != "0 22 * * *" {
		t.Errorf("Schedule = %+v", cfg.Schedule)
	}

	targets, err := cfg.Targets()
	if err != nil {
		t.Fatal(err)
	}
	if targets[0].Path != "/test/project/libs/proto" || targets[1].Path != "/test/project" {
		t.Errorf("Targets = %+v", targets)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeTempConfig(t, `
[timeouts]
push = "ten minutes"
`)
	if _, err := Load(path); err == nil {
		t.Error("invalid duration should error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"superproject first", func(c *Config) {
			c.Repositories[0], c.Repositories[1] = c.Repositories[1], c.Repositories[0]
		}},
		{"no repositories", func(c *Config) { c.Repositories = nil }},
		{"missing path", func(c *Config) { c.Repositories[0].Path = "" }},
		{"empty workflow", func(c *Config) { c.GitHub.Workflow = "" }},
		{"owner without repo", func(c *Config) { c.GitHub.Owner = "acme" }},
		{"zero budget", func(c *Config) { c.Timeouts.ConfirmBudget = Duration{} }},
		{"bad cron", func(c *Config) {
			c.Schedule = append(c.Schedule, schedule.Entry{Name: "nightly", Cron: "every night"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.General.ProjectRoot = t.TempDir()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.GitHub.Owner = "acme"
	cfg.GitHub.Repo = "app"
	cfg.Timeouts.Watch = Duration{45 * time.Minute}

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.GitHub.Owner != "acme" || loaded.Timeouts.Watch.Duration != 45*time.Minute {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		input string
		want  string
	}{
		{"~/test", filepath.Join(home, "test")},
		{"/absolute/path", "/absolute/path"},
		{"relative", "relative"},
	}

	for _, tt := range tests {
		got := ExpandPath(tt.input)
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFindLocalConfig(t *testing.T) {
	// Create a temp directory structure
	root := t.TempDir()
	subdir := filepath.Join(root, "sub", "dir")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatal(err)
	}

	// Create local config in root
	localConfig := filepath.Join(root, LocalConfigName)
	if err := os.WriteFile(localConfig, []byte("[general]\nproject_root = \"/local\""), 0644); err != nil {
		t.Fatal(err)
	}

	t.Chdir(subdir)

	// Should find config in parent
	found := FindLocalConfig()
	if found != localConfig {
		t.Errorf("FindLocalConfig() = %q, want %q", found, localConfig)
	}
}

func TestLoadWithLocalFallback_ExplicitPath(t *testing.T) {
	explicitPath := writeTempConfig(t, `[general]
project_root = "/explicit"
`)

	cfg, err := LoadWithLocalFallback(explicitPath)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.General.ProjectRoot != "/explicit" {
		t.Errorf("ProjectRoot = %q, want /explicit", cfg.General.ProjectRoot)
	}
}

func TestLoadWithLocalFallback_LocalConfig(t *testing.T) {
	root := t.TempDir()
	localConfig := filepath.Join(root, LocalConfigName)

	content := `[general]
project_root = "/from-local"
`
	if err := os.WriteFile(localConfig, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Chdir(root)

	cfg, err := LoadWithLocalFallback("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.General.ProjectRoot != "/from-local" {
		t.Errorf("ProjectRoot = %q, want /from-local", cfg.General.ProjectRoot)
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
