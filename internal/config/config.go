package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/hochfrequenz/ghactl/internal/actions"
	"github.com/hochfrequenz/ghactl/internal/domain"
	"github.com/hochfrequenz/ghactl/internal/schedule"
	"github.com/hochfrequenz/ghactl/internal/sync"
)

// Config holds all application configuration
type Config struct {
	General       GeneralConfig       `toml:"general"`
	Repositories  []RepositoryConfig  `toml:"repositories"`
	GitHub        GitHubConfig        `toml:"github"`
	Git           GitConfig           `toml:"git"`
	Timeouts      TimeoutsConfig      `toml:"timeouts"`
	Notifications NotificationsConfig `toml:"notifications"`
	Schedule      []schedule.Entry    `toml:"schedule"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	ProjectRoot  string `toml:"project_root"` // empty means the working directory
	DatabasePath string `toml:"database_path"`
	History      bool   `toml:"history"`
}

// RepositoryConfig is one entry of the ordered repository list.
// Submodules come first, the superproject last.
type RepositoryConfig struct {
	Name      string `toml:"name"`
	Path      string `toml:"path"` // relative to project_root unless absolute
	Submodule bool   `toml:"submodule"`
}

// GitHubConfig identifies the build workflow
type GitHubConfig struct {
	Owner      string `toml:"owner"`
	Repo       string `toml:"repo"`
	Workflow   string `toml:"workflow"`
	TagInput   string `toml:"tag_input"`
	WatchLimit int    `toml:"watch_limit"`
}

// GitConfig holds git behavior settings
type GitConfig struct {
	AutoPull bool `toml:"auto_pull"`
}

// TimeoutsConfig holds per-call budgets
type TimeoutsConfig struct {
	Command       Duration `toml:"command"`
	Fetch         Duration `toml:"fetch"`
	Pull          Duration `toml:"pull"`
	Push          Duration `toml:"push"`
	Watch         Duration `toml:"watch"`
	ConfirmBudget Duration `toml:"confirm_budget"`
	PollInterval  Duration `toml:"poll_interval"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// Duration is a time.Duration written as a string such as "90s" or "10m"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	git := sync.DefaultTimeouts()
	return &Config{
		General: GeneralConfig{
			DatabasePath: filepath.Join(home, ".ghactl", "history.db"),
			History:      true,
		},
		Repositories: []RepositoryConfig{
			{Name: "hbb_common", Path: "libs/hbb_common", Submodule: true},
			{Name: "rs-client", Path: "."},
		},
		GitHub: GitHubConfig{
			Workflow:   "flutter-nightly.yml",
			TagInput:   actions.DefaultTagInput,
			WatchLimit: actions.DefaultWatchLimit,
		},
		Git: GitConfig{
			AutoPull: true,
		},
		Timeouts: TimeoutsConfig{
			Command:       Duration{git.Command},
			Fetch:         Duration{git.Fetch},
			Pull:          Duration{git.Pull},
			Push:          Duration{git.Push},
			Watch:         Duration{2 * time.Hour},
			ConfirmBudget: Duration{actions.DefaultBudget},
			PollInterval:  Duration{actions.DefaultPollInterval},
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	// a configured repository list replaces the default one as a whole
	defaults := cfg.Repositories
	cfg.Repositories = nil
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(cfg.Repositories) == 0 {
		cfg.Repositories = defaults
	}

	// Expand paths
	cfg.General.ProjectRoot = ExpandPath(cfg.General.ProjectRoot)
	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)

	return cfg, nil
}

// Save writes the configuration as TOML
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the configuration for inconsistencies
func (c *Config) Validate() error {
	if c.GitHub.Workflow == "" {
		return fmt.Errorf("github.workflow is required: %w", domain.ErrInvalidConfig)
	}
	if c.GitHub.TagInput == "" {
		return fmt.Errorf("github.tag_input is required: %w", domain.ErrInvalidConfig)
	}
	if (c.GitHub.Owner == "") != (c.GitHub.Repo == "") {
		return fmt.Errorf("github.owner and github.repo must be set together: %w", domain.ErrInvalidConfig)
	}

	for _, d := range []struct {
		name string
		v    Duration
	}{
		{"command", c.Timeouts.Command},
		{"fetch", c.Timeouts.Fetch},
		{"pull", c.Timeouts.Pull},
		{"push", c.Timeouts.Push},
		{"watch", c.Timeouts.Watch},
		{"confirm_budget", c.Timeouts.ConfirmBudget},
		{"poll_interval", c.Timeouts.PollInterval},
	} {
		if d.v.Duration <= 0 {
			return fmt.Errorf("timeouts.%s must be positive: %w", d.name, domain.ErrInvalidConfig)
		}
	}

	for i, r := range c.Repositories {
		if r.Name == "" || r.Path == "" {
			return fmt.Errorf("repositories[%d]: name and path are required: %w", i, domain.ErrInvalidConfig)
		}
	}
	repos, err := c.Targets()
	if err != nil {
		return err
	}
	if err := sync.ValidateOrder(repos); err != nil {
		return err
	}

	for i := range c.Schedule {
		if err := c.Schedule[i].Validate(); err != nil {
			return fmt.Errorf("schedule[%d]: %v: %w", i, err, domain.ErrInvalidConfig)
		}
	}
	return nil
}

// Root returns the absolute project root
func (c *Config) Root() (string, error) {
	root := c.General.ProjectRoot
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		root = wd
	}
	return filepath.Abs(root)
}

// Targets resolves the repository list against the project root
func (c *Config) Targets() ([]domain.RepositoryTarget, error) {
	root, err := c.Root()
	if err != nil {
		return nil, err
	}
	targets := make([]domain.RepositoryTarget, 0, len(c.Repositories))
	for _, r := range c.Repositories {
		path := ExpandPath(r.Path)
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		targets = append(targets, domain.RepositoryTarget{
			Name:      r.Name,
			Path:      filepath.Clean(path),
			Submodule: r.Submodule,
		})
	}
	return targets, nil
}

// GitTimeouts returns the budgets for git calls
func (c *Config) GitTimeouts() sync.Timeouts {
	return sync.Timeouts{
		Command: c.Timeouts.Command.Duration,
		Fetch:   c.Timeouts.Fetch.Duration,
		Pull:    c.Timeouts.Pull.Duration,
		Push:    c.Timeouts.Push.Duration,
	}
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ghactl", "config.toml")
}

// LocalConfigName is the per-project config file searched for upwards from
// the working directory
const LocalConfigName = ".ghactl.toml"

// FindLocalConfig returns the nearest LocalConfigName in the working
// directory or its parents, or "" if there is none
func FindLocalConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, LocalConfigName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadWithLocalFallback loads path if given, else the nearest project-local
// config, else the user config
func LoadWithLocalFallback(path string) (*Config, error) {
	return Load(ResolvePath(path))
}

// ResolvePath returns the file LoadWithLocalFallback reads for path
func ResolvePath(path string) string {
	if path == "" {
		path = FindLocalConfig()
	}
	if path == "" {
		path = DefaultConfigPath()
	}
	return path
}
