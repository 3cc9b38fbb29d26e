// Package schedule runs builds on cron schedules.
package schedule

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/hochfrequenz/ghactl/internal/domain"
)

// Entry is one scheduled build
type Entry struct {
	Name      string `toml:"name"`
	Cron      string `toml:"cron"`
	Message   string `toml:"message"`    // commit message, generated when empty
	TagPrefix string `toml:"tag_prefix"` // prepended to the generated tag
}

// File is the layout of a standalone schedule file
type File struct {
	Entries []Entry `toml:"schedule"`
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseCron parses a five-field cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	return parser.Parse(expr)
}

// Validate checks if the entry is valid
func (e *Entry) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("schedule name is required")
	}
	if e.Cron == "" {
		return fmt.Errorf("cron expression is required")
	}
	if _, err := ParseCron(e.Cron); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// Tag returns the build tag for a run at now
func (e Entry) Tag(now time.Time) string {
	return e.TagPrefix + domain.NewBuildTag(now)
}

// CommitMessage returns the commit message for a run at now
func (e Entry) CommitMessage(now time.Time) string {
	if e.Message != "" {
		return e.Message
	}
	return domain.DefaultCommitMessage(now)
}

// LoadFile reads schedule entries from a TOML file with [[schedule]] tables
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	for i := range f.Entries {
		if err := f.Entries[i].Validate(); err != nil {
			return nil, fmt.Errorf("schedule %d: %w", i, err)
		}
	}
	return f.Entries, nil
}
