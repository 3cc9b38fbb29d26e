// Package preflight verifies the environment before any command touches a
// repository or the remote workflow.
package preflight

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hochfrequenz/ghactl/internal/console"
	"github.com/hochfrequenz/ghactl/internal/domain"
)

// Tooling reports on the gh installation
type Tooling interface {
	Version(ctx context.Context) domain.CommandResult
	AuthStatus(ctx context.Context) domain.CommandResult
}

// SubmoduleInitializer checks out missing submodules
type SubmoduleInitializer interface {
	SubmoduleInit(ctx context.Context, dir string) domain.CommandResult
}

// Checker runs the pre-flight checks
type Checker struct {
	tools   Tooling
	git     SubmoduleInitializer
	printer *console.Printer
}

// New creates a Checker. printer may be nil.
func New(tools Tooling, git SubmoduleInitializer, printer *console.Printer) *Checker {
	if printer == nil {
		printer = console.New(io.Discard)
	}
	return &Checker{tools: tools, git: git, printer: printer}
}

// CheckTooling verifies that gh is installed and logged in
func (c *Checker) CheckTooling(ctx context.Context) error {
	headline, hint, err := c.tooling(ctx)
	if err != nil {
		c.printer.Error("%s", headline)
		c.printer.Plain("%s", hint)
	}
	return err
}

// WarnTooling runs the same checks as CheckTooling for commands that work
// without gh. Problems are printed as warnings; the error is returned for
// logging only.
func (c *Checker) WarnTooling(ctx context.Context) error {
	headline, hint, err := c.tooling(ctx)
	if err != nil {
		c.printer.Warn("%s, build and watch will not work", headline)
		c.printer.Plain("%s", hint)
	}
	return err
}

func (c *Checker) tooling(ctx context.Context) (headline, hint string, err error) {
	if res := c.tools.Version(ctx); !res.OK() {
		return "gh CLI not found", "Install it from https://cli.github.com/",
			fmt.Errorf("%s: %w", res.Diagnostic(), domain.ErrToolMissing)
	}
	if res := c.tools.AuthStatus(ctx); !res.OK() {
		return "gh CLI is not logged in", "Run: gh auth login",
			fmt.Errorf("%s: %w", res.Diagnostic(), domain.ErrUnauthenticated)
	}
	return "", "", nil
}

// CheckRepositories verifies that every repository directory exists. A
// missing submodule triggers one `git submodule update --init` in the
// superproject; the result is not re-verified.
func (c *Checker) CheckRepositories(ctx context.Context, repos []domain.RepositoryTarget) error {
	var super *domain.RepositoryTarget
	for i := range repos {
		if !repos[i].Submodule {
			super = &repos[i]
		}
	}
	if super == nil {
		return fmt.Errorf("no superproject configured: %w", domain.ErrInvalidConfig)
	}
	if !isDir(super.Path) {
		c.printer.Error("Project directory not found: %s", super.Path)
		return fmt.Errorf("%s: %w", super.Path, domain.ErrRepositoryMissing)
	}

	for _, repo := range repos {
		if !repo.Submodule || isDir(repo.Path) {
			continue
		}
		c.printer.Warn("Submodule %s not found, initializing...", repo.Name)
		res := c.git.SubmoduleInit(ctx, super.Path)
		if !res.OK() {
			c.printer.Error("Submodule initialization failed")
			return fmt.Errorf("%s: git submodule update exited with %d: %w", repo.Path, res.ExitCode, domain.ErrRepositoryMissing)
		}
		c.printer.Success("Submodules initialized")
		return nil
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
