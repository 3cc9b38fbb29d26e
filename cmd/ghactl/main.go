package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hochfrequenz/ghactl/internal/console"
)

var (
	configPath string
	dryRun     bool
	verbose    bool
	rootCmd    = &cobra.Command{
		Use:   "ghactl",
		Short: "ghactl - push coupled repositories and drive GitHub Actions builds",
		Long: `ghactl commits and pushes a superproject together with its submodules,
triggers the build workflow on GitHub Actions and reports on its runs.
Every git and gh invocation can be previewed with --dry-run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "print commands instead of running them")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		console.New(os.Stderr).Error("Error: %v", err)
		os.Exit(1)
	}
}
