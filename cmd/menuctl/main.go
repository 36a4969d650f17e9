// Package main implements menuctl, the operator CLI for the menu store:
// ad-hoc lookups, schema migration, fixture import and R2 snapshots.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/garyellow/komida-linebot-go/internal/config"
	"github.com/garyellow/komida-linebot-go/internal/logger"
)

var logLevel string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "menuctl",
		Short:         "Manage the komida menu store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logger.NewWithWriter(logLevel, os.Stderr).Logger)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newQueryCmd(),
		newMigrateCmd(),
		newImportCmd(),
		newSnapshotCmd(),
	)
	return root
}

// loadConfig reads the environment without requiring LINE credentials.
func loadConfig() (*config.Config, error) {
	return config.LoadForMode(config.CLIMode)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
