// Package commands implements the opsforge CLI.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "opsforge",
		Short: "opsforge - cluster change orchestration",
		Long: `Opsforge applies multi-step infrastructure changes to a managed compute
cluster: importing software images and provisioning missing cluster agent
services. Every run records its intended changes before executing them, so
an interrupted run remains auditable.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/opsforge/config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newPostSetupCommand())
	rootCmd.AddCommand(newImageCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}
