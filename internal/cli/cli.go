// Package cli provides the command-line interface for Aegis.
package cli

import (
	"context"

	"github.com/asteroid-belt/aegis/pkg/version"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "aegis",
	Short:        "Security gatekeeper for machine-learning artifacts",
	Long:         `Inspects a model, dataset, or notebook tree for code-execution, data-poisoning, and secret-leakage hazards, and gates deployment on the result.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the CLI with fang enhancements.
func Execute(ctx context.Context) error {
	return fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(version.Short()),
		fang.WithCommit(version.Commit),
	)
}
