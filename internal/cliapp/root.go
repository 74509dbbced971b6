// Package cliapp is zace's command-line driver: a thin cobra layer that
// wires internal/loop, internal/config, internal/approval, internal/gate,
// internal/lsp, and internal/llmtransport/anthropic together: one file per
// subcommand, a shared rootCmd with persistent flags, each subcommand's
// init() registering itself via rootCmd.AddCommand.
package cliapp

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is set by goreleaser via ldflags.
	Version = "dev"

	workspaceDir string
	noColor      bool
	verbose      bool
	modelFlag    string
)

var rootCmd = &cobra.Command{
	Use:     "zace",
	Short:   "Task-driven coding agent runtime",
	Version: Version,
}

// Execute runs the CLI, returning the first error encountered.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&workspaceDir, "workspace", "", "workspace directory (default: current directory)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose diagnostic logging")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "override the model configured for the planner")
	rootCmd.SetVersionTemplate(fmt.Sprintf("zace version %s\n", Version))
}

func exitError(msg string) {
	fmt.Fprintln(os.Stderr, "Error:", msg)
	os.Exit(1)
}

func resolveWorkspace() (string, error) {
	if workspaceDir != "" {
		return workspaceDir, nil
	}
	return os.Getwd()
}
