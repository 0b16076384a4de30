// Package main provides the CLI entry point for gridmind-go.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gridmind/gridmind-go/cmd/gridmind/commands"
)

var (
	version = "1.0.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gridmind",
	Short: "GridMind - Continuous learning loop for a Connect Four policy",
	Long: `GridMind runs the continuous learning loop for a Connect Four policy
model.

It provides:
  - Prioritized experience replay with pattern-focused sampling
  - Adaptive learning-rate scheduling
  - Stability-gated model promotion with automatic rollback
  - A SQLite-backed model version registry`,
	Version: version,
}

func init() {
	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.VersionsCmd)
	rootCmd.AddCommand(commands.RollbackCmd)
	rootCmd.AddCommand(commands.StatusCmd)
}
