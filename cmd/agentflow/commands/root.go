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
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "agentflow",
		Short: "AgentFlow - Agent Instruction Execution Engine",
		Long: `AgentFlow is an instruction execution engine for agent workflows.

Features:
  - Composable instructions (sequential, parallel, conditional, iterative)
  - Declarative workflow definitions executed by typed agents
  - HTTP API for synchronous and asynchronous workflow execution
  - SQLite-backed run history and event audit trail
  - Rego policy enforcement on execution contexts
  - Structured logging, Prometheus metrics, and OpenTelemetry tracing`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newServeCommand(version))
	rootCmd.AddCommand(newRunCommand(version))
	rootCmd.AddCommand(newVersionCommand(version, commit, buildDate))

	return rootCmd
}
