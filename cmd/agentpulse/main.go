// Package main is the entry point for the agentpulse CLI.
//
// AgentPulse can be used as a library (SDK) or run as a standalone binary.
// This CLI provides the standalone binary approach.
//
// Usage:
//
//	agentpulse serve -c config.yaml      # Start the dashboard
//	agentpulse validate -c config.yaml   # Validate configuration
//	agentpulse watch http://host/agents  # Watch one endpoint in the terminal
//	agentpulse version                   # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "agentpulse",
	Short: "A live status board for polled agents",
	Long: `AgentPulse polls agent status endpoints and shows who is busy, idle
or failing, either in a web dashboard or directly in the terminal.

Each endpoint must answer GET with a JSON array of agent records:
  [{"name": "builder-1", "status": "busy", "last_task": "compile",
    "last_task_time": "2024-01-01T12:00:00Z", "tasks_completed": 12,
    "success_rate": 0.8}]

Quick start:
  agentpulse watch http://localhost:9999/agents

Or for the web dashboard:
  1. Create a config file (agentpulse.yaml)
  2. Run: agentpulse serve -c agentpulse.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  poll_interval: 5s
  sources:
    - name: build-farm
      url: http://localhost:9999/agents`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this agentpulse binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "agentpulse %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
