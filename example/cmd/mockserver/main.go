// Standalone mock agents server for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver --fail-rate 0.2 --malformed-rate 0.1
//
// Then in another terminal:
//
//	go run ./cmd/agentpulse watch http://localhost:9999/agents
//	go run ./cmd/agentpulse serve -c example/config.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/agentpulse/example/mockagents"
)

const shutdownTimeout = 5 * time.Second

var rootCmd = &cobra.Command{
	Use:   "mockserver",
	Short: "Serve a simulated agents endpoint on /agents",
	RunE:  run,
}

func init() {
	rootCmd.Flags().IntP("port", "p", 9999, "port to listen on")
	rootCmd.Flags().Int("agents", 5, "number of agents to report")
	rootCmd.Flags().Float64("fail-rate", 0, "share of requests (0..1) that fail")
	rootCmd.Flags().Float64("malformed-rate", 0, "share of records (0..1) with odd status values")
	rootCmd.Flags().Int64("seed", 0, "random seed (0 uses the clock)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	port, _ := cmd.Flags().GetInt("port")
	agents, _ := cmd.Flags().GetInt("agents")
	failRate, _ := cmd.Flags().GetFloat64("fail-rate")
	malformedRate, _ := cmd.Flags().GetFloat64("malformed-rate")
	seed, _ := cmd.Flags().GetInt64("seed")

	fleet, err := mockagents.NewFleet(mockagents.Config{
		Agents:        agents,
		FailRate:      failRate,
		MalformedRate: malformedRate,
		Seed:          seed,
	}, logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/agents", fleet)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Mock agents server on http://localhost:%d/agents\n", port)
	fmt.Println("Agents cycle through: idle → busy → error")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
