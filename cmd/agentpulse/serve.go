package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/agentpulse/board"
	"github.com/jpalmerr/agentpulse/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a JSON logger for CLI use.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// serveCmd starts the AgentPulse dashboard server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start the AgentPulse dashboard server.

The server will:
  - Load configuration from the specified YAML file
  - Start one poller per configured source
  - Serve the dashboard, REST and SSE endpoints on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  agentpulse serve -c config.yaml
  agentpulse serve --config /etc/agentpulse/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded", "sources", len(cfg.Sources))
	logger.Info("starting server",
		"port", cfg.Port,
		"poll_interval", cfg.PollInterval.Duration().String(),
	)

	opts, err := config.BoardOptions(cfg)
	if err != nil {
		return fmt.Errorf("failed to build sources: %w", err)
	}
	opts = append(opts, board.WithLogger(logger))

	b, err := board.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create board: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- b.Start(ctx)
	}()

	return awaitBoard(ctx, done, shutdownTimeout, logger)
}

// awaitBoard waits for a running board to return. Once ctx is cancelled
// the board gets grace to drain; after that it is abandoned and the
// process exits anyway.
func awaitBoard(ctx context.Context, done <-chan error, grace time.Duration, logger *slog.Logger) error {
	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		logger.Info("shutdown requested", "grace", grace.String())
		select {
		case err = <-done:
		case <-time.After(grace):
			logger.Warn("shutdown timed out",
				"timeout", grace.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}

	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
