// Demo of the agentpulse SDK against an in-process mock fleet.
//
// Usage:
//
//	go run ./example
//
// then open http://localhost:8080.
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

	"github.com/jpalmerr/agentpulse"
	"github.com/jpalmerr/agentpulse/board"
	"github.com/jpalmerr/agentpulse/example/mockagents"
)

const mockAddr = "localhost:9999"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := startMock(ctx, logger); err != nil {
		logger.Error("failed to start mock fleet", "error", err)
		os.Exit(1)
	}

	// a single poller: the smallest way to use the SDK
	h, err := agentpulse.Start(ctx, "http://"+mockAddr+"/agents/flaky", 2*time.Second,
		agentpulse.WithLogger(logger),
		agentpulse.WithTimeout(time.Second),
		agentpulse.WithSnapshotCallback(func(s agentpulse.Snapshot) {
			if s.IsStale {
				logger.Warn("flaky fleet stale", "failures", s.ConsecutiveFailures, "error", s.LastError)
				return
			}
			logger.Info("flaky fleet",
				"busy", s.Count(agentpulse.StateBusy),
				"idle", s.Count(agentpulse.StateIdle),
				"error", s.Count(agentpulse.StateError),
			)
		}),
	)
	if err != nil {
		logger.Error("failed to start poller", "error", err)
		os.Exit(1)
	}
	defer h.Stop()

	// the dashboard: several sources behind one web UI
	steady, _ := board.NewSource("steady", "http://"+mockAddr+"/agents/steady")
	flaky, _ := board.NewSource("flaky", "http://"+mockAddr+"/agents/flaky",
		board.WithInterval(2*time.Second),
		board.WithTimeout(time.Second),
	)

	b, err := board.New(
		board.WithSources(steady, flaky),
		board.WithPollingInterval(5*time.Second),
		board.WithPort(8080),
		board.WithTitle("Demo Agents"),
		board.WithLogger(logger),
	)
	if err != nil {
		logger.Error("failed to create board", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  AgentPulse demo")
	fmt.Println()
	fmt.Println("  Dashboard:  http://localhost:8080")
	fmt.Println("  REST:       http://localhost:8080/api/status")
	fmt.Println("  Sources:    steady (healthy), flaky (30% failures, odd statuses)")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	if err := b.Start(ctx); err != nil {
		logger.Error("board error", "error", err)
		os.Exit(1)
	}
}

// startMock serves two simulated fleets until ctx is cancelled.
func startMock(ctx context.Context, logger *slog.Logger) error {
	steady, err := mockagents.NewFleet(mockagents.Config{Agents: 4}, logger.With("fleet", "steady"))
	if err != nil {
		return err
	}
	flaky, err := mockagents.NewFleet(mockagents.Config{
		Agents:        6,
		FailRate:      0.3,
		MalformedRate: 0.1,
	}, logger.With("fleet", "flaky"))
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/agents/steady", steady)
	mux.Handle("/agents/flaky", flaky)

	srv := &http.Server{Addr: mockAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("mock server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	return nil
}
