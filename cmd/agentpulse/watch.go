package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/agentpulse"
	"github.com/jpalmerr/agentpulse/internal/tui"
)

const defaultWatchInterval = 5 * time.Second

// watchCmd polls a single endpoint and renders it in the terminal.
var watchCmd = &cobra.Command{
	Use:   "watch URL",
	Short: "Watch one agents endpoint in the terminal",
	Long: `Poll a single agents endpoint and show a live table in the terminal.

The view refreshes as polls complete. When a poll fails the last good
agents stay on screen, marked STALE, with the error underneath.

Logs would corrupt the terminal view, so they are discarded unless
--log-file is set.

Example:
  agentpulse watch http://localhost:9999/agents
  agentpulse watch https://farm.example/agents --interval 10s --timeout 3s \
    --header "Authorization=Bearer $TOKEN"`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addWatchFlags(watchCmd)
}

func addWatchFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("interval", defaultWatchInterval, "time between polls")
	cmd.Flags().Duration("timeout", 0, "per-request timeout (0 means none)")
	cmd.Flags().StringArrayP("header", "H", nil, "request header as key=value (repeatable)")
	cmd.Flags().String("log-file", "", "write JSON logs to this file")
	cmd.Flags().Bool("no-color", false, "disable colors")
}

// watchOptions are the parsed flags of the watch command.
type watchOptions struct {
	endpoint string
	interval time.Duration
	timeout  time.Duration
	headers  []string
	logFile  string
	noColor  bool
}

func parseWatchOptions(cmd *cobra.Command, args []string) (watchOptions, error) {
	opts := watchOptions{endpoint: args[0]}
	opts.interval, _ = cmd.Flags().GetDuration("interval")
	opts.timeout, _ = cmd.Flags().GetDuration("timeout")
	opts.logFile, _ = cmd.Flags().GetString("log-file")
	opts.noColor, _ = cmd.Flags().GetBool("no-color")

	raw, _ := cmd.Flags().GetStringArray("header")
	headers, err := parseHeaderFlags(raw)
	if err != nil {
		return watchOptions{}, err
	}
	opts.headers = headers

	return opts, nil
}

// parseHeaderFlags turns "key=value" flags into alternating key/value pairs.
func parseHeaderFlags(raw []string) ([]string, error) {
	pairs := make([]string, 0, len(raw)*2)
	for _, h := range raw {
		key, value, ok := strings.Cut(h, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q: expected key=value", h)
		}
		pairs = append(pairs, key, value)
	}
	return pairs, nil
}

// newWatchLogger returns a JSON logger writing to path, or a discarding
// logger when path is empty. The returned cleanup must be called on exit.
func newWatchLogger(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.NewJSONHandler(io.Discard, nil)), func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	return logger, func() { _ = f.Close() }, nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	opts, err := parseWatchOptions(cmd, args)
	if err != nil {
		return err
	}

	logger, cleanup, err := newWatchLogger(opts.logFile)
	if err != nil {
		return err
	}
	defer cleanup()

	h, err := agentpulse.Start(cmd.Context(), opts.endpoint, opts.interval,
		agentpulse.WithLogger(logger),
		agentpulse.WithTimeout(opts.timeout),
		agentpulse.WithHeaders(opts.headers...),
	)
	if err != nil {
		return fmt.Errorf("failed to start poller: %w", err)
	}
	defer h.Stop()

	model := tui.NewModel(h, tui.Options{NoColor: opts.noColor})
	program := tea.NewProgram(model, tea.WithOutput(cmd.OutOrStdout()), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("terminal view: %w", err)
	}

	logger.Info("watch finished", "endpoint", h.Endpoint(), "id", h.ID())
	return nil
}
