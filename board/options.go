package board

import (
	"errors"
	"log/slog"
	"time"
)

// boardConfig holds mutable state during Board construction.
type boardConfig struct {
	title           string
	sources         []Source
	pollingInterval time.Duration
	port            int
	logger          *slog.Logger
	callbacks       []func(SourceStatus)
}

// Option configures a [Board] during construction.
//
// Built-in options: [WithSource], [WithSources], [WithPollingInterval],
// [WithPort], [WithLogger], [WithTitle], [WithStatusCallback].
type Option func(*boardConfig) error

// WithSource adds a single [Source] to the board.
//
// Can be called multiple times. At least one source must be configured
// for [New] to succeed.
func WithSource(s Source) Option {
	return func(cfg *boardConfig) error {
		cfg.sources = append(cfg.sources, s)
		return nil
	}
}

// WithSources adds several sources at once. Equivalent to calling
// [WithSource] for each.
func WithSources(sources ...Source) Option {
	return func(cfg *boardConfig) error {
		cfg.sources = append(cfg.sources, sources...)
		return nil
	}
}

// WithPollingInterval sets the interval used by sources without their own.
//
// Defaults to 5 seconds. Returns an error if d is not positive.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *boardConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard server.
//
// Defaults to 8080. Returns an error if the port is outside 1-65535.
func WithPort(port int) Option {
	return func(cfg *boardConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the board and its pollers.
//
// If not specified, [slog.Default] is used. Returns an error if the logger
// is nil.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
//	b, err := board.New(
//	    board.WithSource(src),
//	    board.WithLogger(logger),
//	)
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *boardConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithStatusCallback registers a function called whenever a source's
// snapshot changes, after the dashboard store has been updated.
//
// Callbacks run on the polling goroutine of the source that changed and
// must not block. Panics are recovered and logged. Multiple callbacks
// execute in registration order; nil callbacks are ignored.
//
// Example:
//
//	board.WithStatusCallback(func(s board.SourceStatus) {
//	    if n := s.Snapshot.Count(agentpulse.StateError); n > 0 {
//	        log.Printf("%s: %d agents in error", s.Source, n)
//	    }
//	})
func WithStatusCallback(cb func(SourceStatus)) Option {
	return func(cfg *boardConfig) error {
		if cb == nil {
			return nil
		}
		cfg.callbacks = append(cfg.callbacks, cb)
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and
// header. Defaults to "AgentPulse".
func WithTitle(title string) Option {
	return func(cfg *boardConfig) error {
		cfg.title = title
		return nil
	}
}
