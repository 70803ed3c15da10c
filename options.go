package agentpulse

import (
	"errors"
	"log/slog"
	"time"
)

// pollConfig holds mutable state during poller construction.
type pollConfig struct {
	logger    *slog.Logger
	timeout   time.Duration
	headers   map[string]string
	callbacks []func(Snapshot)
}

// Option configures a poller started with [Start].
//
// Option implements the functional options pattern. Options return an
// error if validation fails, which [Start] returns unchanged.
type Option func(*pollConfig) error

// WithLogger sets the [slog.Logger] used for poll outcomes and lifecycle
// events. Defaults to [slog.Default].
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *pollConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithTimeout bounds each poll request.
//
// By default no timeout is applied beyond what the transport enforces, so a
// hung upstream holds the poller in flight and later ticks are skipped
// until it resolves. Zero restores that default.
//
// Returns an error if the duration is negative.
func WithTimeout(d time.Duration) Option {
	return func(cfg *pollConfig) error {
		if d < 0 {
			return errors.New("timeout cannot be negative")
		}
		cfg.timeout = d
		return nil
	}
}

// WithHeaders adds HTTP headers to every poll request.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	h, err := agentpulse.Start(ctx, url, 5*time.Second,
//	    agentpulse.WithHeaders("Authorization", "Bearer token123"),
//	)
func WithHeaders(keyValues ...string) Option {
	return func(cfg *pollConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		if cfg.headers == nil {
			cfg.headers = make(map[string]string, len(keyValues)/2)
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithSnapshotCallback registers a function called after every applied poll.
//
// The callback receives the snapshot that resulted from the poll. Callbacks
// run synchronously on the poll goroutine, in registration order. Once
// [Handle.Stop] has begun no further callback starts, and a callback may
// itself call Stop.
// Because polls never overlap, callbacks never run concurrently with each
// other for the same handle.
//
// Callbacks must be quick: while one runs, the poll is still in flight and
// ticks are skipped. Panics are recovered and logged.
//
// Nil callbacks are silently ignored.
func WithSnapshotCallback(cb func(Snapshot)) Option {
	return func(cfg *pollConfig) error {
		if cb == nil {
			return nil
		}
		cfg.callbacks = append(cfg.callbacks, cb)
		return nil
	}
}
