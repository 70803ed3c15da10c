package board

import (
	"errors"
	"time"
)

// sourceConfig holds mutable state during source construction.
type sourceConfig struct {
	headers  map[string]string
	timeout  time.Duration
	interval time.Duration
}

// SourceOption configures a [Source] during construction.
//
// Built-in options: [WithHeaders], [WithTimeout], [WithInterval].
type SourceOption func(*sourceConfig) error

// WithHeaders adds HTTP headers to every poll of this source, typically
// for authentication.
//
// Accepts variadic key-value pairs. Returns an error if an odd number of
// arguments is provided.
func WithHeaders(keyValues ...string) SourceOption {
	return func(cfg *sourceConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithTimeout sets the HTTP request timeout for this source.
//
// A poll that exceeds it fails with a network error and the source turns
// stale. Defaults to 10 seconds. Returns an error if d is not positive.
func WithTimeout(d time.Duration) SourceOption {
	return func(cfg *sourceConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithInterval sets a polling interval for this source that overrides the
// board-wide one.
//
// The interval must be between 1 second and 1 hour. Ticks that fire while
// a poll is still running are skipped, so a slow source is never polled
// concurrently with itself.
//
// Example:
//
//	critical, _ := board.NewSource("prod", url,
//	    board.WithInterval(2*time.Second),
//	)
func WithInterval(d time.Duration) SourceOption {
	return func(cfg *sourceConfig) error {
		if d < time.Second {
			return errors.New("interval must be at least 1 second")
		}
		if d > time.Hour {
			return errors.New("interval must not exceed 1 hour")
		}
		cfg.interval = d
		return nil
	}
}
