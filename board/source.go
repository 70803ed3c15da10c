package board

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"time"
)

const defaultSourceTimeout = 10 * time.Second

// Source is an agents endpoint shown on the board.
//
// Source is immutable after creation via [NewSource]. Getters return copies
// of mutable data, so a Source can be shared freely.
type Source struct {
	name     string
	url      string
	headers  map[string]string
	timeout  time.Duration
	interval time.Duration
}

// Name returns the source's display name. Names are unique within a board.
func (s Source) Name() string {
	return s.name
}

// URL returns the agents endpoint that is polled.
func (s Source) URL() string {
	return s.url
}

// Headers returns a copy of the HTTP headers sent with every poll.
// Returns nil if no headers are set.
func (s Source) Headers() map[string]string {
	return copyMap(s.headers)
}

// Timeout returns the per-request timeout. Defaults to 10 seconds.
func (s Source) Timeout() time.Duration {
	return s.timeout
}

// Interval returns the source's own polling interval, or 0 when the
// board-wide interval set by [WithPollingInterval] applies.
func (s Source) Interval() time.Duration {
	return s.interval
}

// NewSource creates a [Source] with the given name, URL, and options.
//
// rawURL must be an absolute http or https URL.
//
// Example:
//
//	src, err := board.NewSource("build-farm", "http://farm.internal/agents",
//	    board.WithInterval(10*time.Second),
//	    board.WithHeaders("Authorization", "Bearer "+token),
//	)
func NewSource(name, rawURL string, opts ...SourceOption) (Source, error) {
	if name == "" {
		return Source{}, errors.New("source name cannot be empty")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Source{}, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Source{}, errors.New("URL must have an http:// or https:// scheme")
	}
	if parsed.Host == "" {
		return Source{}, errors.New("URL must have a host")
	}

	cfg := &sourceConfig{
		headers: make(map[string]string),
		timeout: defaultSourceTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Source{}, err
		}
	}

	return Source{
		name:     name,
		url:      rawURL,
		headers:  cfg.headers,
		timeout:  cfg.timeout,
		interval: cfg.interval,
	}, nil
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}
