package config

import (
	"sort"

	"github.com/jpalmerr/agentpulse/board"
)

// BuildSources converts parsed configuration into board sources, in file order.
func BuildSources(cfg *Config) ([]board.Source, error) {
	sources := make([]board.Source, 0, len(cfg.Sources))

	for _, sc := range cfg.Sources {
		src, err := buildSource(sc)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	return sources, nil
}

// BoardOptions returns the board options for everything in cfg, sources included.
func BoardOptions(cfg *Config) ([]board.Option, error) {
	sources, err := BuildSources(cfg)
	if err != nil {
		return nil, err
	}

	return []board.Option{
		board.WithSources(sources...),
		board.WithTitle(cfg.Title),
		board.WithPort(cfg.Port),
		board.WithPollingInterval(cfg.PollInterval.Duration()),
	}, nil
}

// buildSource converts a single SourceConfig to a board Source.
func buildSource(sc SourceConfig) (board.Source, error) {
	var opts []board.SourceOption

	if sc.Timeout != 0 {
		opts = append(opts, board.WithTimeout(sc.Timeout.Duration()))
	}

	if len(sc.Headers) > 0 {
		opts = append(opts, board.WithHeaders(mapToKeyValuePairs(sc.Headers)...))
	}

	if sc.Interval != 0 {
		opts = append(opts, board.WithInterval(sc.Interval.Duration()))
	}

	return board.NewSource(sc.Name, sc.URL, opts...)
}

// mapToKeyValuePairs converts a map to a key-sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
