// Package config provides YAML configuration for the agentpulse binary.
//
// Example configuration:
//
//	title: Build Agents
//	port: 8080
//	poll_interval: 5s
//
//	sources:
//	  - name: build-farm
//	    url: ${AGENTS_URL:-http://localhost:9999/agents}
//	    interval: 10s
//	    timeout: 3s
//	    headers:
//	      Authorization: Bearer ${AGENTS_TOKEN}
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort         = 8080
	defaultPollInterval = 5 * time.Second

	// minPollInterval keeps a typo like "5ms" from hammering an agents endpoint.
	minPollInterval = 1 * time.Second
	maxPollInterval = 1 * time.Hour
)

// Config is the root configuration structure.
//
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "AgentPulse" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// PollInterval applies to sources without their own interval.
	// Accepts duration strings like "5s" or "1m". Defaults to 5s.
	PollInterval Duration `yaml:"poll_interval"`

	// Sources lists the agents endpoints to poll.
	Sources []SourceConfig `yaml:"sources"`
}

// SourceConfig defines one agents endpoint.
type SourceConfig struct {
	// Name is the display name and must be unique.
	Name string `yaml:"name"`

	// URL is the agents endpoint.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// Interval overrides poll_interval for this source. Must be 1s..1h.
	Interval Duration `yaml:"interval"`

	// Timeout bounds each request. Defaults to 10s; at least 1s when set.
	Timeout Duration `yaml:"timeout"`

	// Headers are sent with every poll. Values support env substitution.
	Headers map[string]string `yaml:"headers"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default}.
// Group 1: variable name
// Group 2: the ":-default" part, non-empty when a default was given
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
// An unset variable without a default is an error.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		varName := submatches[1]
		hasDefault := submatches[2] != ""

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return submatches[3]
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in url and header values. Defaults
// are applied for Port (8080) and PollInterval (5s).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(defaultPollInterval)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}

	if len(c.Sources) == 0 {
		return errors.New("at least one source must be defined")
	}

	seen := make(map[string]int, len(c.Sources))
	for i := range c.Sources {
		src := &c.Sources[i]

		if src.Name == "" {
			return fmt.Errorf("sources[%d]: name is required", i)
		}
		if first, dup := seen[src.Name]; dup {
			return fmt.Errorf("sources[%d] (%s): duplicate name, already used by sources[%d]", i, src.Name, first)
		}
		seen[src.Name] = i

		if err := src.expandAndValidate(); err != nil {
			return fmt.Errorf("sources[%d] (%s): %w", i, src.Name, err)
		}
	}

	return nil
}

func (s *SourceConfig) expandAndValidate() error {
	if s.URL == "" {
		return errors.New("url is required")
	}
	expanded, err := expandEnvVars(s.URL)
	if err != nil {
		return fmt.Errorf("url: %w", err)
	}
	s.URL = expanded

	parsedURL, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return errors.New("url must have a host")
	}

	for k, v := range s.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("headers[%s]: %w", k, err)
		}
		s.Headers[k] = expanded
	}

	if s.Timeout != 0 && s.Timeout.Duration() < time.Second {
		return fmt.Errorf("timeout must be at least 1s if specified, got %s", s.Timeout.Duration())
	}

	if s.Interval != 0 {
		if s.Interval.Duration() < minPollInterval {
			return fmt.Errorf("interval must be at least %s, got %s", minPollInterval, s.Interval.Duration())
		}
		if s.Interval.Duration() > maxPollInterval {
			return fmt.Errorf("interval must not exceed %s, got %s", maxPollInterval, s.Interval.Duration())
		}
	}

	return nil
}
