package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/justapithecus/contribuart/retry"
)

// Config represents a contribuart.yaml file.
// All values are optional.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	GitHub  GitHubConfig  `yaml:"github"`
	Retry   RetryConfig   `yaml:"retry"`
	Journal JournalConfig `yaml:"journal"`
	Adapter AdapterConfig `yaml:"adapter"`
}

// ServerConfig holds HTTP server defaults.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GitHubConfig holds GitHub API defaults.
type GitHubConfig struct {
	APIURL      string   `yaml:"api_url"`
	GraphQLURL  string   `yaml:"graphql_url"`
	Token       string   `yaml:"token"`
	Branches    []string `yaml:"branches"`
	ForceUpdate bool     `yaml:"force_update"`
}

// RetryConfig holds remote call retry defaults.
type RetryConfig struct {
	MaxAttempts int      `yaml:"max_attempts"`
	BaseDelay   Duration `yaml:"base_delay"`
}

// JournalConfig holds paint journal settings. An empty backend disables
// the journal.
type JournalConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds completion notification settings.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// RetryPolicy returns the retry configuration with defaults for unset
// fields.
func (c *Config) RetryPolicy() retry.Config {
	cfg := retry.DefaultConfig()
	if c.Retry.MaxAttempts > 0 {
		cfg.MaxAttempts = c.Retry.MaxAttempts
	}
	if c.Retry.BaseDelay.Duration > 0 {
		cfg.BaseDelay = c.Retry.BaseDelay.Duration
	}
	return cfg
}

// Validate checks enumerated and dependent fields.
func (c *Config) Validate() error {
	var errs []error
	switch c.Journal.Backend {
	case "", "fs", "s3":
	default:
		errs = append(errs, fmt.Errorf("journal.backend must be fs or s3, got %q", c.Journal.Backend))
	}
	if c.Journal.Backend != "" && c.Journal.Path == "" {
		errs = append(errs, errors.New("journal.path is required when journal.backend is set"))
	}
	switch c.Adapter.Type {
	case "", "webhook", "redis":
	default:
		errs = append(errs, fmt.Errorf("adapter.type must be webhook or redis, got %q", c.Adapter.Type))
	}
	if c.Adapter.Type != "" && c.Adapter.URL == "" {
		errs = append(errs, errors.New("adapter.url is required when adapter.type is set"))
	}
	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("retry.max_attempts must be >= 0"))
	}
	return errors.Join(errs...)
}
