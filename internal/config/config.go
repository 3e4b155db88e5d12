// Package config loads the agent's configuration file: trivial
// line-oriented `key: value` text, one setting per line, `#`-prefixed
// lines and blank lines ignored, per spec.md §6.
//
// Adapted from SteelMorgan-1c-log-checker/internal/config/config.go's
// load-then-validate shape, but reading a file of dotted keys instead of
// environment variables.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the agent.
type Config struct {
	LoggingLevel           string
	LoggingTracingEnabled  bool
	LoggingTracingEndpoint string

	InputPath string

	CheckpointPath        string
	CheckpointHistoryPath string

	FollowerPollInterval     time.Duration
	FollowerRotateSettleTime time.Duration
	FollowerMaxReadBytes     int

	RouterRulesPath string
}

// defaults returns a Config populated with every documented default from
// spec.md §6, before the file's keys are applied over it.
func defaults() Config {
	return Config{
		LoggingLevel:             "info",
		LoggingTracingEnabled:    false,
		LoggingTracingEndpoint:   "localhost:4317",
		FollowerPollInterval:     time.Second,
		FollowerRotateSettleTime: 500 * time.Millisecond,
		FollowerMaxReadBytes:     65536,
	}
}

// Load reads and parses the configuration file at path. Unknown keys are
// ignored, matching spec.md §6.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	cfg := defaults()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("config: %s:%d: expected \"key: value\", got %q", path, lineNo, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if err := cfg.apply(key, value); err != nil {
			return nil, fmt.Errorf("config: %s:%d: %w", path, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if cfg.CheckpointHistoryPath == "" && cfg.CheckpointPath != "" {
		cfg.CheckpointHistoryPath = cfg.CheckpointPath + ".history.db"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) apply(key, value string) error {
	switch key {
	case "logging.level":
		c.LoggingLevel = value
	case "logging.tracing_enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("logging.tracing_enabled: %w", err)
		}
		c.LoggingTracingEnabled = b
	case "logging.tracing_endpoint":
		c.LoggingTracingEndpoint = value
	case "input.path":
		c.InputPath = value
	case "checkpoint.path":
		c.CheckpointPath = value
	case "checkpoint.history_path":
		c.CheckpointHistoryPath = value
	case "follower.poll_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("follower.poll_interval: %w", err)
		}
		c.FollowerPollInterval = d
	case "follower.rotate_settle_time":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("follower.rotate_settle_time: %w", err)
		}
		c.FollowerRotateSettleTime = d
	case "follower.max_read_bytes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("follower.max_read_bytes: %w", err)
		}
		c.FollowerMaxReadBytes = n
	case "router.rules_path":
		c.RouterRulesPath = value
	default:
		// Unknown keys are ignored, per spec.md §6.
	}
	return nil
}

// Validate checks that the required keys were set and that values are
// sane.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("input.path is required")
	}
	if c.CheckpointPath == "" {
		return fmt.Errorf("checkpoint.path is required")
	}
	if c.FollowerPollInterval <= 0 {
		return fmt.Errorf("follower.poll_interval must be positive")
	}
	if c.FollowerRotateSettleTime < 0 {
		return fmt.Errorf("follower.rotate_settle_time must not be negative")
	}
	if c.FollowerMaxReadBytes <= 0 {
		return fmt.Errorf("follower.max_read_bytes must be positive")
	}
	return nil
}
