package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	InputDir  string `toml:"input_dir"`
	OutputDir string `toml:"output_dir"`
	WorkDir   string `toml:"work_dir"`
	LogDir    string `toml:"log_dir"`
	StateDir  string `toml:"state_dir"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Queue contains batch processing configuration.
type Queue struct {
	// Parallelism bounds concurrent in-flight items, independent of the
	// worker-thread count.
	Parallelism int `toml:"parallelism"`
	// EventBuffer sizes the outbound progress event channel.
	EventBuffer int `toml:"event_buffer"`
}

// Workers contains affinity worker pool configuration.
type Workers struct {
	Count               int `toml:"count"`
	QueueDepth          int `toml:"queue_depth"`
	DrainTimeoutSeconds int `toml:"drain_timeout_seconds"`
}

// Retry contains the transient-failure backoff schedule.
type Retry struct {
	MaxAttempts int     `toml:"max_attempts"`
	BaseDelayMS int     `toml:"base_delay_ms"`
	Factor      float64 `toml:"factor"`
	MaxDelayMS  int     `toml:"max_delay_ms"`
}

// Circuit contains circuit breaker tuning.
type Circuit struct {
	FailureThreshold int `toml:"failure_threshold"`
	WindowSeconds    int `toml:"window_seconds"`
	BreakSeconds     int `toml:"break_seconds"`
}

// Health contains resource monitoring thresholds.
type Health struct {
	IntervalSeconds  int   `toml:"interval_seconds"`
	MaxActiveHandles int64 `toml:"max_active_handles"`
	MaxHostRSSMiB    int64 `toml:"max_host_rss_mib"`
}

// Host contains automation host configuration.
type Host struct {
	Binary               string   `toml:"binary"`
	ExtraArgs            []string `toml:"extra_args"`
	OutputFormat         string   `toml:"output_format"`
	RecycleAfterUses     int      `toml:"recycle_after_uses"`
	ShutdownGraceSeconds int      `toml:"shutdown_grace_seconds"`
}

// Config encapsulates all configuration values for docmill.
//
// Configuration sections by subsystem:
//   - Paths: input/output/work/log/state directories
//   - Logging: log format and level
//   - Queue: batch parallelism and event buffering
//   - Workers: affinity worker pool sizing and drain timeout
//   - Retry: transient-failure backoff schedule
//   - Circuit: circuit breaker threshold and timing
//   - Health: resource monitor interval and thresholds
//   - Host: automation host binary, format, and recycling
type Config struct {
	Paths   Paths   `toml:"paths"`
	Logging Logging `toml:"logging"`
	Queue   Queue   `toml:"queue"`
	Workers Workers `toml:"workers"`
	Retry   Retry   `toml:"retry"`
	Circuit Circuit `toml:"circuit"`
	Health  Health  `toml:"health"`
	Host    Host    `toml:"host"`
}

// DefaultConfigPath returns the absolute path of the default config file.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/docmill/config.toml")
}

// SampleConfig returns the embedded annotated sample configuration.
func SampleConfig() string { return sampleConfig }

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The bool reports
// whether a config file actually existed at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	projectPath, err := filepath.Abs("docmill.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates every configured directory that does not exist.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.InputDir, c.Paths.OutputDir, c.Paths.WorkDir, c.Paths.LogDir, c.Paths.StateDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample config to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
