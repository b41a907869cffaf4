package testsupport

import (
	"path/filepath"
	"testing"

	"docmill/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields, applies any provided options, and creates the
// directories.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InputDir = filepath.Join(base, "input")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Workers.Count = 1
	cfg.Queue.Parallelism = 2
	cfg.Retry.BaseDelayMS = 1
	cfg.Retry.MaxDelayMS = 10

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithParallelism overrides queue parallelism on the test config.
func WithParallelism(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Queue.Parallelism = n
	}
}

// WithEventBuffer overrides the queue event channel capacity on the test
// config.
func WithEventBuffer(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Queue.EventBuffer = n
	}
}

// WithMaxAttempts overrides the retry attempt limit on the test config.
func WithMaxAttempts(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Retry.MaxAttempts = n
	}
}
