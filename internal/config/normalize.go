package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeHost()
	c.normalizeNumbers()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InputDir, err = expandPath(c.Paths.InputDir); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeHost() {
	c.Host.Binary = strings.TrimSpace(c.Host.Binary)
	if c.Host.Binary == "" {
		c.Host.Binary = defaultHostBinary
	}
	c.Host.OutputFormat = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Host.OutputFormat), "."))
	if c.Host.OutputFormat == "" {
		c.Host.OutputFormat = defaultHostOutputFormat
	}
}

func (c *Config) normalizeNumbers() {
	if c.Queue.Parallelism <= 0 {
		c.Queue.Parallelism = defaultQueueParallelism
	}
	if c.Queue.EventBuffer <= 0 {
		c.Queue.EventBuffer = defaultQueueEventBuffer
	}
	if c.Workers.Count <= 0 {
		c.Workers.Count = defaultWorkerCount
	}
	if c.Workers.QueueDepth <= 0 {
		c.Workers.QueueDepth = defaultWorkerQueueDepth
	}
	if c.Workers.DrainTimeoutSeconds <= 0 {
		c.Workers.DrainTimeoutSeconds = defaultWorkerDrainSeconds
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = defaultRetryMaxAttempts
	}
	if c.Retry.BaseDelayMS <= 0 {
		c.Retry.BaseDelayMS = defaultRetryBaseDelayMS
	}
	if c.Retry.Factor <= 1 {
		c.Retry.Factor = defaultRetryFactor
	}
	if c.Retry.MaxDelayMS <= 0 {
		c.Retry.MaxDelayMS = defaultRetryMaxDelayMS
	}
	if c.Circuit.FailureThreshold <= 0 {
		c.Circuit.FailureThreshold = defaultCircuitThreshold
	}
	if c.Circuit.WindowSeconds <= 0 {
		c.Circuit.WindowSeconds = defaultCircuitWindowSec
	}
	if c.Circuit.BreakSeconds <= 0 {
		c.Circuit.BreakSeconds = defaultCircuitBreakSec
	}
	if c.Health.IntervalSeconds <= 0 {
		c.Health.IntervalSeconds = defaultHealthIntervalSec
	}
	if c.Health.MaxActiveHandles <= 0 {
		c.Health.MaxActiveHandles = defaultHealthMaxHandles
	}
	if c.Health.MaxHostRSSMiB <= 0 {
		c.Health.MaxHostRSSMiB = defaultHealthMaxHostRSSMiB
	}
	if c.Host.RecycleAfterUses < 0 {
		c.Host.RecycleAfterUses = defaultHostRecycleUses
	}
	if c.Host.ShutdownGraceSeconds <= 0 {
		c.Host.ShutdownGraceSeconds = defaultHostShutdownGrace
	}
}
