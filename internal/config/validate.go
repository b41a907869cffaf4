package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateHost(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.InputDir == "" {
		return errors.New("paths.input_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.InputDir == c.Paths.OutputDir {
		return errors.New("paths.input_dir and paths.output_dir must differ")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.Parallelism > 64 {
		return fmt.Errorf("queue.parallelism %d is unreasonably high (max 64)", c.Queue.Parallelism)
	}
	if c.Workers.Count > 16 {
		return fmt.Errorf("workers.count %d is unreasonably high (max 16)", c.Workers.Count)
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxAttempts > 10 {
		return fmt.Errorf("retry.max_attempts %d is unreasonably high (max 10)", c.Retry.MaxAttempts)
	}
	if c.Retry.MaxDelayMS < c.Retry.BaseDelayMS {
		return errors.New("retry.max_delay_ms must be at least retry.base_delay_ms")
	}
	return nil
}

func (c *Config) validateHost() error {
	if c.Host.Binary == "" {
		return errors.New("host.binary must be set")
	}
	switch c.Host.OutputFormat {
	case "pdf", "docx", "odt", "txt", "html", "rtf":
		return nil
	default:
		return fmt.Errorf("host.output_format %q is not a supported export format", c.Host.OutputFormat)
	}
}
