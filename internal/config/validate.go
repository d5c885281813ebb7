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
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateDolphin(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.TempDir == "" {
		return errors.New("paths.temp_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Workers.Count < 1 || c.Workers.Count > 64 {
		return fmt.Errorf("workers.count must be between 1 and 64, got %d", c.Workers.Count)
	}
	if c.Workers.SubprocessTimeout < 1 {
		return errors.New("workers.subprocess_timeout must be at least 1 second")
	}
	return nil
}

func (c *Config) validateDolphin() error {
	switch c.Dolphin.Format {
	case "rvz", "gcz", "wia":
		return nil
	default:
		return fmt.Errorf("dolphin.format must be one of rvz, gcz, wia, got %q", c.Dolphin.Format)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
}
