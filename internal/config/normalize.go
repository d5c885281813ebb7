package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorkers()
	c.normalizeTools()
	c.normalizeDolphin()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = defaultTempDir
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
			return fmt.Errorf("paths.output_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeWorkers() {
	if c.Workers.Count <= 0 {
		c.Workers.Count = defaultWorkerCount()
	}
	if c.Workers.PollIntervalMS <= 0 {
		c.Workers.PollIntervalMS = defaultPollIntervalMS
	}
	if c.Workers.SubprocessTimeout <= 0 {
		c.Workers.SubprocessTimeout = defaultSubprocessTimeout
	}
	if c.Workers.MinFreeSpaceGiB < 0 {
		c.Workers.MinFreeSpaceGiB = 0
	}
}

func (c *Config) normalizeTools() {
	if strings.TrimSpace(c.Tools.Chdman) == "" {
		c.Tools.Chdman = defaultChdmanBinary
	}
	if strings.TrimSpace(c.Tools.DolphinTool) == "" {
		c.Tools.DolphinTool = defaultDolphinToolBinary
	}
	if strings.TrimSpace(c.Tools.SevenZip) == "" {
		c.Tools.SevenZip = defaultSevenZipBinary
	}
	if strings.TrimSpace(c.Tools.Maxcso) == "" {
		c.Tools.Maxcso = defaultMaxcsoBinary
	}
}

func (c *Config) normalizeDolphin() {
	c.Dolphin.Format = strings.ToLower(strings.TrimSpace(c.Dolphin.Format))
	if c.Dolphin.Format == "" {
		c.Dolphin.Format = defaultDolphinFormat
	}
	if c.Dolphin.CompressionLevel <= 0 {
		c.Dolphin.CompressionLevel = defaultDolphinLevel
	}
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
