package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if c.Watcher.PollIntervalSeconds <= 0 {
		c.Watcher.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.RepositoryRoot, err = expandPath(c.Paths.RepositoryRoot); err != nil {
		return fmt.Errorf("paths.repository_root: %w", err)
	}
	if c.Paths.DownloadsDir, err = expandPath(c.Paths.DownloadsDir); err != nil {
		return fmt.Errorf("paths.downloads_dir: %w", err)
	}
	if c.Paths.ReturnsDir, err = expandPath(c.Paths.ReturnsDir); err != nil {
		return fmt.Errorf("paths.returns_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StagingRoot) == "" {
		c.Paths.StagingRoot = defaultStagingRoot
	}
	if c.Paths.StagingRoot, err = expandPath(c.Paths.StagingRoot); err != nil {
		return fmt.Errorf("paths.staging_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
