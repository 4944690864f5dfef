package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if c.Watcher.PollIntervalSeconds <= 0 {
		return errors.New("watcher.poll_interval_seconds must be positive")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.RepositoryRoot) == "" {
		return errors.New("paths.repository_root must be set")
	}
	if strings.TrimSpace(c.Paths.DownloadsDir) == "" {
		return errors.New("paths.downloads_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ReturnsDir) == "" {
		return errors.New("paths.returns_dir must be set")
	}
	// The watcher and merger refuse sources under the repository root; a
	// downloads directory inside it would make every import invalid.
	if isUnder(c.Paths.DownloadsDir, c.Paths.RepositoryRoot) {
		return fmt.Errorf("paths.downloads_dir %q must not be inside paths.repository_root", c.Paths.DownloadsDir)
	}
	if isUnder(c.Paths.StagingRoot, c.Paths.RepositoryRoot) {
		return fmt.Errorf("paths.staging_root %q must not be inside paths.repository_root", c.Paths.StagingRoot)
	}
	return nil
}

func isUnder(path, root string) bool {
	path = strings.TrimRight(path, "/\\")
	root = strings.TrimRight(root, "/\\")
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+"/") || strings.HasPrefix(path, root+"\\")
}
