// Package config loads, normalizes, and validates the TOML configuration
// controlling repository paths, the download watcher, and logging.
package config
