package config

const (
	defaultRepositoryRoot      = "~/tma/repository"
	defaultDownloadsDir        = "~/Downloads"
	defaultReturnsDir          = "~/tma/returns"
	defaultStagingRoot         = "~/.local/share/tmamon/staging"
	defaultLogDir              = "~/.local/share/tmamon/logs"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultPollIntervalSeconds = 5
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RepositoryRoot: defaultRepositoryRoot,
			DownloadsDir:   defaultDownloadsDir,
			ReturnsDir:     defaultReturnsDir,
			StagingRoot:    defaultStagingRoot,
			LogDir:         defaultLogDir,
		},
		Watcher: Watcher{
			AutoImport:          true,
			PollIntervalSeconds: defaultPollIntervalSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
