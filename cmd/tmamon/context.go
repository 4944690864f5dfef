package main

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"log/slog"

	"github.com/spf13/cobra"

	"tmamon/internal/config"
	"tmamon/internal/index"
	"tmamon/internal/logging"
	"tmamon/internal/pathlock"
	"tmamon/internal/services"
)

type commandContext struct {
	configFlag *string
	yesFlag    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logger *slog.Logger

	locks *pathlock.Registry
}

func newCommandContext(configFlag *string, yesFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		yesFlag:    yesFlag,
		locks:      pathlock.NewRegistry(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		c.logger = logging.NewNop()
		return c.logger
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		c.logger = logging.NewNop()
		return c.logger
	}
	c.logger = logger
	return c.logger
}

// fileLogger builds a logger that also writes to the log directory. Used by
// the long-running watch command.
func (c *commandContext) fileLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "tmamon.log")},
	})
}

func (c *commandContext) openIndex() (*index.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return index.Open(cfg)
}

// confirmer prompts on the command's input stream, or approves everything
// when --yes was given.
func (c *commandContext) confirmer(cmd *cobra.Command) services.Confirmer {
	if c.yesFlag != nil && *c.yesFlag {
		return services.AlwaysConfirm
	}
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()
	return services.ConfirmerFunc(func(prompt string) bool {
		fmt.Fprintf(out, "%s [y/N]: ", prompt)
		line, err := in.ReadString('\n')
		if err != nil {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	})
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
