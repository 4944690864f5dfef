package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"tmamon/internal/services"
	"tmamon/internal/watcher"
)

// watchBatchHandler feeds detected course folders through the import
// pipeline without operator interaction; suspected duplicates are skipped
// rather than silently confirmed.
type watchBatchHandler struct {
	cmdContext *commandContext
}

func (h *watchBatchHandler) HandleBatch(ctx context.Context, source string) error {
	cfg, err := h.cmdContext.ensureConfig()
	if err != nil {
		return err
	}
	_, err = runImport(ctx, h.cmdContext, cfg, source, services.NeverConfirm)
	return err
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the downloads directory and import new batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Watcher.AutoImport {
				return errors.New("automatic import is disabled; set watcher.auto_import = true in the configuration")
			}

			logger, err := ctx.fileLogger()
			if err != nil {
				return err
			}
			ctx.logger = logger

			// One watcher per repository.
			lock := flock.New(filepath.Join(cfg.Paths.LogDir, "tmamon-watch.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire watch lock: %w", err)
			}
			if !locked {
				return errors.New("another tmamon watch instance is already running")
			}
			defer func() { _ = lock.Unlock() }()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w := watcher.New(cfg, logger, &watchBatchHandler{cmdContext: ctx})
			if err := w.Start(runCtx); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s every %ds (Ctrl-C to stop)\n",
				cfg.Paths.DownloadsDir, cfg.PollInterval())

			<-runCtx.Done()
			w.Stop()
			fmt.Fprintln(cmd.OutOrStdout(), "Watcher stopped")
			return nil
		},
	}
	return cmd
}
