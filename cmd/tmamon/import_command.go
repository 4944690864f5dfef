package main

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/spf13/cobra"

	"tmamon/internal/catalog"
	"tmamon/internal/config"
	"tmamon/internal/index"
	"tmamon/internal/ingest"
	"tmamon/internal/logging"
	"tmamon/internal/record"
	"tmamon/internal/services"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <folder>",
		Short: "Merge a downloaded submission batch into the repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := runImport(cmd.Context(), ctx, cfg, args[0], ctx.confirmer(cmd))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Merged %s into %s\n", args[0], result.Destination)
			fmt.Fprintf(out, "Copied %d file(s), skipped %d, conflicts %d\n",
				result.Copied, result.Skipped, len(result.Conflicts))
			for _, conflict := range result.Conflicts {
				fmt.Fprintf(out, "  conflict: %s already exists\n", conflict.Destination)
			}
			if result.Relocated != "" {
				fmt.Fprintf(out, "Source folder moved to %s\n", result.Relocated)
			}
			return nil
		},
	}
	return cmd
}

// runImport merges one batch, then creates or refreshes the monitoring
// records for the touched course and pushes their summaries into the index.
// The index is best-effort; import succeeds without it.
func runImport(cmdCtx context.Context, ctx *commandContext, cfg *config.Config, source string, confirmer services.Confirmer) (*ingest.Result, error) {
	logger := ctx.ensureLogger()

	var history ingest.HistoryRecorder
	store, err := ctx.openIndex()
	if err != nil {
		logger.Warn("index unavailable", logging.Error(err))
	} else {
		history = store
		defer store.Close()
	}

	merger := ingest.NewMerger(cfg, logger, confirmer, ctx.locks, history)
	result, err := merger.Import(cmdCtx, source)
	if err != nil {
		return nil, err
	}

	touched, err := catalog.RefreshCourse(cfg.Paths.RepositoryRoot, result.Course, logger)
	if err != nil {
		logger.Warn("record refresh failed", logging.Error(err))
		return result, nil
	}
	if store != nil {
		refreshIndex(cmdCtx, store, logger, touched)
	}
	return result, nil
}

func refreshIndex(ctx context.Context, store *index.Store, logger *slog.Logger, recordPaths []string) {
	for _, path := range recordPaths {
		summary, err := record.ReadSummary(path)
		if err != nil {
			continue
		}
		if err := store.UpsertSummary(ctx, summary); err != nil {
			logger.Warn("index row not updated", logging.String(logging.FieldRecord, path), logging.Error(err))
		}
	}
}
