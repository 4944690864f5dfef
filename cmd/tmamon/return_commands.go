package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"tmamon/internal/archive"
	"tmamon/internal/layout"
	"tmamon/internal/logging"
	"tmamon/internal/notifications"
	"tmamon/internal/record"
)

func newReturnCommand(ctx *commandContext) *cobra.Command {
	var allowEmptyComment bool

	cmd := &cobra.Command{
		Use:   "return <submission-dir>",
		Short: "Build the return archive for one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			recordDir, err := resolveRecordDir(args[0])
			if err != nil {
				return err
			}
			recordPath := filepath.Join(recordDir, layout.RecordFileName)

			logger := ctx.ensureLogger()
			builder := archive.NewBuilder(cfg, logger, ctx.locks, notifications.NewLogNotifier(logger))
			result, err := builder.ReturnRecord(cmd.Context(), recordPath, allowEmptyComment)
			if err != nil {
				return err
			}

			if store, err := ctx.openIndex(); err == nil {
				refreshIndex(cmd.Context(), store, logger, []string{recordPath})
				store.Close()
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Staged %d file(s)\n", result.Staged)
			fmt.Fprintf(out, "Archive written to %s\n", result.ArchivePath)
			fmt.Fprintf(out, "Record is now %s\n", record.StatusZipped)
			return nil
		},
	}

	cmd.Flags().BoolVar(&allowEmptyComment, "allow-empty-comment", false, "Return even when the monitoring comment is empty")
	return cmd
}

func newReturnBatchCommand(ctx *commandContext) *cobra.Command {
	var allowEmptyComment bool
	var courseFlag string

	cmd := &cobra.Command{
		Use:   "return-batch [submission-dir ...]",
		Short: "Build one combined return archive for several records",
		Long: `Build one combined return archive for several records.

Submission directories can be listed explicitly, or selected with --course,
which picks every monitored record of that course from the index. Records
that fail a gate are skipped and counted, never modified.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var recordPaths []string
			for _, arg := range args {
				recordDir, err := resolveRecordDir(arg)
				if err != nil {
					return err
				}
				recordPaths = append(recordPaths, filepath.Join(recordDir, layout.RecordFileName))
			}

			if courseFlag != "" {
				store, err := ctx.openIndex()
				if err != nil {
					return err
				}
				summaries, err := store.ListRecords(cmd.Context(), courseFlag, record.StatusMonitored)
				store.Close()
				if err != nil {
					return err
				}
				for _, summary := range summaries {
					recordPaths = append(recordPaths, summary.Path)
				}
			}

			if len(recordPaths) == 0 {
				return fmt.Errorf("nothing to return: pass submission directories or --course")
			}

			logger := ctx.ensureLogger()
			builder := archive.NewBuilder(cfg, logger, ctx.locks, notifications.NewLogNotifier(logger))
			result, err := builder.ReturnBatch(cmd.Context(), recordPaths, allowEmptyComment)
			if err != nil {
				return err
			}

			if store, err := ctx.openIndex(); err == nil {
				refreshIndex(cmd.Context(), store, logger, recordPaths)
				store.Close()
			} else {
				logger.Warn("index unavailable", logging.Error(err))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Returned %d record(s), %d not ready\n", result.Returned, result.NotReady)
			for _, skipped := range result.Skipped {
				fmt.Fprintf(out, "  not ready: %s\n", skipped)
			}
			fmt.Fprintf(out, "Combined archive written to %s\n", result.ArchivePath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&allowEmptyComment, "allow-empty-comment", false, "Return even when a monitoring comment is empty")
	cmd.Flags().StringVar(&courseFlag, "course", "", "Return every monitored record of this course")
	return cmd
}
