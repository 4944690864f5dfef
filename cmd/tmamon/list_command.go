package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tmamon/internal/catalog"
	"tmamon/internal/logging"
	"tmamon/internal/record"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var courseFlag string
	var statusFlag string
	var rescan bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List monitoring records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var status record.Status
			if statusFlag != "" {
				parsed, ok := record.ParseStatus(statusFlag)
				if !ok {
					return fmt.Errorf("unknown status %q (expected unmonitored, monitored, or zipped)", statusFlag)
				}
				status = parsed
			}

			store, err := ctx.openIndex()
			if err != nil {
				return err
			}
			defer store.Close()

			if rescan {
				summaries, err := catalog.ScanRecords(cfg.Paths.RepositoryRoot)
				if err != nil {
					return err
				}
				if err := store.ReplaceAll(cmd.Context(), summaries); err != nil {
					ctx.ensureLogger().Warn("index rebuild failed", logging.Error(err))
				}
			}

			summaries, err := store.ListRecords(cmd.Context(), courseFlag, status)
			if err != nil {
				return err
			}
			if len(summaries) == 0 && !rescan {
				// Empty index on first use: fall back to a tree scan.
				summaries, err = catalog.ScanRecords(cfg.Paths.RepositoryRoot)
				if err != nil {
					return err
				}
				if err := store.ReplaceAll(cmd.Context(), summaries); err != nil {
					ctx.ensureLogger().Warn("index rebuild failed", logging.Error(err))
				}
				summaries, err = store.ListRecords(cmd.Context(), courseFlag, status)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No monitoring records found")
				return nil
			}

			rows := make([][]string, 0, len(summaries))
			for _, summary := range summaries {
				rows = append(rows, []string{
					summary.Course,
					summary.TMA,
					summary.TutorID,
					summary.Region,
					summary.Submission,
					string(summary.Status),
					strconv.Itoa(summary.Students),
					summary.Comment,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Course", "TMA", "Tutor", "Region", "Sub", "Status", "Students", "Comment"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&courseFlag, "course", "", "Only records for this course")
	cmd.Flags().StringVar(&statusFlag, "status", "", "Only records with this status (unmonitored, monitored, zipped)")
	cmd.Flags().BoolVar(&rescan, "rescan", false, "Rebuild the index from the repository tree first")
	return cmd
}
