package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openIndex()
			if err != nil {
				return err
			}
			defer store.Close()

			imports, err := store.ListImports(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(imports) == 0 {
				fmt.Fprintln(out, "No imports recorded")
				return nil
			}

			rows := make([][]string, 0, len(imports))
			for _, imported := range imports {
				rows = append(rows, []string{
					imported.CompletedAt.Local().Format("2006-01-02 15:04"),
					imported.Source,
					imported.Destination,
					strconv.Itoa(imported.Copied),
					strconv.Itoa(imported.Skipped),
					strconv.Itoa(imported.Conflicts),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Completed", "Source", "Destination", "Copied", "Skipped", "Conflicts"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of imports to show")
	return cmd
}
