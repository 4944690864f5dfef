package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tmamon/internal/archive"
	"tmamon/internal/config"
)

func newUnpackCommand(ctx *commandContext) *cobra.Command {
	var destFlag string
	var markImported bool

	cmd := &cobra.Command{
		Use:   "unpack <archive.zip>",
		Short: "Extract a downloaded archive next to itself",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			zipPath, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			dest := strings.TrimSpace(destFlag)
			if dest == "" {
				dest = filepath.Dir(zipPath)
			} else if dest, err = config.ExpandPath(dest); err != nil {
				return err
			}

			if err := archive.Unpack(zipPath, dest); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Unpacked %s into %s\n", zipPath, dest)

			if markImported {
				if err := archive.MarkImported(zipPath); err != nil {
					return fmt.Errorf("mark archive imported: %w", err)
				}
				fmt.Fprintln(out, "Archive marked as imported")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&destFlag, "dest", "d", "", "Destination directory (defaults to the archive's directory)")
	cmd.Flags().BoolVar(&markImported, "mark-imported", false, "Rename the archive so the watcher skips it")
	return cmd
}
