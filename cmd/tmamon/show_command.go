package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tmamon/internal/catalog"
	"tmamon/internal/config"
	"tmamon/internal/layout"
	"tmamon/internal/record"
)

// resolveRecordDir accepts either a submission directory or a record file
// path and returns the submission directory.
func resolveRecordDir(arg string) (string, error) {
	path, err := config.ExpandPath(arg)
	if err != nil {
		return "", err
	}
	if filepath.Base(path) == layout.RecordFileName {
		path = filepath.Dir(path)
	}
	return path, nil
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <submission-dir>",
		Short: "Show one monitoring record",
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

			rec, _, err := catalog.Load(cfg.Paths.RepositoryRoot, recordDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Course:  %s TMA %s\n", rec.Course, rec.TMA)
			fmt.Fprintf(out, "Tutor:   %s (%s, region %s, submission %s)\n",
				rec.TutorID, displayName(rec.TutorName), rec.Region, rec.Submission)
			fmt.Fprintf(out, "Status:  %s\n", rec.Status)
			if rec.Status == record.StatusZipped {
				fmt.Fprintf(out, "Zipped:  %s as %s\n", rec.Zip.Date, rec.Zip.ArchiveFile)
			}
			if rec.Comment != "" {
				fmt.Fprintf(out, "Comment: %s\n", rec.Comment)
			}

			flags := make([]string, 0, len(rec.Ratings))
			for i, rating := range rec.Ratings {
				if rating != "" {
					flags = append(flags, fmt.Sprintf("%d=%s", i+1, rating))
				}
			}
			if len(flags) > 0 {
				fmt.Fprintf(out, "Ratings: %s\n", strings.Join(flags, " "))
			}

			rows := make([][]string, 0, len(rec.Students))
			for _, student := range rec.Students {
				rows = append(rows, []string{
					student.ID,
					strings.TrimSpace(student.Forename + " " + student.Surname),
					student.MarkingGrade,
					student.FeedbackGrade,
					yesNo(student.Complete == "Y"),
					yesNo(student.Annotated()),
					fmt.Sprintf("%d", len(student.Files)),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Student", "Name", "Marking", "Feedback", "Complete", "Annotated", "Files"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	return cmd
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "unknown"
	}
	return name
}
