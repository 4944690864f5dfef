package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tmamon/internal/catalog"
	"tmamon/internal/layout"
	"tmamon/internal/logging"
	"tmamon/internal/record"
	"tmamon/internal/services"
)

func newEditCommand(ctx *commandContext) *cobra.Command {
	var commentFlag string
	var commentSet bool
	var ratingFlags []string
	var studentFlag string
	var markingFlag string
	var feedbackFlag string
	var completeFlag string
	var annotateFlags []string
	var tutorNameFlag string

	cmd := &cobra.Command{
		Use:   "edit <submission-dir>",
		Short: "Edit a monitoring record",
		Long: `Edit a monitoring record's comment, rating flags, or per-student grading.

Editing the comment or rating flags of a monitored or zipped record regresses
it to unmonitored after confirmation; a regressed zipped record loses its
archive metadata and must be returned again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			recordDir, err := resolveRecordDir(args[0])
			if err != nil {
				return err
			}
			commentSet = cmd.Flags().Changed("comment")

			recordPath := filepath.Join(recordDir, layout.RecordFileName)
			unlock := ctx.locks.Lock(recordPath)
			defer unlock()

			rec, _, err := catalog.Load(cfg.Paths.RepositoryRoot, recordDir)
			if err != nil {
				return err
			}

			ratings, err := parseRatingFlags(ratingFlags)
			if err != nil {
				return err
			}

			if commentSet || len(ratings) > 0 {
				confirm := ctx.confirmer(cmd)
				applied := rec.RegisterEdit(func() bool {
					return confirm.Confirm(fmt.Sprintf(
						"record is %s; editing regresses it to %s. Continue?",
						rec.Status, record.StatusUnmonitored))
				})
				if !applied {
					return services.Wrap(services.ErrValidation, "edit", "confirm", "edit cancelled by operator", nil)
				}
				if commentSet {
					rec.Comment = commentFlag
				}
				for position, value := range ratings {
					rec.Ratings[position] = value
				}
			}

			if tutorNameFlag != "" {
				rec.TutorName = tutorNameFlag
			}

			if studentFlag != "" {
				student := findStudent(rec, studentFlag)
				if student == nil {
					return services.Wrap(services.ErrNotFound, "edit", "student",
						fmt.Sprintf("student %q is not part of this record", studentFlag), nil)
				}
				if cmd.Flags().Changed("marking") {
					if err := checkGrade(markingFlag); err != nil {
						return err
					}
					student.MarkingGrade = markingFlag
				}
				if cmd.Flags().Changed("feedback") {
					if err := checkGrade(feedbackFlag); err != nil {
						return err
					}
					student.FeedbackGrade = feedbackFlag
				}
				if cmd.Flags().Changed("complete") {
					student.Complete = strings.ToUpper(strings.TrimSpace(completeFlag))
				}
				if err := applyAnnotations(student, annotateFlags); err != nil {
					return err
				}
			} else if len(annotateFlags) > 0 || cmd.Flags().Changed("marking") ||
				cmd.Flags().Changed("feedback") || cmd.Flags().Changed("complete") {
				return errors.New("per-student flags require --student")
			}

			before := rec.Status
			rec.Recompute()
			if err := catalog.Save(recordDir, rec); err != nil {
				return err
			}

			if store, err := ctx.openIndex(); err == nil {
				refreshIndex(cmd.Context(), store, ctx.ensureLogger(), []string{recordPath})
				store.Close()
			} else {
				ctx.ensureLogger().Warn("index unavailable", logging.Error(err))
			}

			out := cmd.OutOrStdout()
			if before != rec.Status {
				fmt.Fprintf(out, "Status: %s -> %s\n", before, rec.Status)
			} else {
				fmt.Fprintf(out, "Status: %s\n", rec.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&commentFlag, "comment", "", "Set the monitoring comment")
	cmd.Flags().StringArrayVar(&ratingFlags, "rating", nil, "Set a rating flag, e.g. --rating 3=Y (value Y, N, or - to clear)")
	cmd.Flags().StringVar(&studentFlag, "student", "", "Student id for per-student edits")
	cmd.Flags().StringVar(&markingFlag, "marking", "", "Marking grade for --student (1-5, empty to clear)")
	cmd.Flags().StringVar(&feedbackFlag, "feedback", "", "Feedback grade for --student (1-5, empty to clear)")
	cmd.Flags().StringVar(&completeFlag, "complete", "", "Complete flag for --student (Y or N)")
	cmd.Flags().StringArrayVar(&annotateFlags, "annotate", nil, "Set a file annotation, e.g. --annotate essay.pdf=Y")
	cmd.Flags().StringVar(&tutorNameFlag, "tutor-name", "", "Set the tutor display name")
	return cmd
}

func parseRatingFlags(flags []string) (map[int]string, error) {
	ratings := make(map[int]string, len(flags))
	for _, flag := range flags {
		key, value, ok := strings.Cut(flag, "=")
		if !ok {
			return nil, fmt.Errorf("rating %q: expected N=Y|N|-", flag)
		}
		position, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || position < 1 || position > record.RatingFlagCount {
			return nil, fmt.Errorf("rating %q: position must be 1-%d", flag, record.RatingFlagCount)
		}
		normalized, err := normalizeYesNo(value)
		if err != nil {
			return nil, fmt.Errorf("rating %q: %w", flag, err)
		}
		ratings[position-1] = normalized
	}
	return ratings, nil
}

func applyAnnotations(student *record.StudentEntry, flags []string) error {
	for _, flag := range flags {
		name, value, ok := strings.Cut(flag, "=")
		if !ok {
			return fmt.Errorf("annotation %q: expected file=Y|N|-", flag)
		}
		normalized, err := normalizeYesNo(value)
		if err != nil {
			return fmt.Errorf("annotation %q: %w", flag, err)
		}
		found := false
		for i := range student.Files {
			if filepath.Base(student.Files[i].Path) == strings.TrimSpace(name) {
				student.Files[i].Annotation = record.Annotation(normalized)
				found = true
			}
		}
		if !found {
			return services.Wrap(services.ErrNotFound, "edit", "annotate",
				fmt.Sprintf("file %q is not part of student %s", name, student.ID), nil)
		}
	}
	return nil
}

func findStudent(rec *record.MonitoringRecord, id string) *record.StudentEntry {
	for i := range rec.Students {
		if rec.Students[i].ID == id {
			return &rec.Students[i]
		}
	}
	return nil
}

func checkGrade(grade string) error {
	for _, allowed := range record.GradeScale {
		if grade == allowed {
			return nil
		}
	}
	return fmt.Errorf("grade %q: must be 1-5 or empty", grade)
}

func normalizeYesNo(value string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "Y", "YES":
		return "Y", nil
	case "N", "NO":
		return "N", nil
	case "-", "":
		return "", nil
	default:
		return "", errors.New("value must be Y, N, or -")
	}
}
