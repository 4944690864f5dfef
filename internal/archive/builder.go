// Package archive builds outbound return archives from the files flagged for
// return across a record's student folders. A record reaches Zipped only
// through a successful run here.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"tmamon/internal/config"
	"tmamon/internal/layout"
	"tmamon/internal/logging"
	"tmamon/internal/notifications"
	"tmamon/internal/pathlock"
	"tmamon/internal/record"
	"tmamon/internal/services"
)

// ReturnResult summarizes one single-record return.
type ReturnResult struct {
	JobID       string
	RecordPath  string
	ArchivePath string
	Staged      int
}

// BatchResult summarizes one batch return.
type BatchResult struct {
	JobID       string
	ArchivePath string
	Returned    int
	NotReady    int
	Skipped     []string
}

// Builder runs single-record and batch returns against the configured
// staging and returns directories.
type Builder struct {
	cfg      *config.Config
	logger   *slog.Logger
	locks    *pathlock.Registry
	notifier notifications.Notifier
	now      func() time.Time
}

func NewBuilder(cfg *config.Config, logger *slog.Logger, locks *pathlock.Registry, notifier notifications.Notifier) *Builder {
	if logger == nil {
		logger = logging.NewNop()
	}
	if locks == nil {
		locks = pathlock.NewRegistry()
	}
	if notifier == nil {
		notifier = notifications.Nop{}
	}
	return &Builder{
		cfg:      cfg,
		logger:   logger.With(logging.String(logging.FieldComponent, "archive")),
		locks:    locks,
		notifier: notifier,
		now:      time.Now,
	}
}

// ReturnRecord stages, zips, and finalizes one record's return. The record
// must pass all three gates: every student graded in both categories, every
// student complete, and a non-empty comment unless the operator overrides.
// On failure the record keeps its status and loses any partially written
// archive metadata; the temporary holding area is removed either way.
func (b *Builder) ReturnRecord(ctx context.Context, recordPath string, allowEmptyComment bool) (*ReturnResult, error) {
	jobID := uuid.NewString()
	ctx = services.WithBatchID(ctx, jobID)
	unlock := b.locks.Lock(recordPath)
	defer unlock()

	logger := logging.WithContext(ctx, b.logger).With(logging.String(logging.FieldRecord, recordPath))

	rec, err := record.ReadFile(recordPath)
	if err != nil {
		return nil, err
	}
	if reason := gateReason(rec, allowEmptyComment); reason != "" {
		return nil, services.Wrap(services.ErrGating, "archive", "return",
			fmt.Sprintf("record %q not ready: %s", recordPath, reason), nil)
	}

	id, err := layout.ParseRecordPath(b.cfg.Paths.RepositoryRoot, recordPath)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "archive", "return", err.Error(), nil)
	}
	stagingDir, err := layout.StagingPath(b.cfg.Paths.StagingRoot, id.TutorID, id.Course, id.TMA, id.Region, id.Submission)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "archive", "return", err.Error(), nil)
	}

	holding := filepath.Join(b.cfg.Paths.StagingRoot, "holding-"+jobID)
	defer os.RemoveAll(holding)

	result := &ReturnResult{JobID: jobID, RecordPath: recordPath}
	from := rec.Status

	err = func() error {
		staged, err := stageRecord(rec, stagingDir)
		if err != nil {
			return err
		}
		result.Staged = staged

		if err := os.MkdirAll(holding, 0o755); err != nil {
			return services.Wrap(services.ErrIO, "archive", "return", fmt.Sprintf("create holding %q", holding), err)
		}
		inner := filepath.Join(holding, stagingName(id)+".zip")
		if err := CreateZip(inner, stagingDir, 0); err != nil {
			return err
		}

		final := b.uniqueArchivePath(stagingName(id))
		if err := CreateZip(final, holding, 0); err != nil {
			return err
		}
		result.ArchivePath = final
		return nil
	}()
	if err != nil {
		rec.ClearZipMetadata()
		logger.Error("return failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "return_failed"),
		)
		return nil, err
	}

	rec.MarkZipped(record.ZipMetadata{
		Date:        b.now().Format("02/01/2006"),
		ArchivePath: b.cfg.Paths.ReturnsDir,
		ArchiveFile: filepath.Base(result.ArchivePath),
	})
	if err := record.WriteFile(recordPath, rec); err != nil {
		return nil, err
	}
	_ = os.RemoveAll(stagingDir)

	b.notifier.StatusChanged(ctx, recordPath, from, record.StatusZipped)
	logger.Info("record returned",
		logging.String("archive", result.ArchivePath),
		logging.Int("staged", result.Staged),
		logging.String(logging.FieldEventType, "return_finished"),
	)
	return result, nil
}

// ReturnBatch re-checks the gates per record, stages each passing record into
// one shared holding area, and produces a single combined archive. Records
// that fail a gate are left untouched and counted. Statuses are persisted
// only after the combined archive succeeds, so a failed batch changes no
// record on disk.
func (b *Builder) ReturnBatch(ctx context.Context, recordPaths []string, allowEmptyComment bool) (*BatchResult, error) {
	jobID := uuid.NewString()
	ctx = services.WithBatchID(ctx, jobID)
	logger := logging.WithContext(ctx, b.logger)

	holding := filepath.Join(b.cfg.Paths.StagingRoot, "holding-"+jobID)
	if err := os.MkdirAll(holding, 0o755); err != nil {
		return nil, services.Wrap(services.ErrIO, "archive", "return-batch", fmt.Sprintf("create holding %q", holding), err)
	}
	defer os.RemoveAll(holding)

	type passed struct {
		path       string
		rec        *record.MonitoringRecord
		stagingDir string
		from       record.Status
	}

	result := &BatchResult{JobID: jobID}
	var ready []passed

	for _, recordPath := range recordPaths {
		unlock := b.locks.Lock(recordPath)

		rec, err := record.ReadFile(recordPath)
		if err != nil {
			unlock()
			logger.Warn("record skipped",
				logging.String(logging.FieldRecord, recordPath),
				logging.Error(err),
			)
			result.NotReady++
			result.Skipped = append(result.Skipped, recordPath)
			continue
		}
		if reason := gateReason(rec, allowEmptyComment); reason != "" {
			unlock()
			logger.Info("record not ready",
				logging.String(logging.FieldRecord, recordPath),
				logging.String("reason", reason),
			)
			result.NotReady++
			result.Skipped = append(result.Skipped, recordPath)
			continue
		}

		id, err := layout.ParseRecordPath(b.cfg.Paths.RepositoryRoot, recordPath)
		if err != nil {
			unlock()
			result.NotReady++
			result.Skipped = append(result.Skipped, recordPath)
			continue
		}
		stagingDir, err := layout.StagingPath(b.cfg.Paths.StagingRoot, id.TutorID, id.Course, id.TMA, id.Region, id.Submission)
		if err != nil {
			unlock()
			result.NotReady++
			result.Skipped = append(result.Skipped, recordPath)
			continue
		}

		err = func() error {
			if _, err := stageRecord(rec, stagingDir); err != nil {
				return err
			}
			return CreateZip(filepath.Join(holding, stagingName(id)+".zip"), stagingDir, 0)
		}()
		unlock()
		if err != nil {
			rec.ClearZipMetadata()
			logger.Warn("record staging failed",
				logging.String(logging.FieldRecord, recordPath),
				logging.Error(err),
			)
			result.NotReady++
			result.Skipped = append(result.Skipped, recordPath)
			continue
		}
		ready = append(ready, passed{path: recordPath, rec: rec, stagingDir: stagingDir, from: rec.Status})
	}

	if len(ready) == 0 {
		return nil, services.Wrap(services.ErrGating, "archive", "return-batch",
			fmt.Sprintf("no records ready (%d skipped)", result.NotReady), nil)
	}

	final := b.uniqueArchivePath("returns")
	if err := CreateZip(final, holding, 0); err != nil {
		return nil, err
	}
	result.ArchivePath = final

	date := b.now().Format("02/01/2006")
	for _, entry := range ready {
		unlock := b.locks.Lock(entry.path)
		entry.rec.MarkZipped(record.ZipMetadata{
			Date:        date,
			ArchivePath: b.cfg.Paths.ReturnsDir,
			ArchiveFile: filepath.Base(final),
		})
		err := record.WriteFile(entry.path, entry.rec)
		unlock()
		if err != nil {
			logger.Error("status not persisted",
				logging.String(logging.FieldRecord, entry.path),
				logging.Error(err),
			)
			continue
		}
		_ = os.RemoveAll(entry.stagingDir)
		b.notifier.StatusChanged(ctx, entry.path, entry.from, record.StatusZipped)
		result.Returned++
	}

	logger.Info("batch returned",
		logging.String("archive", final),
		logging.Int("returned", result.Returned),
		logging.Int("not_ready", result.NotReady),
		logging.String(logging.FieldEventType, "return_batch_finished"),
	)
	return result, nil
}

// stagingName keys the staging directory and the inner zip for one record.
// Region and submission keep same-tutor records from clobbering each other
// inside a shared batch holding area.
func stagingName(id layout.Identity) string {
	return id.TutorID + "." + id.Course + "." + id.TMA + "." + id.Region + "." + id.Submission
}

// uniqueArchivePath builds the final returns path <stem> <ddmmyyyy>.zip,
// suffixing a counter when a same-day archive already exists.
func (b *Builder) uniqueArchivePath(stem string) string {
	base := fmt.Sprintf("%s %s", stem, b.now().Format("02012006"))
	candidate := filepath.Join(b.cfg.Paths.ReturnsDir, base+".zip")
	for i := 2; ; i++ {
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
		candidate = filepath.Join(b.cfg.Paths.ReturnsDir, fmt.Sprintf("%s (%d).zip", base, i))
	}
}

// gateReason names the first failed archive precondition, or "" when the
// record is ready.
func gateReason(rec *record.MonitoringRecord, allowEmptyComment bool) string {
	if len(rec.Students) == 0 {
		return "no students recorded"
	}
	for _, student := range rec.Students {
		if student.MarkingGrade == "" || student.FeedbackGrade == "" {
			return fmt.Sprintf("student %s is missing a grading category", student.ID)
		}
		if student.Complete != "Y" {
			return fmt.Sprintf("student %s is not marked complete", student.ID)
		}
	}
	if !allowEmptyComment && rec.Comment == "" {
		return "monitoring comment is empty"
	}
	return ""
}
