// Package ingest merges downloaded submission batches into the canonical
// repository. Merges never overwrite: an existing destination file is
// recorded as a conflict and skipped, and the consumed source folder is
// relocated to a recoverable sibling rather than deleted.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"tmamon/internal/config"
	"tmamon/internal/fileutil"
	"tmamon/internal/logging"
	"tmamon/internal/pathlock"
	"tmamon/internal/services"
)

// Conflict is a destination file that already existed and was left untouched.
type Conflict struct {
	Source      string
	Destination string
}

// Result summarizes one completed merge.
type Result struct {
	BatchID     string
	Course      string
	Destination string
	Relocated   string
	Copied      int
	Skipped     int
	Conflicts   []Conflict
}

// ImportRecord is the history row persisted after a merge completes.
type ImportRecord struct {
	BatchID     string
	Source      string
	Destination string
	Copied      int
	Skipped     int
	Conflicts   int
	CompletedAt time.Time
}

// HistoryRecorder persists completed imports. The SQLite index implements it;
// a nil recorder disables history.
type HistoryRecorder interface {
	RecordImport(ctx context.Context, rec ImportRecord) error
}

// Merger copies downloaded batch folders into the repository root.
type Merger struct {
	root      string
	logger    *slog.Logger
	confirmer services.Confirmer
	locks     *pathlock.Registry
	history   HistoryRecorder
	now       func() time.Time
}

func NewMerger(cfg *config.Config, logger *slog.Logger, confirmer services.Confirmer, locks *pathlock.Registry, history HistoryRecorder) *Merger {
	if logger == nil {
		logger = logging.NewNop()
	}
	if confirmer == nil {
		confirmer = services.NeverConfirm
	}
	if locks == nil {
		locks = pathlock.NewRegistry()
	}
	return &Merger{
		root:      cfg.Paths.RepositoryRoot,
		logger:    logger.With(logging.String(logging.FieldComponent, "ingest")),
		confirmer: confirmer,
		locks:     locks,
		history:   history,
		now:       time.Now,
	}
}

// Import validates and merges one source folder. Validation failures abort
// before any copy. Per-file copy errors are logged, counted, and skipped;
// they never abort the batch.
func (m *Merger) Import(ctx context.Context, source string) (*Result, error) {
	source = filepath.Clean(source)
	batchID := uuid.NewString()
	ctx = services.WithBatchID(ctx, batchID)
	logger := logging.WithContext(ctx, m.logger).With(logging.String("source", source))

	info, err := os.Stat(source)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", "import", fmt.Sprintf("source folder %q is not readable", source), err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "ingest", "import", fmt.Sprintf("source %q is not a folder", source), nil)
	}

	if isUnder(source, m.root) {
		return nil, services.Wrap(services.ErrValidation, "ingest", "import",
			fmt.Sprintf("source folder %q lies inside the repository root %q", source, m.root), nil)
	}

	name := filepath.Base(source)
	if !strings.Contains(name, "-") {
		return nil, services.Wrap(services.ErrValidation, "ingest", "import",
			fmt.Sprintf("folder name %q is not a course folder (expected <module>-<presentation>)", name), nil)
	}

	course := canonicalCourseName(name)
	if course != name {
		prompt := fmt.Sprintf("folder %q looks like an OS-generated duplicate of %q; import anyway?", name, course)
		logger.Warn("suspected duplicate folder",
			logging.String("folder", name),
			logging.String("canonical", course),
			logging.String(logging.FieldEventType, "duplicate_folder_suspected"),
		)
		if !m.confirmer.Confirm(prompt) {
			return nil, services.Wrap(services.ErrValidation, "ingest", "import",
				fmt.Sprintf("import of %q cancelled by operator", name), nil)
		}
	}

	destination := filepath.Join(m.root, course)
	unlock := m.locks.Lock(destination)
	defer unlock()

	result := &Result{BatchID: batchID, Course: course, Destination: destination}
	logger.Info("merging batch",
		logging.String("destination", destination),
		logging.String(logging.FieldEventType, "import_started"),
	)

	walkErr := filepath.WalkDir(source, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("unreadable entry skipped", logging.String("path", path), logging.Error(err))
			result.Skipped++
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return os.MkdirAll(destination, 0o755)
		}
		target := filepath.Join(destination, rel)

		if entry.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				logger.Warn("cannot create folder; subtree skipped", logging.String("path", target), logging.Error(err))
				result.Skipped++
				return fs.SkipDir
			}
			return nil
		}

		if fileutil.IsOSMetadata(entry.Name()) {
			return nil
		}

		if existing, err := os.Stat(target); err == nil {
			if existing.Mode().IsRegular() && !fileutil.IsOSMetadata(filepath.Base(target)) {
				result.Conflicts = append(result.Conflicts, Conflict{Source: path, Destination: target})
			}
			return nil
		}

		if _, err := fileutil.CopyFileIfAbsent(path, target); err != nil {
			logger.Warn("file copy failed; skipped",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "import_copy_failed"),
			)
			result.Skipped++
			return nil
		}
		result.Copied++
		return nil
	})
	if walkErr != nil {
		return nil, services.Wrap(services.ErrIO, "ingest", "import", fmt.Sprintf("merge of %q failed", source), walkErr)
	}

	relocated, err := m.relocateSource(source)
	if err != nil {
		logger.Warn("source folder could not be relocated",
			logging.String("source", source),
			logging.Error(err),
		)
	}
	result.Relocated = relocated

	logger.Info("batch merged",
		logging.Int("copied", result.Copied),
		logging.Int("skipped", result.Skipped),
		logging.Int("conflicts", len(result.Conflicts)),
		logging.String(logging.FieldEventType, "import_finished"),
	)

	if m.history != nil {
		rec := ImportRecord{
			BatchID:     batchID,
			Source:      source,
			Destination: destination,
			Copied:      result.Copied,
			Skipped:     result.Skipped,
			Conflicts:   len(result.Conflicts),
			CompletedAt: m.now(),
		}
		if err := m.history.RecordImport(ctx, rec); err != nil {
			logger.Warn("import history not recorded", logging.Error(err))
		}
	}
	return result, nil
}

// relocateSource renames the consumed source folder to a timestamped sibling.
// This is the safety net against a bad merge: nothing is deleted.
func (m *Merger) relocateSource(source string) (string, error) {
	stamp := m.now().Format("20060102T150405")
	target := source + ".imported-" + stamp
	for i := 1; ; i++ {
		if _, err := os.Stat(target); err != nil {
			break
		}
		target = fmt.Sprintf("%s.imported-%s.%d", source, stamp, i)
	}
	if err := fileutil.MovePath(source, target); err != nil {
		return "", err
	}
	return target, nil
}

func isUnder(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
