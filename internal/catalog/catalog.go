// Package catalog connects the on-disk submission tree to monitoring
// records. It creates a record the first time a submission folder appears,
// refreshes student and file lists from directory contents on every load,
// and scans the repository for list views. Grading state already recorded is
// preserved across refreshes; a corrupt record file is treated as absent and
// rebuilt from the folder.
package catalog

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"log/slog"

	"tmamon/internal/fileutil"
	"tmamon/internal/layout"
	"tmamon/internal/logging"
	"tmamon/internal/record"
	"tmamon/internal/services"
)

// Load reads the monitoring record for a submission directory and refreshes
// its student and file lists from the directory contents. A missing or
// corrupt record file yields a freshly built record. The boolean reports
// whether the refreshed record differs from what is on disk.
func Load(root, recordDir string) (*record.MonitoringRecord, bool, error) {
	id, err := layout.ParseRecordPath(root, recordDir)
	if err != nil {
		return nil, false, services.Wrap(services.ErrValidation, "catalog", "load", err.Error(), nil)
	}

	recordPath := filepath.Join(recordDir, layout.RecordFileName)
	existing, err := record.ReadFile(recordPath)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrCorruptRecord):
		existing = nil
	default:
		return nil, false, err
	}

	rec := buildRecord(id, recordDir, existing)
	rec.Recompute()
	return rec, changed(existing, rec), nil
}

// Save persists a record into its submission directory.
func Save(recordDir string, rec *record.MonitoringRecord) error {
	return record.WriteFile(filepath.Join(recordDir, layout.RecordFileName), rec)
}

// buildRecord merges directory contents with previously recorded state. The
// student list is rebuilt wholesale from the folders present; grades, dates,
// and file annotations carry over where the student or file still exists.
func buildRecord(id layout.Identity, recordDir string, existing *record.MonitoringRecord) *record.MonitoringRecord {
	rec := &record.MonitoringRecord{
		Course:     id.Course,
		TMA:        id.TMA,
		TutorID:    id.TutorID,
		Region:     id.Region,
		Submission: id.Submission,
	}

	previousStudents := map[string]record.StudentEntry{}
	if existing != nil {
		rec.TutorName = existing.TutorName
		rec.Comment = existing.Comment
		rec.Ratings = existing.Ratings
		rec.Status = existing.Status
		rec.Zip = existing.Zip
		rec.Created = existing.Created
		for _, student := range existing.Students {
			previousStudents[student.ID] = student
		}
	}

	entries, err := os.ReadDir(recordDir)
	if err != nil {
		return rec
	}
	for _, entry := range entries {
		if !entry.IsDir() || fileutil.IsOSMetadata(entry.Name()) || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		studentID := entry.Name()
		student := record.StudentEntry{ID: studentID}
		if previous, ok := previousStudents[studentID]; ok {
			student = previous
		}
		student.Files = enumerateFiles(filepath.Join(recordDir, studentID), student.Files)
		rec.Students = append(rec.Students, student)
	}
	sort.Slice(rec.Students, func(i, j int) bool { return rec.Students[i].ID < rec.Students[j].ID })
	return rec
}

// enumerateFiles lists every file under a student folder, carrying over the
// annotation state of files already recorded.
func enumerateFiles(studentDir string, previous []record.FileEntry) []record.FileEntry {
	annotations := map[string]record.Annotation{}
	for _, file := range previous {
		annotations[file.Path] = file.Annotation
	}

	var files []record.FileEntry
	_ = filepath.WalkDir(studentDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || fileutil.IsOSMetadata(name) {
			if entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		files = append(files, record.FileEntry{Path: path, Annotation: annotations[path]})
		return nil
	})
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}

func changed(existing, refreshed *record.MonitoringRecord) bool {
	if existing == nil {
		return true
	}
	if len(existing.Students) != len(refreshed.Students) || existing.Status != refreshed.Status {
		return true
	}
	for i := range existing.Students {
		a, b := existing.Students[i], refreshed.Students[i]
		if a.ID != b.ID || len(a.Files) != len(b.Files) {
			return true
		}
		for j := range a.Files {
			if a.Files[j] != b.Files[j] {
				return true
			}
		}
	}
	return false
}

// RefreshCourse walks one course tree and creates or refreshes the record of
// every submission directory found. Returns the record paths touched.
func RefreshCourse(root, course string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	courseDir := filepath.Join(root, course)
	if _, err := os.Stat(courseDir); err != nil {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "refresh", "course folder "+courseDir, err)
	}

	var touched []string
	for _, recordDir := range submissionDirs(courseDir, 4) {
		rec, dirty, err := Load(root, recordDir)
		if err != nil {
			logger.Warn("submission folder skipped",
				logging.String("path", recordDir),
				logging.Error(err),
			)
			continue
		}
		if !dirty {
			continue
		}
		if err := Save(recordDir, rec); err != nil {
			logger.Warn("record not saved",
				logging.String(logging.FieldRecord, recordDir),
				logging.Error(err),
			)
			continue
		}
		touched = append(touched, filepath.Join(recordDir, layout.RecordFileName))
	}
	return touched, nil
}

// submissionDirs returns the directories exactly depth levels under base.
func submissionDirs(base string, depth int) []string {
	dirs := []string{base}
	for level := 0; level < depth; level++ {
		var next []string
		for _, dir := range dirs {
			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, entry := range entries {
				if !entry.IsDir() || fileutil.IsOSMetadata(entry.Name()) || strings.HasPrefix(entry.Name(), ".") {
					continue
				}
				next = append(next, filepath.Join(dir, entry.Name()))
			}
		}
		dirs = next
	}
	sort.Strings(dirs)
	return dirs
}

// ScanRecords walks the whole repository and returns a summary per record
// file found. Unreadable or corrupt records are skipped.
func ScanRecords(root string) ([]record.Summary, error) {
	var summaries []record.Summary
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() || entry.Name() != layout.RecordFileName {
			return nil
		}
		summary, err := record.ReadSummary(path)
		if err != nil {
			return nil
		}
		summaries = append(summaries, summary)
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "catalog", "scan", "walk repository "+root, err)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Path < summaries[j].Path })
	return summaries, nil
}
