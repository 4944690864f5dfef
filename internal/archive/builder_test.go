package archive

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tmamon/internal/config"
	"tmamon/internal/layout"
	"tmamon/internal/logging"
	"tmamon/internal/pathlock"
	"tmamon/internal/record"
	"tmamon/internal/services"
	"tmamon/internal/testsupport"
)

func newTestBuilder(t *testing.T) (*Builder, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return NewBuilder(cfg, logging.NewNop(), pathlock.NewRegistry(), nil), cfg
}

// seedRecord writes a ready-to-return record with one Yes-annotated file and
// returns the record path.
func seedRecord(t *testing.T, cfg *config.Config, tutorID, subNo string) string {
	t.Helper()
	recordDir, err := layout.RecordDir(cfg.Paths.RepositoryRoot, "XM123-24J", "01", tutorID, "AB", subNo)
	if err != nil {
		t.Fatal(err)
	}
	studentDir := filepath.Join(recordDir, "A9990001")
	if err := os.MkdirAll(studentDir, 0o755); err != nil {
		t.Fatal(err)
	}
	essay := filepath.Join(studentDir, "essay.pdf")
	if err := os.WriteFile(essay, []byte("essay "+subNo), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := &record.MonitoringRecord{
		TutorID:    tutorID,
		Course:     "XM123-24J",
		TMA:        "01",
		Region:     "AB",
		Submission: subNo,
		Comment:    "Marking consistent.",
		Students: []record.StudentEntry{{
			ID:            "A9990001",
			MarkingGrade:  "2",
			FeedbackGrade: "2",
			Complete:      "Y",
			Files:         []record.FileEntry{{Path: essay, Annotation: record.AnnotationYes}},
		}},
	}
	rec.Recompute()
	recordPath := filepath.Join(recordDir, layout.RecordFileName)
	if err := record.WriteFile(recordPath, rec); err != nil {
		t.Fatal(err)
	}
	return recordPath
}

func TestReturnRecordGatesUnreadyRecord(t *testing.T) {
	b, cfg := newTestBuilder(t)
	recordPath := seedRecord(t, cfg, "T1234567", "1")

	rec, err := record.ReadFile(recordPath)
	if err != nil {
		t.Fatal(err)
	}
	rec.Students[0].Complete = ""
	if err := record.WriteFile(recordPath, rec); err != nil {
		t.Fatal(err)
	}

	_, err = b.ReturnRecord(context.Background(), recordPath, false)
	if !errors.Is(err, services.ErrGating) {
		t.Fatalf("expected ErrGating, got %v", err)
	}
	reloaded, err := record.ReadFile(recordPath)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Status == record.StatusZipped {
		t.Fatal("gated record must not become zipped")
	}
}

func TestReturnRecordEmptyCommentOverride(t *testing.T) {
	b, cfg := newTestBuilder(t)
	recordPath := seedRecord(t, cfg, "T1234567", "1")

	rec, err := record.ReadFile(recordPath)
	if err != nil {
		t.Fatal(err)
	}
	rec.Comment = ""
	if err := record.WriteFile(recordPath, rec); err != nil {
		t.Fatal(err)
	}

	if _, err := b.ReturnRecord(context.Background(), recordPath, false); !errors.Is(err, services.ErrGating) {
		t.Fatalf("expected ErrGating for empty comment, got %v", err)
	}
	if _, err := b.ReturnRecord(context.Background(), recordPath, true); err != nil {
		t.Fatalf("override should pass: %v", err)
	}
}

func TestReturnRecordProducesArchiveAndZipsStatus(t *testing.T) {
	b, cfg := newTestBuilder(t)
	recordPath := seedRecord(t, cfg, "T1234567", "1")

	result, err := b.ReturnRecord(context.Background(), recordPath, false)
	if err != nil {
		t.Fatalf("ReturnRecord: %v", err)
	}
	if result.Staged != 1 {
		t.Fatalf("staged = %d", result.Staged)
	}
	if _, err := os.Stat(result.ArchivePath); err != nil {
		t.Fatalf("archive missing: %v", err)
	}
	if filepath.Dir(result.ArchivePath) != cfg.Paths.ReturnsDir {
		t.Fatalf("archive outside returns dir: %q", result.ArchivePath)
	}

	reloaded, err := record.ReadFile(recordPath)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Status != record.StatusZipped {
		t.Fatalf("status = %q, want zipped", reloaded.Status)
	}
	if reloaded.Zip.ArchiveFile != filepath.Base(result.ArchivePath) {
		t.Fatalf("zip metadata = %+v", reloaded.Zip)
	}

	stagingDir, err := layout.StagingPath(cfg.Paths.StagingRoot, "T1234567", "XM123-24J", "01", "AB", "1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(stagingDir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("staging dir should be removed, err=%v", err)
	}

	entries, err := os.ReadDir(cfg.Paths.StagingRoot)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		t.Fatalf("holding area left behind: %s", entry.Name())
	}
}

func TestReturnBatchCountsNotReady(t *testing.T) {
	b, cfg := newTestBuilder(t)
	ready := seedRecord(t, cfg, "T1111111", "1")
	unready := seedRecord(t, cfg, "T2222222", "1")

	rec, err := record.ReadFile(unready)
	if err != nil {
		t.Fatal(err)
	}
	rec.Students[0].FeedbackGrade = ""
	if err := record.WriteFile(unready, rec); err != nil {
		t.Fatal(err)
	}

	result, err := b.ReturnBatch(context.Background(), []string{ready, unready}, false)
	if err != nil {
		t.Fatalf("ReturnBatch: %v", err)
	}
	if result.Returned != 1 || result.NotReady != 1 {
		t.Fatalf("result = %+v", result)
	}
	if _, err := os.Stat(result.ArchivePath); err != nil {
		t.Fatalf("combined archive missing: %v", err)
	}

	zipped, err := record.ReadFile(ready)
	if err != nil {
		t.Fatal(err)
	}
	if zipped.Status != record.StatusZipped {
		t.Fatalf("ready record status = %q", zipped.Status)
	}
	untouched, err := record.ReadFile(unready)
	if err != nil {
		t.Fatal(err)
	}
	if untouched.Status == record.StatusZipped {
		t.Fatal("unready record must be untouched")
	}
}

func TestReturnBatchAllUnreadyIsGatingError(t *testing.T) {
	b, cfg := newTestBuilder(t)
	recordPath := seedRecord(t, cfg, "T1234567", "1")

	rec, err := record.ReadFile(recordPath)
	if err != nil {
		t.Fatal(err)
	}
	rec.Students[0].Complete = "N"
	if err := record.WriteFile(recordPath, rec); err != nil {
		t.Fatal(err)
	}

	_, err = b.ReturnBatch(context.Background(), []string{recordPath}, false)
	if !errors.Is(err, services.ErrGating) {
		t.Fatalf("expected ErrGating, got %v", err)
	}
}

// Two submissions for the same tutor and TMA must each contribute their own
// inner zip to the combined archive; neither may overwrite the other's staged
// files.
func TestReturnBatchKeepsSameTutorSubmissionsApart(t *testing.T) {
	b, cfg := newTestBuilder(t)
	first := seedRecord(t, cfg, "T1234567", "1")
	second := seedRecord(t, cfg, "T1234567", "2")

	result, err := b.ReturnBatch(context.Background(), []string{first, second}, false)
	if err != nil {
		t.Fatalf("ReturnBatch: %v", err)
	}
	if result.Returned != 2 || result.NotReady != 0 {
		t.Fatalf("result = %+v", result)
	}

	reader, err := zip.OpenReader(result.ArchivePath)
	if err != nil {
		t.Fatalf("open combined archive: %v", err)
	}
	defer reader.Close()
	entries := make(map[string]uint64, len(reader.File))
	for _, file := range reader.File {
		entries[file.Name] = file.UncompressedSize64
	}
	if len(entries) != 2 {
		t.Fatalf("combined archive entries = %v", entries)
	}
	for _, name := range []string{"T1234567.XM123-24J.01.AB.1.zip", "T1234567.XM123-24J.01.AB.2.zip"} {
		size, ok := entries[name]
		if !ok {
			t.Fatalf("combined archive missing %q: %v", name, entries)
		}
		if size == 0 {
			t.Fatalf("inner zip %q is empty", name)
		}
	}

	for _, recordPath := range []string{first, second} {
		reloaded, err := record.ReadFile(recordPath)
		if err != nil {
			t.Fatal(err)
		}
		if reloaded.Status != record.StatusZipped {
			t.Fatalf("record %s status = %q", recordPath, reloaded.Status)
		}
	}
}

// A student with two Yes-annotated files sharing a base name would collide in
// the flat staging dir; the return must abort instead of dropping one.
func TestReturnRecordAbortsOnStagedNameCollision(t *testing.T) {
	b, cfg := newTestBuilder(t)
	recordPath := seedRecord(t, cfg, "T1234567", "1")

	rec, err := record.ReadFile(recordPath)
	if err != nil {
		t.Fatal(err)
	}
	studentDir := filepath.Join(filepath.Dir(recordPath), "A9990001")
	for _, part := range []string{"part1", "part2"} {
		dup := filepath.Join(studentDir, part, "essay.pdf")
		if err := os.MkdirAll(filepath.Dir(dup), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(dup, []byte(part), 0o644); err != nil {
			t.Fatal(err)
		}
		rec.Students[0].Files = append(rec.Students[0].Files,
			record.FileEntry{Path: dup, Annotation: record.AnnotationYes})
	}
	rec.Students[0].Files = rec.Students[0].Files[1:] // keep only the colliding pair
	if err := record.WriteFile(recordPath, rec); err != nil {
		t.Fatal(err)
	}

	_, err = b.ReturnRecord(context.Background(), recordPath, false)
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	reloaded, err := record.ReadFile(recordPath)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Status == record.StatusZipped {
		t.Fatal("colliding record must not become zipped")
	}
	if reloaded.Zip != (record.ZipMetadata{}) {
		t.Fatalf("zip metadata left behind: %+v", reloaded.Zip)
	}
}
