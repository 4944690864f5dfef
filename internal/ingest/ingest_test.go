package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tmamon/internal/logging"
	"tmamon/internal/pathlock"
	"tmamon/internal/services"
	"tmamon/internal/testsupport"
)

func newTestMerger(t *testing.T, confirmer services.Confirmer) (*Merger, string, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	m := NewMerger(cfg, logging.NewNop(), confirmer, pathlock.NewRegistry(), nil)
	return m, cfg.Paths.RepositoryRoot, cfg.Paths.DownloadsDir
}

func writeBatch(t *testing.T, downloads, name string, files map[string]string) string {
	t.Helper()
	source := filepath.Join(downloads, name)
	testsupport.WriteTree(t, source, files)
	return source
}

func TestImportRejectsSourceInsideRoot(t *testing.T) {
	m, root, _ := newTestMerger(t, services.NeverConfirm)
	source := filepath.Join(root, "XM123-24J")
	if err := os.MkdirAll(source, 0o755); err != nil {
		t.Fatal(err)
	}
	_, err := m.Import(context.Background(), source)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestImportRejectsNameWithoutHyphen(t *testing.T) {
	m, _, downloads := newTestMerger(t, services.NeverConfirm)
	source := writeBatch(t, downloads, "NotACourse", map[string]string{"AB/A1/essay.pdf": "x"})
	_, err := m.Import(context.Background(), source)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestImportMergesAndRelocatesSource(t *testing.T) {
	m, root, downloads := newTestMerger(t, services.NeverConfirm)
	source := writeBatch(t, downloads, "XM123-24J", map[string]string{
		"01/T1234567/AB/1/A9990001/essay.pdf": "essay",
		"01/T1234567/AB/1/A9990001/notes.txt": "notes",
	})

	result, err := m.Import(context.Background(), source)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Copied != 2 || len(result.Conflicts) != 0 || result.Skipped != 0 {
		t.Fatalf("result = %+v", result)
	}
	if result.Course != "XM123-24J" {
		t.Fatalf("course = %q", result.Course)
	}

	merged := filepath.Join(root, "XM123-24J", "01", "T1234567", "AB", "1", "A9990001", "essay.pdf")
	if _, err := os.Stat(merged); err != nil {
		t.Fatalf("merged file missing: %v", err)
	}
	if _, err := os.Stat(source); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("source still present, err=%v", err)
	}
	if result.Relocated == "" {
		t.Fatal("expected relocation path")
	}
	if _, err := os.Stat(result.Relocated); err != nil {
		t.Fatalf("relocated source missing: %v", err)
	}
}

func TestImportSecondRunReportsConflictsCopiesNothing(t *testing.T) {
	m, root, downloads := newTestMerger(t, services.NeverConfirm)
	files := map[string]string{
		"01/T1234567/AB/1/A9990001/essay.pdf": "original",
	}
	source := writeBatch(t, downloads, "XM123-24J", files)
	if _, err := m.Import(context.Background(), source); err != nil {
		t.Fatalf("first import: %v", err)
	}

	source = writeBatch(t, downloads, "XM123-24J", map[string]string{
		"01/T1234567/AB/1/A9990001/essay.pdf": "changed",
	})
	result, err := m.Import(context.Background(), source)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if result.Copied != 0 || len(result.Conflicts) != 1 {
		t.Fatalf("result = %+v", result)
	}

	merged := filepath.Join(root, "XM123-24J", "01", "T1234567", "AB", "1", "A9990001", "essay.pdf")
	content, err := os.ReadFile(merged)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "original" {
		t.Fatalf("destination overwritten: %q", content)
	}
}

func TestImportDuplicateNameNeedsConfirmation(t *testing.T) {
	m, root, downloads := newTestMerger(t, services.NeverConfirm)
	source := writeBatch(t, downloads, "XM123-24J 2", map[string]string{"01/T1/AB/1/A1/f.pdf": "x"})
	if _, err := m.Import(context.Background(), source); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("declined duplicate should abort, got %v", err)
	}
	if _, err := os.Stat(source); err != nil {
		t.Fatalf("declined import must leave the source alone: %v", err)
	}

	m.confirmer = services.AlwaysConfirm
	result, err := m.Import(context.Background(), source)
	if err != nil {
		t.Fatalf("confirmed duplicate import: %v", err)
	}
	if result.Course != "XM123-24J" {
		t.Fatalf("course = %q, want canonical name", result.Course)
	}
	if _, err := os.Stat(filepath.Join(root, "XM123-24J", "01", "T1", "AB", "1", "A1", "f.pdf")); err != nil {
		t.Fatalf("merged under canonical name: %v", err)
	}
}

func TestCanonicalCourseName(t *testing.T) {
	cases := map[string]string{
		"XM123-24J":        "XM123-24J",
		"XM123-24J 2":      "XM123-24J",
		"XM123-24J - Copy": "XM123-24J",
		"XM123-24J-2":      "XM123-24J",
		"XM123-24J.1":      "XM123-24J",
	}
	for in, want := range cases {
		if got := canonicalCourseName(in); got != want {
			t.Errorf("canonicalCourseName(%q) = %q, want %q", in, got, want)
		}
	}
}
