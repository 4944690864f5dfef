package layout_test

import (
	"path/filepath"
	"testing"

	"tmamon/internal/layout"
)

func TestRecordPath(t *testing.T) {
	got, err := layout.RecordPath("/repo", "XM123-24J", "01", "T1234567", "AB", "1")
	if err != nil {
		t.Fatalf("RecordPath: %v", err)
	}
	want := filepath.Join("/repo", "XM123-24J", "01", "T1234567", "AB", "1", "monitor.fhi")
	if got != want {
		t.Fatalf("RecordPath = %q, want %q", got, want)
	}
}

func TestStagingPathIsFlat(t *testing.T) {
	got, err := layout.StagingPath("/staging", "T1234567", "XM123-24J", "01", "AB", "1")
	if err != nil {
		t.Fatalf("StagingPath: %v", err)
	}
	want := filepath.Join("/staging", "T1234567.XM123-24J.01.AB.1")
	if got != want {
		t.Fatalf("StagingPath = %q, want %q", got, want)
	}
}

func TestStagingPathDiffersPerSubmission(t *testing.T) {
	first, err := layout.StagingPath("/staging", "T1234567", "XM123-24J", "01", "AB", "1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := layout.StagingPath("/staging", "T1234567", "XM123-24J", "01", "AB", "2")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatalf("submissions share staging dir %q", first)
	}
}

func TestStudentPath(t *testing.T) {
	got, err := layout.StudentPath("/repo/XM123-24J/01/T1/AB/1", "A9990001")
	if err != nil {
		t.Fatalf("StudentPath: %v", err)
	}
	if filepath.Base(got) != "A9990001" {
		t.Fatalf("StudentPath = %q", got)
	}
}

func TestRejectsEmptyComponents(t *testing.T) {
	if _, err := layout.RecordPath("/repo", "", "01", "T1", "AB", "1"); err == nil {
		t.Fatal("expected error for empty course")
	}
	if _, err := layout.StagingPath("", "T1", "XM123-24J", "01", "AB", "1"); err == nil {
		t.Fatal("expected error for empty staging root")
	}
}

func TestParseRecordPathInvertsRecordPath(t *testing.T) {
	recordPath, err := layout.RecordPath("/repo", "XM123-24J", "01", "T1234567", "AB", "1")
	if err != nil {
		t.Fatal(err)
	}
	id, err := layout.ParseRecordPath("/repo", recordPath)
	if err != nil {
		t.Fatalf("ParseRecordPath: %v", err)
	}
	want := layout.Identity{Course: "XM123-24J", TMA: "01", TutorID: "T1234567", Region: "AB", Submission: "1"}
	if id != want {
		t.Fatalf("identity = %+v, want %+v", id, want)
	}

	// The submission directory parses the same as the record file.
	id, err = layout.ParseRecordPath("/repo", filepath.Dir(recordPath))
	if err != nil {
		t.Fatal(err)
	}
	if id != want {
		t.Fatalf("identity from dir = %+v", id)
	}
}

func TestParseRecordPathRejectsForeignAndShallowPaths(t *testing.T) {
	if _, err := layout.ParseRecordPath("/repo", "/elsewhere/XM123-24J/01/T1/AB/1"); err == nil {
		t.Fatal("expected error for path outside root")
	}
	if _, err := layout.ParseRecordPath("/repo", "/repo/XM123-24J/AB"); err == nil {
		t.Fatal("expected error for shallow path")
	}
}

func TestRejectsSeparatorsInIdentifiers(t *testing.T) {
	if _, err := layout.RecordPath("/repo", "XM123-24J", "01", "../T1", "AB", "1"); err == nil {
		t.Fatal("expected error for separator in tutor id")
	}
	if _, err := layout.StudentPath("/repo/dir", "a/b"); err == nil {
		t.Fatal("expected error for separator in student id")
	}
}
