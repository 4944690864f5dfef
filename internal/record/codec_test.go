package record_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"tmamon/internal/record"
	"tmamon/internal/services"
)

func sampleRecord() *record.MonitoringRecord {
	r := &record.MonitoringRecord{
		TutorID:    "T1234567",
		TutorName:  "Pat Example",
		Region:     "AB",
		Course:     "XM123-24J",
		TMA:        "01",
		Submission: "1",
		Comment:    "Good marking overall.",
		Status:     record.StatusUnmonitored,
		Students: []record.StudentEntry{
			{
				ID:            "A9990001",
				Forename:      "Sam",
				Surname:       "Student",
				MarkingGrade:  "2",
				FeedbackGrade: "1",
				Complete:      "Y",
				Sent:          "01/02/2025",
				Received:      "03/02/2025",
				Files: []record.FileEntry{
					{Path: "/repo/XM123-24J/01/T1234567/AB/1/A9990001/essay.pdf", Annotation: record.AnnotationYes},
					{Path: "/repo/XM123-24J/01/T1234567/AB/1/A9990001/notes.txt", Annotation: record.AnnotationBlank},
				},
			},
			{ID: "A9990002", Forename: "Lee", Surname: "Learner"},
		},
	}
	r.Ratings[0] = "Y"
	r.Ratings[4] = "N"
	return r
}

func TestRoundTrip(t *testing.T) {
	original := sampleRecord()
	data, err := record.Encode(original)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := record.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	decoded.Created = original.Created
	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", decoded, original)
	}
}

func TestRoundTripReservedCharacters(t *testing.T) {
	comments := []string{
		"marks < expectations & feedback > none",
		"contains a literal <comment> tag",
		"a&b&c",
		"<<>>&",
		"plain text only",
	}
	for _, comment := range comments {
		r := sampleRecord()
		r.Comment = comment
		data, err := record.Encode(r)
		if err != nil {
			t.Fatalf("Encode(%q): %v", comment, err)
		}
		// Raw structural characters must not leak into the stored comment.
		if bytes.Contains(data, []byte("<comment>"+comment)) && (bytes.ContainsRune([]byte(comment), '<') || bytes.ContainsRune([]byte(comment), '>')) {
			t.Fatalf("comment %q stored unescaped", comment)
		}
		decoded, err := record.Decode(data)
		if err != nil {
			t.Fatalf("Decode(%q): %v", comment, err)
		}
		if decoded.Comment != comment {
			t.Fatalf("comment round trip = %q, want %q", decoded.Comment, comment)
		}
	}
}

func TestDecodeStripsControlCharacters(t *testing.T) {
	r := sampleRecord()
	data, err := record.Encode(r)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Inject the kind of stray control bytes legacy writers leave behind.
	corrupted := bytes.ReplaceAll(data, []byte("Pat Example"), []byte("Pat\x07 Example"))
	decoded, err := record.Decode(corrupted)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.TutorName != "Pat Example" {
		t.Fatalf("tutor name = %q", decoded.TutorName)
	}
}

func TestDecodeTruncatedIsCorrupt(t *testing.T) {
	data, err := record.Encode(sampleRecord())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, err = record.Decode(data[:len(data)/2])
	if !errors.Is(err, services.ErrCorruptRecord) {
		t.Fatalf("expected ErrCorruptRecord, got %v", err)
	}
}

func TestDecodeMissingBlocksYieldEmptyFields(t *testing.T) {
	raw := "<monitor_record>\n<header><version>1</version></header>\n</monitor_record>\n"
	decoded, err := record.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.TutorID != "" || decoded.Comment != "" {
		t.Fatalf("expected empty fields, got %+v", decoded)
	}
	if decoded.Status != record.StatusUnmonitored {
		t.Fatalf("status = %q, want unmonitored default", decoded.Status)
	}
}

func TestReadFileNotFound(t *testing.T) {
	_, err := record.ReadFile(filepath.Join(t.TempDir(), "monitor.fhi"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWriteFileReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.fhi")
	original := sampleRecord()
	if err := record.WriteFile(path, original); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	loaded, err := record.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if loaded.TutorID != original.TutorID || len(loaded.Students) != 2 {
		t.Fatalf("loaded = %+v", loaded)
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp file left behind, err=%v", err)
	}
}

func TestReadSummaryFirstLineAndAmpersand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.fhi")
	r := sampleRecord()
	r.Comment = "Marks & comments fine\nsecond line ignored"
	if err := record.WriteFile(path, r); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	summary, err := record.ReadSummary(path)
	if err != nil {
		t.Fatalf("ReadSummary: %v", err)
	}
	if summary.Comment != "Marks & comments fine" {
		t.Fatalf("summary comment = %q", summary.Comment)
	}
	if summary.Students != 2 || summary.Course != "XM123-24J" {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestWindows1252Encoding(t *testing.T) {
	r := sampleRecord()
	r.TutorName = "Zoë Tutor"
	data, err := record.Encode(r)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// ë is a single byte (0xEB) in Windows-1252, not the two-byte UTF-8 form.
	if !bytes.Contains(data, []byte{'Z', 'o', 0xEB}) {
		t.Fatal("expected single-byte Windows-1252 encoding")
	}
	decoded, err := record.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.TutorName != "Zoë Tutor" {
		t.Fatalf("tutor name = %q", decoded.TutorName)
	}
}
