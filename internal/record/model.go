package record

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a monitoring record.
type Status string

const (
	StatusUnmonitored Status = "unmonitored"
	StatusMonitored   Status = "monitored"
	StatusZipped      Status = "zipped"
)

var allStatuses = []Status{StatusUnmonitored, StatusMonitored, StatusZipped}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if normalized == status {
			return status, true
		}
	}
	return "", false
}

// Annotation is the per-file annotated marker. Blank means "not yet decided";
// only Yes-annotated files are staged for return.
type Annotation string

const (
	AnnotationYes   Annotation = "Y"
	AnnotationNo    Annotation = "N"
	AnnotationBlank Annotation = ""
)

// RatingFlagCount is the fixed length of the per-record rating flag list.
const RatingFlagCount = 10

// GradeScale lists the cyclic options for the two per-student grading
// categories. The empty value means "not yet graded".
var GradeScale = []string{"", "1", "2", "3", "4", "5"}

// NextGrade returns the grade following value in the cycle, wrapping to blank.
func NextGrade(value string) string {
	for i, grade := range GradeScale {
		if grade == value {
			return GradeScale[(i+1)%len(GradeScale)]
		}
	}
	return GradeScale[0]
}

// FileEntry describes one physical file under a student's submission folder.
type FileEntry struct {
	Path       string
	Annotation Annotation
}

// StudentEntry is one student's row within a monitoring record. It is owned
// exclusively by its record and replaced wholesale on re-import.
type StudentEntry struct {
	ID            string
	Forename      string
	Surname       string
	MarkingGrade  string
	FeedbackGrade string
	Complete      string // "Y", "N", or blank; direct operator input
	Sent          string
	Received      string
	Files         []FileEntry
}

// Annotated reports whether at least one owned file carries a Yes annotation.
func (s StudentEntry) Annotated() bool {
	for _, file := range s.Files {
		if file.Annotation == AnnotationYes {
			return true
		}
	}
	return false
}

// Ready reports whether the student row passes the archive gates: both
// grading categories set and completion confirmed.
func (s StudentEntry) Ready() bool {
	return strings.TrimSpace(s.MarkingGrade) != "" &&
		strings.TrimSpace(s.FeedbackGrade) != "" &&
		s.Complete == "Y"
}

// ZipMetadata records the archive produced for a Zipped record.
type ZipMetadata struct {
	Date        string
	ArchivePath string
	ArchiveFile string
}

// MonitoringRecord is the per-tutor-submission monitoring state persisted as
// the monitor.fhi file in the canonical repository.
type MonitoringRecord struct {
	TutorID   string
	TutorName string
	Region    string

	Course     string // module code plus presentation, e.g. XM123-24J
	TMA        string
	Submission string

	Comment string
	Ratings [RatingFlagCount]string

	Students []StudentEntry

	Status Status
	Zip    ZipMetadata

	Created time.Time
}

// Clone returns a deep copy, used to stage in-memory status changes that are
// only committed once an archive operation succeeds.
func (r *MonitoringRecord) Clone() *MonitoringRecord {
	cp := *r
	cp.Students = make([]StudentEntry, len(r.Students))
	for i, student := range r.Students {
		cp.Students[i] = student
		cp.Students[i].Files = append([]FileEntry(nil), student.Files...)
	}
	return &cp
}

// ClearZipMetadata wipes archive metadata, used when a Zipped record
// regresses or an archive attempt fails partway.
func (r *MonitoringRecord) ClearZipMetadata() {
	r.Zip = ZipMetadata{}
}
