package layout

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Identity names one submission node in the canonical hierarchy.
type Identity struct {
	Course     string
	TMA        string
	TutorID    string
	Region     string
	Submission string
}

// ParseRecordPath inverts RecordPath: given the repository root and a path to
// a monitoring record file or its directory, it recovers the submission
// identity from the five path segments under the root.
func ParseRecordPath(root, path string) (Identity, error) {
	cleaned := filepath.Clean(path)
	if filepath.Base(cleaned) == RecordFileName {
		cleaned = filepath.Dir(cleaned)
	}
	rel, err := filepath.Rel(filepath.Clean(root), cleaned)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return Identity{}, fmt.Errorf("layout: %q is not under repository root %q", path, root)
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) != 5 {
		return Identity{}, fmt.Errorf("layout: %q has %d segments under the root, want course/tma/tutor/region/sub", path, len(parts))
	}
	return Identity{
		Course:     parts[0],
		TMA:        parts[1],
		TutorID:    parts[2],
		Region:     parts[3],
		Submission: parts[4],
	}, nil
}
