// Package layout maps course, TMA, tutor, region, and submission identifiers
// to canonical filesystem paths. The hierarchy is exchanged with external
// tooling and the portal, so these joins are part of the durable contract.
// No function here touches the filesystem; callers own existence checks.
package layout

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RecordFileName is the per-submission monitoring record file.
const RecordFileName = "monitor.fhi"

// RecordDir returns root/course/tma/tutorID/region/subNo.
func RecordDir(root, course, tma, tutorID, region, subNo string) (string, error) {
	if err := checkComponents(map[string]string{
		"root":   root,
		"course": course,
		"tma":    tma,
		"tutor":  tutorID,
		"region": region,
		"sub":    subNo,
	}); err != nil {
		return "", err
	}
	return filepath.Join(root, course, tma, tutorID, region, subNo), nil
}

// RecordPath returns the monitoring record file path for a submission.
func RecordPath(root, course, tma, tutorID, region, subNo string) (string, error) {
	dir, err := RecordDir(root, course, tma, tutorID, region, subNo)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, RecordFileName), nil
}

// StagingPath returns the flat per-submission staging directory used to
// accumulate files selected for return:
// stagingRoot/tutorID.course.tma.region.subNo. Region and submission are part
// of the name so two submissions for the same tutor and TMA never share a
// staging area.
func StagingPath(stagingRoot, tutorID, course, tma, region, subNo string) (string, error) {
	if err := checkComponents(map[string]string{
		"staging root": stagingRoot,
		"tutor":        tutorID,
		"course":       course,
		"tma":          tma,
		"region":       region,
		"sub":          subNo,
	}); err != nil {
		return "", err
	}
	return filepath.Join(stagingRoot, tutorID+"."+course+"."+tma+"."+region+"."+subNo), nil
}

// StudentPath returns the student submission folder inside a record directory.
func StudentPath(recordDir, studentID string) (string, error) {
	if err := checkComponents(map[string]string{
		"record dir": recordDir,
		"student":    studentID,
	}); err != nil {
		return "", err
	}
	return filepath.Join(recordDir, studentID), nil
}

func checkComponents(components map[string]string) error {
	for name, value := range components {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("layout: %s must not be empty", name)
		}
		// Roots and the record dir are full paths; identifiers must stay
		// single path segments.
		if name == "root" || name == "staging root" || name == "record dir" {
			continue
		}
		if strings.ContainsAny(value, `/\`) {
			return fmt.Errorf("layout: %s %q must not contain path separators", name, value)
		}
	}
	return nil
}
