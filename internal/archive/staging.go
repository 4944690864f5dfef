package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"tmamon/internal/fileutil"
	"tmamon/internal/record"
	"tmamon/internal/services"
)

// stageRecord copies every Yes-annotated file of every student into the flat
// staging directory, named studentID.basename. Files never flagged Yes stay
// out of the outbound archive. Flattening can collide when one student has
// two flagged files with the same base name in different subfolders; that
// aborts the attempt rather than silently dropping one of them. Any copy
// failure also aborts.
func stageRecord(rec *record.MonitoringRecord, stagingDir string) (int, error) {
	if err := os.RemoveAll(stagingDir); err != nil {
		return 0, services.Wrap(services.ErrIO, "archive", "stage", fmt.Sprintf("reset staging %q", stagingDir), err)
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return 0, services.Wrap(services.ErrIO, "archive", "stage", fmt.Sprintf("create staging %q", stagingDir), err)
	}

	staged := 0
	seen := make(map[string]string)
	for _, student := range rec.Students {
		for _, file := range student.Files {
			if file.Annotation != record.AnnotationYes {
				continue
			}
			name := student.ID + "." + filepath.Base(file.Path)
			if prior, ok := seen[name]; ok {
				return staged, services.Wrap(services.ErrConflict, "archive", "stage",
					fmt.Sprintf("staged name %q collides: %q and %q", name, prior, file.Path), nil)
			}
			seen[name] = file.Path
			target := filepath.Join(stagingDir, name)
			if err := fileutil.CopyFile(file.Path, target); err != nil {
				return staged, services.Wrap(services.ErrIO, "archive", "stage",
					fmt.Sprintf("copy %q for student %s", file.Path, student.ID), err)
			}
			staged++
		}
	}
	return staged, nil
}
