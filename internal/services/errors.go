package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks operations aborted before any side effect because
	// their input was rejected (bad import folder name, source inside the
	// repository, malformed identifiers).
	ErrValidation = errors.New("validation error")
	// ErrConflict marks non-fatal merge collisions that are collected and
	// reported once per import run.
	ErrConflict = errors.New("conflict")
	// ErrCorruptRecord marks a monitoring record file that failed to decode.
	// Callers treat the record as absent rather than propagating a crash.
	ErrCorruptRecord = errors.New("corrupt record")
	// ErrGating marks an archive request whose grading, completion, or
	// comment preconditions were unmet.
	ErrGating = errors.New("gating error")
	// ErrIO marks copy, zip, or unzip failures.
	ErrIO = errors.New("io error")
	// ErrNotFound marks missing records, folders, or archives.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Aborts reports whether an error should stop the requested operation.
// Conflicts are accumulated and reported at the end of a run instead.
func Aborts(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrConflict):
		return false
	default:
		return true
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "operation failure"
	}
	return strings.Join(parts, ": ")
}
