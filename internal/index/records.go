package index

import (
	"context"
	"fmt"
	"time"

	"tmamon/internal/pathlock"
	"tmamon/internal/record"
)

// UpsertSummary inserts or replaces the cached row for one record path.
func (s *Store) UpsertSummary(ctx context.Context, summary record.Summary) error {
	return s.execWithRetry(ctx, `
		INSERT INTO records (path, course, tma, tutor_id, region, submission, status, students, comment, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			course = excluded.course,
			tma = excluded.tma,
			tutor_id = excluded.tutor_id,
			region = excluded.region,
			submission = excluded.submission,
			status = excluded.status,
			students = excluded.students,
			comment = excluded.comment,
			updated_at = excluded.updated_at`,
		pathlock.Canonical(summary.Path), summary.Course, summary.TMA, summary.TutorID,
		summary.Region, summary.Submission, string(summary.Status), summary.Students,
		summary.Comment, time.Now().UTC().Format(time.RFC3339))
}

// DeleteRecord removes one cached row.
func (s *Store) DeleteRecord(ctx context.Context, path string) error {
	return s.execWithRetry(ctx, "DELETE FROM records WHERE path = ?", pathlock.Canonical(path))
}

// ReplaceAll rebuilds the record cache from a full repository scan.
func (s *Store) ReplaceAll(ctx context.Context, summaries []record.Summary) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin refresh tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, "DELETE FROM records"); err != nil {
			return fmt.Errorf("clear records: %w", err)
		}
		now := time.Now().UTC().Format(time.RFC3339)
		for _, summary := range summaries {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO records (path, course, tma, tutor_id, region, submission, status, students, comment, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				pathlock.Canonical(summary.Path), summary.Course, summary.TMA, summary.TutorID,
				summary.Region, summary.Submission, string(summary.Status), summary.Students,
				summary.Comment, now); err != nil {
				return fmt.Errorf("insert record %q: %w", summary.Path, err)
			}
		}
		return tx.Commit()
	})
}

// ListRecords returns cached rows, optionally filtered by course and status.
// Empty filter values match everything.
func (s *Store) ListRecords(ctx context.Context, course string, status record.Status) ([]record.Summary, error) {
	ctx = ensureContext(ctx)
	query := `
		SELECT path, course, tma, tutor_id, region, submission, status, students, comment
		FROM records WHERE 1=1`
	args := []any{}
	if course != "" {
		query += " AND course = ?"
		args = append(args, course)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY course, tma, tutor_id, region, submission"

	var summaries []record.Summary
	err := retryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		summaries = summaries[:0]
		for rows.Next() {
			var summary record.Summary
			var status string
			if err := rows.Scan(&summary.Path, &summary.Course, &summary.TMA, &summary.TutorID,
				&summary.Region, &summary.Submission, &status, &summary.Students, &summary.Comment); err != nil {
				return err
			}
			summary.Status = record.Status(status)
			summaries = append(summaries, summary)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return summaries, nil
}

// CountByStatus returns the number of cached records per status.
func (s *Store) CountByStatus(ctx context.Context) (map[record.Status]int, error) {
	ctx = ensureContext(ctx)
	counts := make(map[record.Status]int)
	err := retryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM records GROUP BY status")
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var status string
			var count int
			if err := rows.Scan(&status, &count); err != nil {
				return err
			}
			counts[record.Status(status)] = count
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	return counts, nil
}
