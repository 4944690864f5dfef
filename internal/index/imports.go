package index

import (
	"context"
	"fmt"
	"time"

	"tmamon/internal/ingest"
)

// RecordImport persists one completed merge. Implements ingest.HistoryRecorder.
func (s *Store) RecordImport(ctx context.Context, rec ingest.ImportRecord) error {
	return s.execWithRetry(ctx, `
		INSERT INTO imports (batch_id, source, destination, copied, skipped, conflicts, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.BatchID, rec.Source, rec.Destination, rec.Copied, rec.Skipped, rec.Conflicts,
		rec.CompletedAt.UTC().Format(time.RFC3339))
}

// ListImports returns the most recent imports, newest first.
func (s *Store) ListImports(ctx context.Context, limit int) ([]ingest.ImportRecord, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 50
	}

	var records []ingest.ImportRecord
	err := retryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT batch_id, source, destination, copied, skipped, conflicts, completed_at
			FROM imports ORDER BY id DESC LIMIT ?`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		records = records[:0]
		for rows.Next() {
			var rec ingest.ImportRecord
			var completed string
			if err := rows.Scan(&rec.BatchID, &rec.Source, &rec.Destination,
				&rec.Copied, &rec.Skipped, &rec.Conflicts, &completed); err != nil {
				return err
			}
			if parsed, err := time.Parse(time.RFC3339, completed); err == nil {
				rec.CompletedAt = parsed
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	return records, nil
}
