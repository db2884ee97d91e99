package store

import (
	"context"
	"time"

	"github.com/pavelanni/examgen/internal/model"
)

// RecordExport logs a successful export of a stored exam.
func (s *Store) RecordExport(ctx context.Context, rec model.ExportRecord) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO exports (exam_id, format, file_name, size, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ExamID, rec.Format, rec.FileName, rec.Size, rec.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListExports returns the export log of an exam, newest first.
func (s *Store) ListExports(ctx context.Context, examID string) ([]model.ExportRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, exam_id, format, file_name, size, created_at FROM exports
		 WHERE exam_id = ? ORDER BY created_at DESC, id DESC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []model.ExportRecord
	for rows.Next() {
		var r model.ExportRecord
		if err := rows.Scan(&r.ID, &r.ExamID, &r.Format, &r.FileName, &r.Size, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
