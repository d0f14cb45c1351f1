package reports

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements ReportsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new report.
func (r *PGRepo) Create(ctx context.Context, rep Report) error {
	const query = `
INSERT INTO reports (
    id,
    user_id,
    file_name,
    mime_type,
    size_bytes,
    storage_provider,
    storage_key,
    report_type,
    status,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	storageProvider := rep.StorageProvider
	if storageProvider == "" {
		storageProvider = "local"
	}
	reportType := rep.ReportType
	if reportType == "" {
		reportType = "general"
	}
	status := rep.Status
	if status == "" {
		status = StatusUploaded
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		rep.ID,
		rep.UserID,
		rep.FileName,
		rep.MimeType,
		rep.SizeBytes,
		storageProvider,
		rep.StorageKey,
		reportType,
		string(status),
		rep.CreatedAt,
		rep.UpdatedAt,
	)
	return err
}

const selectColumns = `
id, user_id, file_name, mime_type, size_bytes, storage_provider, storage_key, report_type, status, created_at, updated_at`

func scanReport(row interface{ Scan(dest ...any) error }) (Report, error) {
	var rep Report
	var status string
	err := row.Scan(
		&rep.ID,
		&rep.UserID,
		&rep.FileName,
		&rep.MimeType,
		&rep.SizeBytes,
		&rep.StorageProvider,
		&rep.StorageKey,
		&rep.ReportType,
		&status,
		&rep.CreatedAt,
		&rep.UpdatedAt,
	)
	if err != nil {
		return Report{}, err
	}
	rep.Status = Status(status)
	return rep, nil
}

// GetByID returns a report by ID scoped to its owner.
func (r *PGRepo) GetByID(ctx context.Context, userID, reportID string) (Report, error) {
	const query = `
SELECT` + selectColumns + `
FROM reports
WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`
	rep, err := scanReport(r.DB.QueryRowContext(ctx, query, reportID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Report{}, ErrNotFound
		}
		return Report{}, err
	}
	return rep, nil
}

// ListByUser returns reports for a user, newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Report, error) {
	const query = `
SELECT` + selectColumns + `
FROM reports
WHERE user_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reps := make([]Report, 0, limit)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reps = append(reps, rep)
	}
	return reps, rows.Err()
}

// UpdateStatus sets the status and updated_at of a report.
func (r *PGRepo) UpdateStatus(ctx context.Context, reportID string, status Status, updatedAt time.Time) error {
	const query = `
UPDATE reports
SET status = $2, updated_at = $3
WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, reportID, string(status), updatedAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete soft-deletes a report owned by a user.
func (r *PGRepo) Delete(ctx context.Context, userID, reportID string) error {
	const query = `
UPDATE reports
SET deleted_at = NOW()
WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, reportID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

var _ ReportsRepo = (*PGRepo)(nil)
