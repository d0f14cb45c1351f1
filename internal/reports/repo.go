package reports

import (
	"context"
	"time"
)

// ReportsRepo defines persistence operations for reports.
type ReportsRepo interface {
	Create(ctx context.Context, rep Report) error
	GetByID(ctx context.Context, userID, reportID string) (Report, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Report, error)
	UpdateStatus(ctx context.Context, reportID string, status Status, updatedAt time.Time) error
	Delete(ctx context.Context, userID, reportID string) error
}
