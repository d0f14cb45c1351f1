package analysis

import "context"

// Repo defines persistence operations for analysis results.
type Repo interface {
	Create(ctx context.Context, result AnalysisResult) error
	GetByID(ctx context.Context, analysisID string) (AnalysisResult, error)
	// GetLatestByReport returns the newest result row for a report.
	// Re-analysis creates a new row that supersedes older ones.
	GetLatestByReport(ctx context.Context, reportID string) (AnalysisResult, error)
	// Upsert replaces the stored result for the row's ID.
	Upsert(ctx context.Context, result AnalysisResult) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]AnalysisResult, error)
	DeleteByReport(ctx context.Context, reportID string) error
}
