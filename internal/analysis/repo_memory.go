package analysis

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores analysis results in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu       sync.RWMutex
	byID     map[string]AnalysisResult
	byReport map[string][]string // reportID -> result IDs, insertion order
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:     make(map[string]AnalysisResult),
		byReport: make(map[string][]string),
	}
}

// Create stores a new result row.
func (r *MemoryRepo) Create(ctx context.Context, result AnalysisResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[result.ID]; !exists {
		r.byReport[result.ReportID] = append(r.byReport[result.ReportID], result.ID)
	}
	r.byID[result.ID] = result
	return nil
}

// Upsert replaces the stored result for the row's ID, creating it if needed.
func (r *MemoryRepo) Upsert(ctx context.Context, result AnalysisResult) error {
	return r.Create(ctx, result)
}

// GetByID returns a result by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, analysisID string) (AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return AnalysisResult{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.byID[analysisID]
	if !ok {
		return AnalysisResult{}, ErrNotFound
	}
	return result, nil
}

// GetLatestByReport returns the newest result row for a report.
func (r *MemoryRepo) GetLatestByReport(ctx context.Context, reportID string) (AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return AnalysisResult{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byReport[reportID]
	if len(ids) == 0 {
		return AnalysisResult{}, ErrNotFound
	}
	return r.byID[ids[len(ids)-1]], nil
}

// ListByUser returns results for a user, newest first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	results := make([]AnalysisResult, 0)
	for _, res := range r.byID {
		if res.UserID == userID {
			results = append(results, res)
		}
	}
	r.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if offset >= len(results) {
		return []AnalysisResult{}, nil
	}
	end := len(results)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return results[offset:end], nil
}

// DeleteByReport removes all result rows for a report.
func (r *MemoryRepo) DeleteByReport(ctx context.Context, reportID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.byReport[reportID] {
		delete(r.byID, id)
	}
	delete(r.byReport, reportID)
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
