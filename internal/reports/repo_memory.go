package reports

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of ReportsRepo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]Report // userID -> reports
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string][]Report),
	}
}

// Create stores a new report for a user.
func (r *MemoryRepo) Create(ctx context.Context, rep Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[rep.UserID] = append(r.data[rep.UserID], rep)
	return nil
}

// GetByID returns a report by ID for a user.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, reportID string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	reps := r.data[userID]
	for i := range reps {
		if reps[i].ID == reportID {
			return reps[i], nil
		}
	}
	return Report{}, ErrNotFound
}

// UpdateStatus sets the status of a report regardless of owner. The
// worker updates status without knowing the user.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, reportID string, status Status, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, reps := range r.data {
		for i := range reps {
			if reps[i].ID == reportID {
				reps[i].Status = status
				reps[i].UpdatedAt = updatedAt
				r.data[userID] = reps
				return nil
			}
		}
	}
	return ErrNotFound
}

// Delete removes a report owned by a user.
func (r *MemoryRepo) Delete(ctx context.Context, userID, reportID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	reps := r.data[userID]
	for i := range reps {
		if reps[i].ID == reportID {
			r.data[userID] = append(reps[:i:i], reps[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// ListByUser returns reports for a user, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Report, error) {
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
	userReps := r.data[userID]
	r.mu.RUnlock()

	if len(userReps) == 0 || offset >= len(userReps) {
		return []Report{}, nil
	}

	// Copy and sort newest-first by CreatedAt.
	reps := make([]Report, len(userReps))
	copy(reps, userReps)
	sort.Slice(reps, func(i, j int) bool {
		return reps[i].CreatedAt.After(reps[j].CreatedAt)
	})

	end := len(reps)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return reps[offset:end], nil
}
