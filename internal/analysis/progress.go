package analysis

import "sync"

// Progress stage names exposed to clients.
const (
	StageUploading  = "uploading"
	StageProcessing = "processing"
	StageCompleted  = "completed"
	StageError      = "error"
)

// Progress is one best-effort pipeline status update.
type Progress struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Percent int    `json:"percent"`
}

// ProgressSink receives progress updates for a run.
type ProgressSink interface {
	Publish(reportID string, p Progress)
}

// ProgressTracker keeps the latest progress per report in memory. Updates
// are advisory; losing one never affects the run outcome.
type ProgressTracker struct {
	mu     sync.RWMutex
	latest map[string]Progress
}

// NewProgressTracker constructs a ProgressTracker.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{latest: make(map[string]Progress)}
}

// Publish records the latest progress for a report.
func (t *ProgressTracker) Publish(reportID string, p Progress) {
	if reportID == "" {
		return
	}
	if p.Percent < 0 {
		p.Percent = 0
	}
	if p.Percent > 100 {
		p.Percent = 100
	}
	t.mu.Lock()
	t.latest[reportID] = p
	t.mu.Unlock()
}

// Latest returns the most recent progress for a report.
func (t *ProgressTracker) Latest(reportID string) (Progress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.latest[reportID]
	return p, ok
}

// Forget drops tracking state for a report.
func (t *ProgressTracker) Forget(reportID string) {
	t.mu.Lock()
	delete(t.latest, reportID)
	t.mu.Unlock()
}
