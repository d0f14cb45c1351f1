package reports

import "time"

// Status is the lifecycle state of a report. A report moves from uploaded
// to processing and then terminates in completed or failed. Re-analysis
// moves a terminal report back to processing.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ValidTransition reports whether a status change is allowed.
func ValidTransition(from, to Status) bool {
	switch from {
	case StatusUploaded:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	case StatusCompleted, StatusFailed:
		return to == StatusProcessing
	}
	return false
}

// Report represents an uploaded medical report owned by a user.
type Report struct {
	ID              string
	UserID          string
	FileName        string
	MimeType        string
	SizeBytes       int64
	StorageProvider string
	StorageKey      string
	ReportType      string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// allowedMimeTypes are the report formats the pipeline can extract text from.
var allowedMimeTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/jpg":       {},
	"image/png":       {},
}

// AllowedMimeType reports whether the pipeline accepts the given type.
func AllowedMimeType(mimeType string) bool {
	_, ok := allowedMimeTypes[mimeType]
	return ok
}

var knownReportTypes = map[string]struct{}{
	"blood_test":   {},
	"urine_test":   {},
	"xray":         {},
	"mri":          {},
	"ct_scan":      {},
	"ecg":          {},
	"prescription": {},
	"discharge":    {},
	"general":      {},
}

// NormalizeReportType maps a user-declared report type onto a known
// value, defaulting to general.
func NormalizeReportType(reportType string) string {
	if _, ok := knownReportTypes[reportType]; ok {
		return reportType
	}
	return "general"
}
