package reports

import "errors"

var (
	// ErrNotFound indicates the report does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates a missing or malformed request field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupportedFile indicates a file type outside the supported set.
	ErrUnsupportedFile = errors.New("unsupported file type")
	// ErrFileTooLarge indicates the upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrStorage indicates object storage rejected the file; no report
	// record exists when this is returned.
	ErrStorage = errors.New("storage error")
)
