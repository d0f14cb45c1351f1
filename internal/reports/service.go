package reports

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"medreport-backend/internal/shared/storage/object"
	"medreport-backend/internal/shared/telemetry"
)

// MaxUploadSize is the largest report file the pipeline accepts.
const MaxUploadSize = 10 << 20 // 10MB

// AnalysisPurger removes analysis results belonging to a report. Deleting
// a report cascades through it.
type AnalysisPurger interface {
	DeleteByReport(ctx context.Context, reportID string) error
}

// UploadProgress publishes a best-effort progress update for a stored
// report. Losing an update never affects the upload outcome.
type UploadProgress func(reportID, message string, percent int)

// Service contains business logic for reports.
type Service struct {
	Store           object.ObjectStore
	Repo            ReportsRepo
	Purger          AnalysisPurger
	Progress        UploadProgress
	StorageProvider string
}

// Upload validates the file, saves it to object storage, and records the
// report in the uploaded state. If storage fails no record is created; if
// the record fails after storage succeeded the orphaned object is logged
// and the error returned.
func (s *Service) Upload(ctx context.Context, userID, fileName, declaredType, reportType string, size int64, r io.Reader) (Report, error) {
	if strings.TrimSpace(fileName) == "" {
		return Report{}, ErrInvalidInput
	}
	if size > MaxUploadSize {
		return Report{}, ErrFileTooLarge
	}
	if declaredType != "" && !AllowedMimeType(declaredType) {
		return Report{}, ErrUnsupportedFile
	}

	storageKey, storedSize, mimeType, err := s.Store.Save(ctx, userID, fileName, io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if storedSize > MaxUploadSize {
		return Report{}, ErrFileTooLarge
	}
	if !AllowedMimeType(mimeType) {
		return Report{}, ErrUnsupportedFile
	}

	now := time.Now().UTC()
	rep := Report{
		ID:              uuid.NewString(),
		UserID:          userID,
		FileName:        fileName,
		MimeType:        mimeType,
		SizeBytes:       storedSize,
		StorageProvider: s.StorageProvider,
		StorageKey:      storageKey,
		ReportType:      NormalizeReportType(reportType),
		Status:          StatusUploaded,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.Repo.Create(ctx, rep); err != nil {
		telemetry.Error("report.upload.orphan", map[string]any{
			"userId":     userID,
			"storageKey": storageKey,
			"error":      err.Error(),
		})
		return Report{}, err
	}

	if s.Progress != nil {
		s.Progress(rep.ID, "Report uploaded", 100)
	}
	return rep, nil
}

// CreateFromS3 records a report for a file already uploaded directly to S3.
func (s *Service) CreateFromS3(ctx context.Context, userID, s3Key, fileName, contentType, reportType string, sizeBytes int64) (Report, error) {
	if s3Key == "" || fileName == "" || sizeBytes <= 0 {
		return Report{}, ErrInvalidInput
	}
	if sizeBytes > MaxUploadSize {
		return Report{}, ErrFileTooLarge
	}
	if !AllowedMimeType(contentType) {
		return Report{}, ErrUnsupportedFile
	}

	now := time.Now().UTC()
	rep := Report{
		ID:              uuid.NewString(),
		UserID:          userID,
		FileName:        fileName,
		MimeType:        contentType,
		SizeBytes:       sizeBytes,
		StorageProvider: "s3",
		StorageKey:      s3Key,
		ReportType:      NormalizeReportType(reportType),
		Status:          StatusUploaded,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Repo.Create(ctx, rep); err != nil {
		return Report{}, err
	}
	if s.Progress != nil {
		s.Progress(rep.ID, "Report uploaded", 100)
	}
	return rep, nil
}

// Get returns a report owned by the user.
func (s *Service) Get(ctx context.Context, userID, reportID string) (Report, error) {
	if userID == "" || reportID == "" {
		return Report{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userID, reportID)
}

// List returns the user's report history, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Report, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// SetStatus transitions a report's status, rejecting invalid transitions.
func (s *Service) SetStatus(ctx context.Context, userID, reportID string, status Status) error {
	rep, err := s.Repo.GetByID(ctx, userID, reportID)
	if err != nil {
		return err
	}
	if !ValidTransition(rep.Status, status) {
		return fmt.Errorf("%w: cannot move %s from %s to %s", ErrInvalidInput, reportID, rep.Status, status)
	}
	return s.Repo.UpdateStatus(ctx, reportID, status, time.Now().UTC())
}

// Delete removes a report and all analysis results for it.
func (s *Service) Delete(ctx context.Context, userID, reportID string) error {
	if userID == "" || reportID == "" {
		return ErrInvalidInput
	}
	if _, err := s.Repo.GetByID(ctx, userID, reportID); err != nil {
		return err
	}
	if s.Purger != nil {
		if err := s.Purger.DeleteByReport(ctx, reportID); err != nil {
			return err
		}
	}
	return s.Repo.Delete(ctx, userID, reportID)
}
