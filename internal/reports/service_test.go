package reports

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

type fakeStore struct {
	saveErr  error
	mimeType string
	saved    []string
}

func (s *fakeStore) Save(ctx context.Context, userID, fileName string, r io.Reader) (string, int64, string, error) {
	if s.saveErr != nil {
		return "", 0, "", s.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, "", err
	}
	key := userID + "/" + fileName
	s.saved = append(s.saved, key)
	mime := s.mimeType
	if mime == "" {
		mime = "application/pdf"
	}
	return key, int64(len(data)), mime, nil
}

func (s *fakeStore) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("stored")), nil
}

type failingRepo struct {
	ReportsRepo
}

func (failingRepo) Create(ctx context.Context, rep Report) error {
	return errors.New("db down")
}

func TestUploadCreatesUploadedReport(t *testing.T) {
	repo := NewMemoryRepo()
	svc := &Service{Store: &fakeStore{}, Repo: repo}

	rep, err := svc.Upload(context.Background(), "user-1", "report.pdf", "application/pdf", "blood_test", 11, bytes.NewReader([]byte("hello world")))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if rep.Status != StatusUploaded {
		t.Errorf("status = %s, want %s", rep.Status, StatusUploaded)
	}
	if rep.ReportType != "blood_test" {
		t.Errorf("reportType = %s, want blood_test", rep.ReportType)
	}
	if rep.ID == "" || rep.StorageKey == "" {
		t.Error("expected id and storage key to be set")
	}

	got, err := repo.GetByID(context.Background(), "user-1", rep.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FileName != "report.pdf" {
		t.Errorf("fileName = %s", got.FileName)
	}
}

func TestUploadPublishesUploadingProgress(t *testing.T) {
	var gotReportID, gotMessage string
	var gotPercent int
	svc := &Service{
		Store: &fakeStore{},
		Repo:  NewMemoryRepo(),
		Progress: func(reportID, message string, percent int) {
			gotReportID, gotMessage, gotPercent = reportID, message, percent
		},
	}

	rep, err := svc.Upload(context.Background(), "user-1", "report.pdf", "application/pdf", "general", 4, bytes.NewReader([]byte("data")))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if gotReportID != rep.ID {
		t.Errorf("progress reportID = %q, want %q", gotReportID, rep.ID)
	}
	if gotMessage == "" || gotPercent != 100 {
		t.Errorf("progress = %q/%d, want message and 100", gotMessage, gotPercent)
	}
}

func TestUploadStorageFailureDoesNotPublishProgress(t *testing.T) {
	called := false
	svc := &Service{
		Store:    &fakeStore{saveErr: errors.New("disk full")},
		Repo:     NewMemoryRepo(),
		Progress: func(string, string, int) { called = true },
	}

	_, err := svc.Upload(context.Background(), "user-1", "report.pdf", "application/pdf", "general", 4, bytes.NewReader([]byte("data")))
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if called {
		t.Error("progress published for a failed upload")
	}
}

func TestUploadStorageFailureLeavesNoRecord(t *testing.T) {
	repo := NewMemoryRepo()
	svc := &Service{Store: &fakeStore{saveErr: errors.New("disk full")}, Repo: repo}

	_, err := svc.Upload(context.Background(), "user-1", "report.pdf", "application/pdf", "general", 4, bytes.NewReader([]byte("data")))
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}

	reps, err := repo.ListByUser(context.Background(), "user-1", 10, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(reps) != 0 {
		t.Errorf("expected no records after storage failure, got %d", len(reps))
	}
}

func TestUploadRecordFailureAfterStorage(t *testing.T) {
	store := &fakeStore{}
	svc := &Service{Store: store, Repo: failingRepo{}}

	_, err := svc.Upload(context.Background(), "user-1", "report.pdf", "application/pdf", "general", 4, bytes.NewReader([]byte("data")))
	if err == nil {
		t.Fatal("expected error when record creation fails")
	}
	if len(store.saved) != 1 {
		t.Errorf("file should have been stored before record failure, saved=%d", len(store.saved))
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	svc := &Service{Store: &fakeStore{mimeType: "application/zip"}, Repo: NewMemoryRepo()}

	_, err := svc.Upload(context.Background(), "user-1", "archive.zip", "", "general", 4, bytes.NewReader([]byte("data")))
	if !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile, got %v", err)
	}

	_, err = svc.Upload(context.Background(), "user-1", "doc.docx", "application/msword", "general", 4, bytes.NewReader([]byte("data")))
	if !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile for declared type, got %v", err)
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	svc := &Service{Store: &fakeStore{}, Repo: NewMemoryRepo()}

	_, err := svc.Upload(context.Background(), "user-1", "big.pdf", "application/pdf", "general", MaxUploadSize+1, bytes.NewReader(nil))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestUploadNormalizesUnknownReportType(t *testing.T) {
	svc := &Service{Store: &fakeStore{}, Repo: NewMemoryRepo()}

	rep, err := svc.Upload(context.Background(), "user-1", "report.pdf", "application/pdf", "palm_reading", 4, bytes.NewReader([]byte("data")))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if rep.ReportType != "general" {
		t.Errorf("reportType = %s, want general", rep.ReportType)
	}
}

func TestSetStatusEnforcesTransitions(t *testing.T) {
	repo := NewMemoryRepo()
	svc := &Service{Store: &fakeStore{}, Repo: repo}

	rep, err := svc.Upload(context.Background(), "user-1", "report.pdf", "application/pdf", "general", 4, bytes.NewReader([]byte("data")))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := svc.SetStatus(context.Background(), "user-1", rep.ID, StatusCompleted); err == nil {
		t.Error("uploaded -> completed should be rejected")
	}
	if err := svc.SetStatus(context.Background(), "user-1", rep.ID, StatusProcessing); err != nil {
		t.Errorf("uploaded -> processing: %v", err)
	}
	if err := svc.SetStatus(context.Background(), "user-1", rep.ID, StatusCompleted); err != nil {
		t.Errorf("processing -> completed: %v", err)
	}
	// Re-analysis moves a terminal report back to processing.
	if err := svc.SetStatus(context.Background(), "user-1", rep.ID, StatusProcessing); err != nil {
		t.Errorf("completed -> processing: %v", err)
	}
}

type recordingPurger struct {
	deleted []string
}

func (p *recordingPurger) DeleteByReport(ctx context.Context, reportID string) error {
	p.deleted = append(p.deleted, reportID)
	return nil
}

func TestDeleteCascadesToAnalyses(t *testing.T) {
	repo := NewMemoryRepo()
	purger := &recordingPurger{}
	svc := &Service{Store: &fakeStore{}, Repo: repo, Purger: purger}

	rep, err := svc.Upload(context.Background(), "user-1", "report.pdf", "application/pdf", "general", 4, bytes.NewReader([]byte("data")))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := svc.Delete(context.Background(), "user-1", rep.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(purger.deleted) != 1 || purger.deleted[0] != rep.ID {
		t.Errorf("purger calls = %v, want [%s]", purger.deleted, rep.ID)
	}
	if _, err := repo.GetByID(context.Background(), "user-1", rep.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteOtherUsersReport(t *testing.T) {
	repo := NewMemoryRepo()
	svc := &Service{Store: &fakeStore{}, Repo: repo}

	rep, err := svc.Upload(context.Background(), "user-1", "report.pdf", "application/pdf", "general", 4, bytes.NewReader([]byte("data")))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := svc.Delete(context.Background(), "user-2", rep.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign report, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	base := time.Now().UTC()
	for i, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		rep := Report{
			ID:        name,
			UserID:    "user-1",
			FileName:  name,
			Status:    StatusUploaded,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(context.Background(), rep); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	svc := &Service{Store: &fakeStore{}, Repo: repo}
	reps, err := svc.List(context.Background(), "user-1", 2, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(reps) != 2 || reps[0].FileName != "c.pdf" || reps[1].FileName != "b.pdf" {
		t.Errorf("unexpected order: %+v", reps)
	}
}
