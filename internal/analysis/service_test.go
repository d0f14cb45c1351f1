package analysis

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"medreport-backend/internal/llm"
	"medreport-backend/internal/nlp"
	"medreport-backend/internal/ocr"
	"medreport-backend/internal/reports"
)

type stubLLM struct {
	response string
	err      error
	onCall   func()
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	if s.onCall != nil {
		s.onCall()
	}
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

type stubValidator struct {
	entities []nlp.Entity
	err      error
}

func (s *stubValidator) Classify(ctx context.Context, text string) (nlp.Validation, error) {
	if s.err != nil {
		return nlp.Validation{}, s.err
	}
	return nlp.Validation{Entities: s.entities}, nil
}

type textExtractor struct{ text string }

func (e textExtractor) Extract(ctx context.Context, data []byte, mimeType, fileName string) (ocr.Extraction, error) {
	return ocr.Extraction{Text: e.text, Confidence: 95}, nil
}

type byteStore struct {
	data    []byte
	openErr error
}

func (s *byteStore) Save(ctx context.Context, userID, fileName string, r io.Reader) (string, int64, string, error) {
	return userID + "/" + fileName, int64(len(s.data)), "image/png", nil
}

func (s *byteStore) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return io.NopCloser(strings.NewReader(string(s.data))), nil
}

type fixture struct {
	svc        *Service
	reportRepo *reports.MemoryRepo
	repo       *MemoryRepo
	report     reports.Report
	progress   *ProgressTracker
}

func newFixture(t *testing.T, reportText string, client llm.Client) *fixture {
	t.Helper()
	reportRepo := reports.NewMemoryRepo()
	rep := reports.Report{
		ID:         "report-1",
		UserID:     "user-1",
		FileName:   "scan.png",
		MimeType:   "image/png",
		StorageKey: "user-1/scan.png",
		ReportType: "blood_test",
		Status:     reports.StatusUploaded,
		CreatedAt:  time.Now().UTC(),
	}
	if err := reportRepo.Create(context.Background(), rep); err != nil {
		t.Fatalf("create report: %v", err)
	}

	progress := NewProgressTracker()
	svc := &Service{
		Repo:      NewMemoryRepo(),
		Reports:   reportRepo,
		Store:     &byteStore{data: []byte("image bytes")},
		Extractor: &ocr.Engine{Images: textExtractor{text: reportText}},
		Validator: &stubValidator{},
		LLM:       client,
		Progress:  progress,
	}
	return &fixture{
		svc:        svc,
		reportRepo: reportRepo,
		repo:       svc.Repo.(*MemoryRepo),
		report:     rep,
		progress:   progress,
	}
}

// queueRun creates a queued result row and marks the report processing,
// mirroring what Start does before handing off to the pipeline.
func (f *fixture) queueRun(t *testing.T) string {
	t.Helper()
	result := AnalysisResult{
		ID:        "analysis-1",
		ReportID:  f.report.ID,
		UserID:    f.report.UserID,
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := f.repo.Create(context.Background(), result); err != nil {
		t.Fatalf("create result: %v", err)
	}
	if err := f.reportRepo.UpdateStatus(context.Background(), f.report.ID, reports.StatusProcessing, time.Now().UTC()); err != nil {
		t.Fatalf("set processing: %v", err)
	}
	return result.ID
}

func TestModelNameDefaultsWhenUnset(t *testing.T) {
	svc := &Service{}
	if got := svc.modelName(); got != "unconfigured" {
		t.Errorf("modelName() = %q, want unconfigured", got)
	}
	svc.Model = "gemini-1.5-flash"
	if got := svc.modelName(); got != "gemini-1.5-flash" {
		t.Errorf("modelName() = %q, want configured model", got)
	}
}

func TestRunGenerativePath(t *testing.T) {
	client := &stubLLM{response: `{
		"technicalAnalysis": "Glucose mildly elevated.",
		"laymanExplanationEn": "Your sugar is a bit high.",
		"laymanExplanationHi": "आपकी शुगर थोड़ी अधिक है।",
		"recommendations": "Reduce sugar intake.",
		"healthScore": 72,
		"riskLevel": "moderate",
		"keyFindings": ["Elevated glucose"],
		"riskFactors": ["Prediabetes"],
		"biomarkers": {},
		"confidence": 90
	}`}
	f := newFixture(t, "Glucose: 110 mg/dL. Hemoglobin: 13.2 g/dL.", client)
	id := f.queueRun(t)

	if err := f.svc.Run(context.Background(), id); err != nil {
		t.Fatalf("Run: %v", err)
	}

	res, err := f.repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if res.Status != StatusCompleted {
		t.Errorf("status = %q, want completed", res.Status)
	}
	if res.AnalysisSource != SourceGenerative {
		t.Errorf("source = %q, want generative", res.AnalysisSource)
	}
	if res.HealthScore != 72 || res.RiskLevel != RiskModerate {
		t.Errorf("score/risk = %d/%q", res.HealthScore, res.RiskLevel)
	}
	// Regex-extracted markers are merged even when the model returns none.
	if _, ok := res.Biomarkers["glucose"]; !ok {
		t.Error("glucose biomarker missing from merged result")
	}
	if _, ok := res.Biomarkers["hemoglobin"]; !ok {
		t.Error("hemoglobin biomarker missing from merged result")
	}

	rep, err := f.reportRepo.GetByID(context.Background(), "user-1", f.report.ID)
	if err != nil {
		t.Fatalf("report lookup: %v", err)
	}
	if rep.Status != reports.StatusCompleted {
		t.Errorf("report status = %q, want completed", rep.Status)
	}

	p, ok := f.progress.Latest(f.report.ID)
	if !ok || p.Stage != StageCompleted || p.Percent != 100 {
		t.Errorf("progress = %+v, want completed/100", p)
	}
}

func TestRunFallsBackOnProseResponse(t *testing.T) {
	client := &stubLLM{response: "I am unable to provide a JSON analysis for this report."}
	f := newFixture(t, "Patient had a severe cardiac event.", client)
	id := f.queueRun(t)

	if err := f.svc.Run(context.Background(), id); err != nil {
		t.Fatalf("Run should complete via fallback: %v", err)
	}

	res, _ := f.repo.GetByID(context.Background(), id)
	if res.Status != StatusCompleted {
		t.Errorf("status = %q, want completed", res.Status)
	}
	if res.AnalysisSource != SourceFallback {
		t.Errorf("source = %q, want fallback", res.AnalysisSource)
	}
	if res.RiskLevel != RiskCritical {
		t.Errorf("riskLevel = %q, want critical from fallback keywords", res.RiskLevel)
	}
}

func TestRunFallsBackOnGenerationError(t *testing.T) {
	client := &stubLLM{err: &llm.GenerationError{Op: "request", Err: errors.New("connection refused")}}
	f := newFixture(t, "Routine blood panel, hemoglobin recorded.", client)
	id := f.queueRun(t)

	if err := f.svc.Run(context.Background(), id); err != nil {
		t.Fatalf("Run should complete via fallback: %v", err)
	}

	res, _ := f.repo.GetByID(context.Background(), id)
	if res.AnalysisSource != SourceFallback {
		t.Errorf("source = %q, want fallback", res.AnalysisSource)
	}
	if res.Confidence != fallbackConfidence {
		t.Errorf("confidence = %v, want %d", res.Confidence, fallbackConfidence)
	}
}

func TestRunNotConfiguredLLM(t *testing.T) {
	f := newFixture(t, "Routine checkup notes.", llm.PlaceholderClient{})
	id := f.queueRun(t)

	if err := f.svc.Run(context.Background(), id); err != nil {
		t.Fatalf("Run: %v", err)
	}
	res, _ := f.repo.GetByID(context.Background(), id)
	if res.AnalysisSource != SourceFallback {
		t.Errorf("source = %q, want fallback when no provider configured", res.AnalysisSource)
	}
}

func TestRunDegradesOnExtractionFailure(t *testing.T) {
	client := &stubLLM{response: `{"healthScore": 75, "riskLevel": "moderate"}`}
	f := newFixture(t, "", client)
	f.svc.Store = &byteStore{openErr: errors.New("object gone")}
	id := f.queueRun(t)

	if err := f.svc.Run(context.Background(), id); err != nil {
		t.Fatalf("Run should complete despite extraction failure: %v", err)
	}
	res, _ := f.repo.GetByID(context.Background(), id)
	if res.Status != StatusCompleted {
		t.Errorf("status = %q, want completed", res.Status)
	}
}

func TestRunDiscardsResultWhenReportDeleted(t *testing.T) {
	f := newFixture(t, "Routine notes.", nil)
	client := &stubLLM{
		err: &llm.GenerationError{Op: "generate", Err: llm.ErrNotConfigured},
		onCall: func() {
			// Delete the report mid-run.
			_ = f.reportRepo.Delete(context.Background(), "user-1", "report-1")
		},
	}
	f.svc.LLM = client
	id := f.queueRun(t)

	if err := f.svc.Run(context.Background(), id); err != nil {
		t.Fatalf("Run: %v", err)
	}
	res, _ := f.repo.GetByID(context.Background(), id)
	if res.Status == StatusCompleted {
		t.Error("result for a deleted report must not be marked completed")
	}
}

func TestRunValidationFailureIsNonFatal(t *testing.T) {
	client := &stubLLM{response: `{"healthScore": 85, "riskLevel": "low"}`}
	f := newFixture(t, "Hemoglobin: 13.2 g/dL", client)
	f.svc.Validator = &stubValidator{err: errors.New("model unavailable")}
	id := f.queueRun(t)

	if err := f.svc.Run(context.Background(), id); err != nil {
		t.Fatalf("Run: %v", err)
	}
	res, _ := f.repo.GetByID(context.Background(), id)
	if res.Status != StatusCompleted || res.AnalysisSource != SourceGenerative {
		t.Errorf("status/source = %q/%q, want completed/generative", res.Status, res.AnalysisSource)
	}
}

func TestStartRejectsConcurrentRun(t *testing.T) {
	release := make(chan struct{})
	client := &stubLLM{
		err:    &llm.GenerationError{Op: "generate", Err: llm.ErrNotConfigured},
		onCall: func() { <-release },
	}
	f := newFixture(t, "notes", client)
	defer close(release)

	first, err := f.svc.Start(context.Background(), "user-1", "report-1")
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if first.Status != StatusQueued {
		t.Errorf("status = %q, want queued", first.Status)
	}

	if _, err := f.svc.Start(context.Background(), "user-1", "report-1"); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestStartUnknownReport(t *testing.T) {
	f := newFixture(t, "notes", &stubLLM{})
	if _, err := f.svc.Start(context.Background(), "user-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.Start(context.Background(), "user-2", "report-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign report, got %v", err)
	}
}

func TestReanalysisCreatesSupersedingRow(t *testing.T) {
	client := &stubLLM{response: `{"healthScore": 85, "riskLevel": "low"}`}
	f := newFixture(t, "Hemoglobin: 13.2 g/dL", client)

	firstID := f.queueRun(t)
	if err := f.svc.Run(context.Background(), firstID); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	second := AnalysisResult{
		ID:        "analysis-2",
		ReportID:  f.report.ID,
		UserID:    f.report.UserID,
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := f.repo.Create(context.Background(), second); err != nil {
		t.Fatalf("create second: %v", err)
	}
	if err := f.svc.Run(context.Background(), second.ID); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	latest, err := f.repo.GetLatestByReport(context.Background(), f.report.ID)
	if err != nil {
		t.Fatalf("GetLatestByReport: %v", err)
	}
	if latest.ID != "analysis-2" {
		t.Errorf("latest = %q, want the superseding row", latest.ID)
	}
	if _, err := f.repo.GetByID(context.Background(), firstID); err != nil {
		t.Errorf("older row should still exist: %v", err)
	}
}

func TestDeleteByReportRemovesAllRows(t *testing.T) {
	f := newFixture(t, "notes", &stubLLM{})
	id := f.queueRun(t)
	if err := f.svc.DeleteByReport(context.Background(), f.report.ID); err != nil {
		t.Fatalf("DeleteByReport: %v", err)
	}
	if _, err := f.repo.GetByID(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after cascade, got %v", err)
	}
}
