package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"medreport-backend/internal/analysis/textproc"
	"medreport-backend/internal/llm"
	"medreport-backend/internal/nlp"
	"medreport-backend/internal/ocr"
	"medreport-backend/internal/queue"
	"medreport-backend/internal/reports"
	"medreport-backend/internal/shared/metrics"
	"medreport-backend/internal/shared/storage/object"
	"medreport-backend/internal/shared/telemetry"
)

// Per-stage timeouts. Exceeding one is handled like any transport failure
// on that stage.
const (
	extractionTimeout = 60 * time.Second
	validationTimeout = 15 * time.Second
	generationTimeout = 90 * time.Second
)

// Service orchestrates the report analysis pipeline.
type Service struct {
	Repo      Repo
	Reports   reports.ReportsRepo
	Store     object.ObjectStore
	Extractor *ocr.Engine
	Validator nlp.Validator
	LLM       llm.Client
	Progress  ProgressSink
	JobQueue  queue.Client
	Model     string
}

// Start begins an asynchronous analysis run for a report. A new result
// row is created even when older ones exist; the newest row supersedes.
func (s *Service) Start(ctx context.Context, userID, reportID string) (AnalysisResult, error) {
	if userID == "" || reportID == "" {
		return AnalysisResult{}, errors.New("userID and reportID are required")
	}

	rep, err := s.Reports.GetByID(ctx, userID, reportID)
	if err != nil {
		if errors.Is(err, reports.ErrNotFound) {
			return AnalysisResult{}, ErrNotFound
		}
		return AnalysisResult{}, err
	}
	if rep.Status == reports.StatusProcessing {
		return AnalysisResult{}, ErrAlreadyRunning
	}

	result := AnalysisResult{
		ID:        uuid.NewString(),
		ReportID:  reportID,
		UserID:    userID,
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, result); err != nil {
		return AnalysisResult{}, err
	}
	if err := s.Reports.UpdateStatus(ctx, reportID, reports.StatusProcessing, time.Now().UTC()); err != nil {
		return AnalysisResult{}, err
	}

	if s.JobQueue != nil {
		msg := queue.Message{
			AnalysisID: result.ID,
			ReportID:   result.ReportID,
			RequestID:  requestIDFromContext(ctx),
			EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
			Version:    1,
		}
		if err := s.JobQueue.Send(ctx, msg); err != nil {
			telemetry.Error("analysis.enqueue", map[string]any{
				"analysis_id": result.ID,
				"error":       sanitizeError(err),
			})
			// Degrade to in-process execution rather than failing the request.
			go s.completeAsync(backgroundWithRequestID(ctx), result.ID)
		}
		return result, nil
	}

	go s.completeAsync(backgroundWithRequestID(ctx), result.ID)

	return result, nil
}

// ProcessAnalysis runs one queued analysis. Queue consumers call this.
func (s *Service) ProcessAnalysis(ctx context.Context, analysisID string) error {
	return s.Run(ctx, analysisID)
}

// Get returns a result by ID, scoped to its owner.
func (s *Service) Get(ctx context.Context, userID, analysisID string) (AnalysisResult, error) {
	if analysisID == "" {
		return AnalysisResult{}, errors.New("analysisID is required")
	}
	res, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		return AnalysisResult{}, err
	}
	if res.UserID != userID {
		return AnalysisResult{}, ErrNotFound
	}
	return res, nil
}

// GetLatestForReport returns the newest result for a report the user owns.
func (s *Service) GetLatestForReport(ctx context.Context, userID, reportID string) (AnalysisResult, error) {
	if _, err := s.Reports.GetByID(ctx, userID, reportID); err != nil {
		if errors.Is(err, reports.ErrNotFound) {
			return AnalysisResult{}, ErrNotFound
		}
		return AnalysisResult{}, err
	}
	return s.Repo.GetLatestByReport(ctx, reportID)
}

// List returns the user's analysis history, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]AnalysisResult, error) {
	if userID == "" {
		return nil, errors.New("userID is required")
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// DeleteByReport removes all results and progress state for a report.
// Satisfies the report deletion cascade.
func (s *Service) DeleteByReport(ctx context.Context, reportID string) error {
	s.forget(reportID)
	return s.Repo.DeleteByReport(ctx, reportID)
}

func (s *Service) completeAsync(ctx context.Context, analysisID string) {
	defer func() {
		if r := recover(); r != nil {
			s.failRun(ctx, analysisID, "", fmt.Errorf("panic: %v", r), time.Now().UTC())
		}
	}()
	_ = s.Run(ctx, analysisID)
}

// Run executes the pipeline for one queued result row. Errors returned
// here have already been recorded on the row; callers (the async path and
// the queue worker) only use them for logging and retry decisions.
func (s *Service) Run(ctx context.Context, analysisID string) error {
	startedAt := time.Now().UTC()

	result, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("analysis lookup: %w", err)
	}
	result.Status = StatusProcessing
	if err := s.Repo.Upsert(ctx, result); err != nil {
		s.failRun(ctx, analysisID, result.ReportID, fmt.Errorf("set processing failed: %w", err), startedAt)
		return err
	}

	metrics.IncAnalysisStarted()
	s.publish(result.ReportID, StageProcessing, "Analyzing your report", 10)
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           result.UserID,
		"report_id":         result.ReportID,
		"analysis_id":       result.ID,
		"status":            StatusProcessing,
		"status_transition": "queued->processing",
		"model":             s.modelName(),
	})

	rep, err := s.Reports.GetByID(ctx, result.UserID, result.ReportID)
	if err != nil {
		s.failRun(ctx, analysisID, result.ReportID, fmt.Errorf("report lookup id=%s: %w", result.ReportID, err), startedAt)
		return err
	}

	// Extraction failures degrade to empty text rather than aborting.
	text := s.extractText(ctx, rep)
	s.publish(result.ReportID, StageProcessing, "Extracting medical data", 35)

	cleaned := textproc.Preprocess(text)
	sections := textproc.Segment(cleaned)

	terms := s.validateTerms(ctx, cleaned)
	s.publish(result.ReportID, StageProcessing, "Validating medical terms", 55)

	gen, genErr := s.generate(ctx, result.ID, cleaned, terms, sections, rep.ReportType)
	s.publish(result.ReportID, StageProcessing, "Generating analysis", 80)

	extracted := ExtractBiomarkers(cleaned)

	var assembled AnalysisResult
	if genErr != nil {
		metrics.IncAnalysisFallback()
		telemetry.Info("analysis.fallback", map[string]any{
			"analysis_id": result.ID,
			"report_id":   result.ReportID,
			"reason":      sanitizeError(genErr),
		})
		assembled = AssembleFallback(FallbackAnalyze(cleaned), extracted, startedAt)
	} else {
		assembled = AssembleGenerative(gen, extracted, startedAt)
	}

	// If the report was deleted mid-run, discard the result.
	if _, err := s.Reports.GetByID(ctx, result.UserID, result.ReportID); err != nil {
		if errors.Is(err, reports.ErrNotFound) {
			telemetry.Info("analysis.discarded", map[string]any{
				"analysis_id": result.ID,
				"report_id":   result.ReportID,
			})
			s.forget(result.ReportID)
			return nil
		}
		s.failRun(ctx, analysisID, result.ReportID, fmt.Errorf("report recheck id=%s: %w", result.ReportID, err), startedAt)
		return err
	}

	completedAt := time.Now().UTC()
	assembled.ID = result.ID
	assembled.ReportID = result.ReportID
	assembled.UserID = result.UserID
	assembled.Status = StatusCompleted
	assembled.CreatedAt = result.CreatedAt
	assembled.CompletedAt = &completedAt

	if err := s.Repo.Upsert(ctx, assembled); err != nil {
		s.failRun(ctx, analysisID, result.ReportID, fmt.Errorf("set analysis result failed: %w", err), startedAt)
		return err
	}
	if err := s.Reports.UpdateStatus(ctx, result.ReportID, reports.StatusCompleted, completedAt); err != nil {
		s.failRun(ctx, analysisID, result.ReportID, fmt.Errorf("set report completed failed: %w", err), startedAt)
		return err
	}

	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(durationMs(startedAt, completedAt))
	s.publish(result.ReportID, StageCompleted, "Analysis complete", 100)
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           result.UserID,
		"report_id":         result.ReportID,
		"analysis_id":       result.ID,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"model":             s.modelName(),
		"source":            assembled.AnalysisSource,
		"duration_ms":       durationMs(startedAt, completedAt),
	})
	return nil
}

// extractText downloads the stored file and runs text extraction. Any
// failure yields empty text so the run can still complete.
func (s *Service) extractText(ctx context.Context, rep reports.Report) string {
	if s.Store == nil || s.Extractor == nil {
		metrics.IncOCRFailed()
		return ""
	}
	extractCtx, cancel := context.WithTimeout(ctx, extractionTimeout)
	defer cancel()

	body, err := s.Store.Open(extractCtx, rep.StorageKey)
	if err != nil {
		metrics.IncOCRFailed()
		telemetry.Error("analysis.extract", map[string]any{
			"report_id": rep.ID,
			"error":     sanitizeError(err),
		})
		return ""
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		metrics.IncOCRFailed()
		return ""
	}

	extraction, err := s.Extractor.Extract(extractCtx, data, rep.MimeType, rep.FileName)
	if err != nil {
		metrics.IncOCRFailed()
		telemetry.Error("analysis.extract", map[string]any{
			"report_id": rep.ID,
			"mime_type": rep.MimeType,
			"error":     sanitizeError(err),
		})
		return ""
	}
	return extraction.Text
}

// validateTerms classifies the text prefix against the medical NER model.
// Failures return no terms; the prompt is simply built without them.
func (s *Service) validateTerms(ctx context.Context, cleaned string) []string {
	if s.Validator == nil || strings.TrimSpace(cleaned) == "" {
		return nil
	}
	validateCtx, cancel := context.WithTimeout(ctx, validationTimeout)
	defer cancel()

	validation, err := s.Validator.Classify(validateCtx, nlp.Truncate(cleaned))
	if err != nil {
		telemetry.Info("analysis.validation_skipped", map[string]any{
			"error": sanitizeError(err),
		})
		return nil
	}
	return nlp.ValidatedTerms(validation)
}

// modelName labels status telemetry with the configured generation model.
func (s *Service) modelName() string {
	if s.Model == "" {
		return "unconfigured"
	}
	return s.Model
}

// generate runs the generative path end to end: prompt, model call with
// one retry on transient failures, and response parsing.
func (s *Service) generate(ctx context.Context, analysisID, cleaned string, terms []string, sections map[string]string, reportType string) (llm.ReportAnalysis, error) {
	if s.LLM == nil {
		return llm.ReportAnalysis{}, &llm.GenerationError{Op: "generate", Err: llm.ErrNotConfigured}
	}
	genCtx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	prompt := llm.BuildPrompt(cleaned, terms, sections, reportType)
	client := newRetryingLLM(s.LLM, analysisID, requestIDFromContext(ctx))

	raw, err := client.Generate(genCtx, prompt, llm.DefaultParams())
	if err != nil {
		return llm.ReportAnalysis{}, err
	}
	return llm.ParseResponse(raw)
}

func (s *Service) failRun(ctx context.Context, analysisID, reportID string, err error, startedAt time.Time) {
	code, retryable := classifyFailure(err)
	msg := sanitizeError(err)
	completedAt := time.Now().UTC()

	// Use a fresh context; the run's context may already be canceled.
	res, getErr := s.Repo.GetByID(context.Background(), analysisID)
	if getErr == nil {
		res.Status = StatusFailed
		res.ErrorCode = code
		res.ErrorMessage = msg
		res.CompletedAt = &completedAt
		if updateErr := s.Repo.Upsert(context.Background(), res); updateErr != nil {
			telemetry.Error("analysis.fail_update", map[string]any{
				"analysis_id": analysisID,
				"error":       sanitizeError(updateErr),
			})
		}
	}
	if reportID != "" {
		if updateErr := s.Reports.UpdateStatus(context.Background(), reportID, reports.StatusFailed, completedAt); updateErr != nil {
			telemetry.Error("analysis.fail_update", map[string]any{
				"report_id": reportID,
				"error":     sanitizeError(updateErr),
			})
		}
		s.publish(reportID, StageError, "Analysis failed during processing", 100)
	}

	metrics.IncAnalysisFailed()
	metrics.ObserveAnalysisDurationMs(durationMs(startedAt, completedAt))
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"analysis_id":       analysisID,
		"report_id":         reportID,
		"status":            StatusFailed,
		"status_transition": "processing->failed",
		"error_code":        code,
		"retryable":         retryable,
		"duration_ms":       durationMs(startedAt, completedAt),
	})
}

func (s *Service) publish(reportID, stage, message string, percent int) {
	if s.Progress == nil {
		return
	}
	s.Progress.Publish(reportID, Progress{Stage: stage, Message: message, Percent: percent})
}

func (s *Service) forget(reportID string) {
	if t, ok := s.Progress.(*ProgressTracker); ok && t != nil {
		t.Forget(reportID)
	}
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}

func classifyFailure(err error) (string, bool) {
	if err == nil {
		return ErrorCodeInternal, false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeLLMTimeout, true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "gemini request timeout") {
		return ErrorCodeLLMTimeout, true
	}
	if strings.Contains(msg, "timeout") && strings.Contains(msg, "llm") {
		return ErrorCodeLLMTimeout, true
	}
	if strings.Contains(msg, "extract") || strings.Contains(msg, "ocr") {
		return ErrorCodeOCR, true
	}
	if strings.Contains(msg, "schema") || strings.Contains(msg, "parse json") || strings.Contains(msg, "extract json") {
		return ErrorCodeLLMSchemaMismatch, false
	}
	if strings.Contains(msg, "validation") {
		return ErrorCodeValidation, false
	}
	if strings.Contains(msg, "report") || strings.Contains(msg, "storage") || strings.Contains(msg, "analysis result") || strings.Contains(msg, "set processing") {
		return ErrorCodeStorage, true
	}
	return ErrorCodeInternal, false
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
