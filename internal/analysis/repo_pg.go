package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// resultPayload is the JSONB body of one result row. Identity, status,
// and timing live in their own columns for querying.
type resultPayload struct {
	TechnicalAnalysis   string               `json:"technicalAnalysis"`
	LaymanExplanationEn string               `json:"laymanExplanationEn"`
	LaymanExplanationHi string               `json:"laymanExplanationHi"`
	Recommendations     string               `json:"recommendations"`
	HealthScore         int                  `json:"healthScore"`
	RiskLevel           string               `json:"riskLevel"`
	KeyFindings         []string             `json:"keyFindings"`
	RiskFactors         []string             `json:"riskFactors"`
	Biomarkers          map[string]Biomarker `json:"biomarkers"`
	Confidence          float64              `json:"confidence"`
	AnalysisSource      string               `json:"analysisSource"`
	ProcessingMs        float64              `json:"processingMs"`
}

func toPayload(res AnalysisResult) resultPayload {
	return resultPayload{
		TechnicalAnalysis:   res.TechnicalAnalysis,
		LaymanExplanationEn: res.LaymanExplanationEn,
		LaymanExplanationHi: res.LaymanExplanationHi,
		Recommendations:     res.Recommendations,
		HealthScore:         res.HealthScore,
		RiskLevel:           res.RiskLevel,
		KeyFindings:         res.KeyFindings,
		RiskFactors:         res.RiskFactors,
		Biomarkers:          res.Biomarkers,
		Confidence:          res.Confidence,
		AnalysisSource:      res.AnalysisSource,
		ProcessingMs:        res.ProcessingMs,
	}
}

func applyPayload(res *AnalysisResult, p resultPayload) {
	res.TechnicalAnalysis = p.TechnicalAnalysis
	res.LaymanExplanationEn = p.LaymanExplanationEn
	res.LaymanExplanationHi = p.LaymanExplanationHi
	res.Recommendations = p.Recommendations
	res.HealthScore = p.HealthScore
	res.RiskLevel = p.RiskLevel
	res.KeyFindings = p.KeyFindings
	res.RiskFactors = p.RiskFactors
	res.Biomarkers = p.Biomarkers
	res.Confidence = p.Confidence
	res.AnalysisSource = p.AnalysisSource
	res.ProcessingMs = p.ProcessingMs
}

// Create inserts a new result row.
func (r *PGRepo) Create(ctx context.Context, result AnalysisResult) error {
	const query = `
INSERT INTO analysis_results (
	id, report_id, user_id, status, error_code, error_message, result, created_at, completed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	payload, err := json.Marshal(toPayload(result))
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		result.ID,
		result.ReportID,
		result.UserID,
		result.Status,
		nullIfEmpty(result.ErrorCode),
		nullIfEmpty(result.ErrorMessage),
		payload,
		result.CreatedAt,
		result.CompletedAt,
	)
	return err
}

// Upsert replaces the stored result for the row's ID.
func (r *PGRepo) Upsert(ctx context.Context, result AnalysisResult) error {
	const query = `
INSERT INTO analysis_results (
	id, report_id, user_id, status, error_code, error_message, result, created_at, completed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	error_code = EXCLUDED.error_code,
	error_message = EXCLUDED.error_message,
	result = EXCLUDED.result,
	completed_at = EXCLUDED.completed_at`
	payload, err := json.Marshal(toPayload(result))
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		result.ID,
		result.ReportID,
		result.UserID,
		result.Status,
		nullIfEmpty(result.ErrorCode),
		nullIfEmpty(result.ErrorMessage),
		payload,
		result.CreatedAt,
		result.CompletedAt,
	)
	return err
}

const selectResultColumns = `
id, report_id, user_id, status, error_code, error_message, result, created_at, completed_at`

func scanResult(row interface{ Scan(dest ...any) error }) (AnalysisResult, error) {
	var res AnalysisResult
	var errorCode, errorMessage sql.NullString
	var payload []byte
	var completedAt sql.NullTime
	err := row.Scan(
		&res.ID,
		&res.ReportID,
		&res.UserID,
		&res.Status,
		&errorCode,
		&errorMessage,
		&payload,
		&res.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return AnalysisResult{}, err
	}
	if errorCode.Valid {
		res.ErrorCode = errorCode.String
	}
	if errorMessage.Valid {
		res.ErrorMessage = errorMessage.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		res.CompletedAt = &t
	}
	if len(payload) > 0 {
		var p resultPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return AnalysisResult{}, err
		}
		applyPayload(&res, p)
	}
	return res, nil
}

// GetByID returns a result by its ID.
func (r *PGRepo) GetByID(ctx context.Context, analysisID string) (AnalysisResult, error) {
	const query = `
SELECT` + selectResultColumns + `
FROM analysis_results
WHERE id = $1`
	res, err := scanResult(r.DB.QueryRowContext(ctx, query, analysisID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AnalysisResult{}, ErrNotFound
		}
		return AnalysisResult{}, err
	}
	return res, nil
}

// GetLatestByReport returns the newest result row for a report.
func (r *PGRepo) GetLatestByReport(ctx context.Context, reportID string) (AnalysisResult, error) {
	const query = `
SELECT` + selectResultColumns + `
FROM analysis_results
WHERE report_id = $1
ORDER BY created_at DESC
LIMIT 1`
	res, err := scanResult(r.DB.QueryRowContext(ctx, query, reportID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AnalysisResult{}, ErrNotFound
		}
		return AnalysisResult{}, err
	}
	return res, nil
}

// ListByUser returns results for a user, newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]AnalysisResult, error) {
	const query = `
SELECT` + selectResultColumns + `
FROM analysis_results
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]AnalysisResult, 0, limit)
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// DeleteByReport removes all result rows for a report.
func (r *PGRepo) DeleteByReport(ctx context.Context, reportID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM analysis_results WHERE report_id = $1`, reportID)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Repo = (*PGRepo)(nil)
