package analysis

import "time"

// Risk levels ordered from least to most severe.
const (
	RiskLow      = "low"
	RiskModerate = "moderate"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// RiskLevelForScore maps a health score onto its implied risk level.
func RiskLevelForScore(score int) string {
	switch {
	case score < 40:
		return RiskCritical
	case score < 60:
		return RiskHigh
	case score < 80:
		return RiskModerate
	default:
		return RiskLow
	}
}

// Biomarker is one measured value with its interpretation.
type Biomarker struct {
	Value  string `json:"value"`
	Unit   string `json:"unit"`
	Normal string `json:"normal"`
	Status string `json:"status"`
}

// AnalysisResult is the canonical output of one pipeline run.
type AnalysisResult struct {
	ID                  string               `json:"id"`
	ReportID            string               `json:"reportId"`
	UserID              string               `json:"userId"`
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
	Status              string               `json:"status"`
	ErrorCode           string               `json:"errorCode,omitempty"`
	ErrorMessage        string               `json:"errorMessage,omitempty"`
	CreatedAt           time.Time            `json:"createdAt"`
	CompletedAt         *time.Time           `json:"completedAt,omitempty"`
}

// Analysis sources.
const (
	SourceGenerative = "generative"
	SourceFallback   = "fallback"
)

// Analysis run statuses.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)
