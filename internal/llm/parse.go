package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Default texts used when the model response omits required fields. They
// are deliberately generic; missing medical content is never fabricated.
const (
	defaultTechnicalAnalysis   = "Medical report analyzed with standard protocols."
	defaultLaymanExplanationEn = "Analysis completed. Please review the technical analysis for detailed information."
	defaultLaymanExplanationHi = "विश्लेषण पूरा हुआ। विस्तृत जानकारी के लिए तकनीकी विश्लेषण देखें।"
	defaultRecommendations     = "Please consult your healthcare provider to discuss these results and next steps."
	defaultKeyFinding          = "Report processed successfully"
	defaultHealthScore         = 75
	defaultRiskLevel           = "moderate"

	// defaultedConfidenceCap bounds confidence whenever any field had to
	// be defaulted.
	defaultedConfidenceCap = 80
)

// BiomarkerReading is one biomarker as reported by the model. Values come
// back as numbers or strings depending on the response; both are accepted.
type BiomarkerReading struct {
	Value  string `json:"value"`
	Unit   string `json:"unit"`
	Normal string `json:"normal"`
	Status string `json:"status"`
}

// UnmarshalJSON tolerates numeric values and missing keys.
func (b *BiomarkerReading) UnmarshalJSON(data []byte) error {
	var raw struct {
		Value  any    `json:"value"`
		Unit   string `json:"unit"`
		Normal any    `json:"normal"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Value = stringify(raw.Value)
	b.Unit = raw.Unit
	b.Normal = stringify(raw.Normal)
	b.Status = strings.ToLower(strings.TrimSpace(raw.Status))
	return nil
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ReportAnalysis is the parsed generative analysis, defaults applied.
type ReportAnalysis struct {
	TechnicalAnalysis   string
	LaymanExplanationEn string
	LaymanExplanationHi string
	Recommendations     string
	HealthScore         int
	RiskLevel           string
	KeyFindings         []string
	RiskFactors         []string
	Biomarkers          map[string]BiomarkerReading
	Confidence          float64
}

var validRiskLevels = map[string]struct{}{
	"low":      {},
	"moderate": {},
	"high":     {},
	"critical": {},
}

// ParseResponse scans the model's raw text for the first balanced JSON
// object and parses it, filling missing fields with named defaults. Any
// defaulting caps the reported confidence. Extraction or parse failure
// yields a GenerationError so the caller can fall back.
func ParseResponse(raw string) (ReportAnalysis, error) {
	jsonText, ok := ExtractJSONObject(raw)
	if !ok {
		return ReportAnalysis{}, &GenerationError{Op: "extract json", Err: errors.New("no JSON object in response")}
	}

	var parsed struct {
		TechnicalAnalysis   string                      `json:"technicalAnalysis"`
		LaymanExplanationEn string                      `json:"laymanExplanationEn"`
		LaymanExplanationHi string                      `json:"laymanExplanationHi"`
		Recommendations     string                      `json:"recommendations"`
		HealthScore         *float64                    `json:"healthScore"`
		RiskLevel           string                      `json:"riskLevel"`
		KeyFindings         []string                    `json:"keyFindings"`
		RiskFactors         []string                    `json:"riskFactors"`
		Biomarkers          map[string]BiomarkerReading `json:"biomarkers"`
		Confidence          *float64                    `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return ReportAnalysis{}, &GenerationError{Op: "parse json", Err: err}
	}

	defaulted := false
	fill := func(field *string, def string) {
		if strings.TrimSpace(*field) == "" {
			*field = def
			defaulted = true
		}
	}

	out := ReportAnalysis{
		TechnicalAnalysis:   parsed.TechnicalAnalysis,
		LaymanExplanationEn: parsed.LaymanExplanationEn,
		LaymanExplanationHi: parsed.LaymanExplanationHi,
		Recommendations:     parsed.Recommendations,
		KeyFindings:         parsed.KeyFindings,
		RiskFactors:         parsed.RiskFactors,
		Biomarkers:          parsed.Biomarkers,
	}

	fill(&out.TechnicalAnalysis, defaultTechnicalAnalysis)
	fill(&out.LaymanExplanationEn, defaultLaymanExplanationEn)
	fill(&out.LaymanExplanationHi, defaultLaymanExplanationHi)
	fill(&out.Recommendations, defaultRecommendations)

	if parsed.HealthScore != nil && *parsed.HealthScore >= 0 && *parsed.HealthScore <= 100 {
		out.HealthScore = int(*parsed.HealthScore)
	} else {
		out.HealthScore = defaultHealthScore
		defaulted = true
	}

	risk := strings.ToLower(strings.TrimSpace(parsed.RiskLevel))
	if _, ok := validRiskLevels[risk]; ok {
		out.RiskLevel = risk
	} else {
		out.RiskLevel = defaultRiskLevel
		defaulted = true
	}

	if len(out.KeyFindings) == 0 {
		out.KeyFindings = []string{defaultKeyFinding}
		defaulted = true
	}
	if out.RiskFactors == nil {
		out.RiskFactors = []string{}
	}
	if out.Biomarkers == nil {
		out.Biomarkers = map[string]BiomarkerReading{}
	}

	if parsed.Confidence != nil && *parsed.Confidence >= 0 && *parsed.Confidence <= 100 {
		out.Confidence = *parsed.Confidence
	} else {
		out.Confidence = defaultedConfidenceCap
		defaulted = true
	}
	if defaulted && out.Confidence > defaultedConfidenceCap {
		out.Confidence = defaultedConfidenceCap
	}

	return out, nil
}

// ExtractJSONObject returns the first balanced top-level {...} substring.
// Brace matching is string-aware but deliberately best-effort; malformed
// content downstream is handled by the parse step's fallback.
func ExtractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
