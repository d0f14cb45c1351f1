package llm

import (
	"strings"
	"testing"
)

func TestParseResponseFullObject(t *testing.T) {
	raw := "Here is the analysis:\n```json\n" + `{
		"technicalAnalysis": "CBC shows mild anemia.",
		"laymanExplanationEn": "Your red blood cell count is a bit low.",
		"laymanExplanationHi": "आपकी लाल रक्त कोशिकाएं थोड़ी कम हैं।",
		"recommendations": "Increase iron intake.",
		"healthScore": 68,
		"riskLevel": "Moderate",
		"keyFindings": ["Low hemoglobin"],
		"riskFactors": ["Anemia"],
		"biomarkers": {
			"hemoglobin": {"value": 10.5, "unit": "g/dL", "normal": "12.0-15.5", "status": "LOW"}
		},
		"confidence": 92
	}` + "\n```"

	got, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if got.HealthScore != 68 {
		t.Errorf("healthScore = %d, want 68", got.HealthScore)
	}
	if got.RiskLevel != "moderate" {
		t.Errorf("riskLevel = %q, want moderate", got.RiskLevel)
	}
	if got.Confidence != 92 {
		t.Errorf("confidence = %v, want 92 (no defaults applied)", got.Confidence)
	}
	bm, ok := got.Biomarkers["hemoglobin"]
	if !ok {
		t.Fatal("missing hemoglobin biomarker")
	}
	if bm.Value != "10.5" {
		t.Errorf("biomarker value = %q, want 10.5", bm.Value)
	}
	if bm.Status != "low" {
		t.Errorf("biomarker status = %q, want low", bm.Status)
	}
}

func TestParseResponseAppliesDefaults(t *testing.T) {
	got, err := ParseResponse(`{"technicalAnalysis": "Partial result.", "confidence": 95}`)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if got.TechnicalAnalysis != "Partial result." {
		t.Errorf("technicalAnalysis overwritten: %q", got.TechnicalAnalysis)
	}
	if got.HealthScore != defaultHealthScore {
		t.Errorf("healthScore = %d, want default %d", got.HealthScore, defaultHealthScore)
	}
	if got.RiskLevel != defaultRiskLevel {
		t.Errorf("riskLevel = %q, want default %q", got.RiskLevel, defaultRiskLevel)
	}
	if len(got.KeyFindings) != 1 || got.KeyFindings[0] != defaultKeyFinding {
		t.Errorf("keyFindings = %v, want default finding", got.KeyFindings)
	}
	if got.Confidence > defaultedConfidenceCap {
		t.Errorf("confidence = %v, want capped at %d when defaults applied", got.Confidence, defaultedConfidenceCap)
	}
	if got.Biomarkers == nil || got.RiskFactors == nil {
		t.Error("biomarkers and riskFactors must be non-nil")
	}
}

func TestParseResponseOutOfRangeScore(t *testing.T) {
	got, err := ParseResponse(`{"healthScore": 140, "riskLevel": "severe"}`)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if got.HealthScore != defaultHealthScore {
		t.Errorf("healthScore = %d, want default for out-of-range input", got.HealthScore)
	}
	if got.RiskLevel != defaultRiskLevel {
		t.Errorf("riskLevel = %q, want default for unknown level", got.RiskLevel)
	}
}

func TestParseResponseNoJSON(t *testing.T) {
	_, err := ParseResponse("I am sorry, I cannot analyze this report.")
	if err == nil {
		t.Fatal("expected error for response without JSON")
	}
	if !IsGenerationError(err) {
		t.Errorf("expected GenerationError, got %T", err)
	}
}

func TestParseResponseMalformedJSON(t *testing.T) {
	_, err := ParseResponse(`{"healthScore": }`)
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	if !IsGenerationError(err) {
		t.Errorf("expected GenerationError, got %T", err)
	}
}

func TestExtractJSONObjectNested(t *testing.T) {
	s := `prefix {"a": {"b": "close } brace in string"}, "c": [1, 2]} suffix {"d": 1}`
	got, ok := ExtractJSONObject(s)
	if !ok {
		t.Fatal("expected an object")
	}
	want := `{"a": {"b": "close } brace in string"}, "c": [1, 2]}`
	if got != want {
		t.Errorf("extracted %q, want %q", got, want)
	}
}

func TestExtractJSONObjectUnbalanced(t *testing.T) {
	if _, ok := ExtractJSONObject(`{"a": 1`); ok {
		t.Error("unbalanced object should not extract")
	}
	if _, ok := ExtractJSONObject("no braces here"); ok {
		t.Error("no-brace input should not extract")
	}
}

func TestBiomarkerReadingStringValue(t *testing.T) {
	got, err := ParseResponse(`{"biomarkers": {"glucose": {"value": "110", "unit": "mg/dL", "normal": "70-100", "status": "high"}}}`)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if got.Biomarkers["glucose"].Value != "110" {
		t.Errorf("value = %q, want 110", got.Biomarkers["glucose"].Value)
	}
}

func TestParseResponseDefaultTextsNonEmpty(t *testing.T) {
	got, err := ParseResponse(`{}`)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	for name, v := range map[string]string{
		"technicalAnalysis":   got.TechnicalAnalysis,
		"laymanExplanationEn": got.LaymanExplanationEn,
		"laymanExplanationHi": got.LaymanExplanationHi,
		"recommendations":     got.Recommendations,
	} {
		if strings.TrimSpace(v) == "" {
			t.Errorf("%s default is empty", name)
		}
	}
}
