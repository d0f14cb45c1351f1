package analysis

import (
	"reflect"
	"strings"
	"testing"
)

func TestFallbackCriticalKeywords(t *testing.T) {
	got := FallbackAnalyze("Patient experienced a severe cardiac event during admission.")
	if got.RiskLevel != RiskCritical {
		t.Errorf("riskLevel = %q, want critical", got.RiskLevel)
	}
	if got.HealthScore > 30 {
		t.Errorf("healthScore = %d, want <= 30", got.HealthScore)
	}
	if len(got.KeyFindings) == 0 || !strings.Contains(strings.ToLower(got.KeyFindings[0]), "urgent") {
		t.Errorf("expected a key finding mentioning urgency, got %v", got.KeyFindings)
	}
}

func TestFallbackModerateKeywords(t *testing.T) {
	got := FallbackAnalyze("History of hypertension, otherwise stable.")
	if got.RiskLevel != RiskModerate {
		t.Errorf("riskLevel = %q, want moderate", got.RiskLevel)
	}
	if got.HealthScore != 60 {
		t.Errorf("healthScore = %d, want 60", got.HealthScore)
	}
}

func TestFallbackRoutineBloodContent(t *testing.T) {
	got := FallbackAnalyze("CBC drawn, hemoglobin and platelet counts recorded.")
	if got.RiskLevel != RiskLow {
		t.Errorf("riskLevel = %q, want low", got.RiskLevel)
	}
	if got.HealthScore != 85 {
		t.Errorf("healthScore = %d, want 85", got.HealthScore)
	}
}

func TestFallbackUnclassifiedContent(t *testing.T) {
	got := FallbackAnalyze("Patient visited for a routine checkup.")
	if got.RiskLevel != RiskModerate {
		t.Errorf("riskLevel = %q, want moderate baseline", got.RiskLevel)
	}
	if got.HealthScore != 75 {
		t.Errorf("healthScore = %d, want 75", got.HealthScore)
	}
	found := false
	for _, rf := range got.RiskFactors {
		if strings.Contains(strings.ToLower(rf), "professional interpretation") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a professional-interpretation risk factor, got %v", got.RiskFactors)
	}
}

func TestFallbackCriticalWinsOverModerate(t *testing.T) {
	got := FallbackAnalyze("Diabetes noted; imaging shows a tumor.")
	if got.RiskLevel != RiskCritical {
		t.Errorf("riskLevel = %q, want critical when both keyword sets match", got.RiskLevel)
	}
}

func TestFallbackDeterministic(t *testing.T) {
	input := "Mild anemia with elevated glucose. Cardiac rhythm normal."
	first := FallbackAnalyze(input)
	for i := 0; i < 5; i++ {
		if got := FallbackAnalyze(input); !reflect.DeepEqual(got, first) {
			t.Fatal("fallback output differs between identical inputs")
		}
	}
}

func TestFallbackAlwaysPopulated(t *testing.T) {
	for _, input := range []string{"", "unrelated text", "severe stroke", "blood work"} {
		got := FallbackAnalyze(input)
		if got.TechnicalAnalysis == "" || got.LaymanExplanationEn == "" || got.LaymanExplanationHi == "" || got.Recommendations == "" {
			t.Errorf("%q: fallback left a text field empty", input)
		}
		if len(got.KeyFindings) == 0 {
			t.Errorf("%q: fallback produced no key findings", input)
		}
		if got.Confidence != fallbackConfidence {
			t.Errorf("%q: confidence = %v, want %d", input, got.Confidence, fallbackConfidence)
		}
	}
}
