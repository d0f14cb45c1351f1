package analysis

import (
	"strconv"
	"strings"
	"time"

	"medreport-backend/internal/llm"
)

// Disclaimers appended to every assembled text section. The Hindi
// explanation gets the Hindi wording, everything else the English one.
const (
	disclaimer   = "This is an automated analysis and not a medical diagnosis. Always consult a qualified healthcare professional."
	disclaimerHi = "यह एक स्वचालित विश्लेषण है, चिकित्सा निदान नहीं। हमेशा योग्य स्वास्थ्य पेशेवर से सलाह लें।"
)

// AssembleGenerative builds the canonical result from a parsed generative
// response plus independently extracted biomarkers.
func AssembleGenerative(gen llm.ReportAnalysis, extracted map[string]Biomarker, startedAt time.Time) AnalysisResult {
	res := AnalysisResult{
		TechnicalAnalysis:   gen.TechnicalAnalysis,
		LaymanExplanationEn: gen.LaymanExplanationEn,
		LaymanExplanationHi: gen.LaymanExplanationHi,
		Recommendations:     gen.Recommendations,
		HealthScore:         gen.HealthScore,
		KeyFindings:         gen.KeyFindings,
		RiskFactors:         gen.RiskFactors,
		Biomarkers:          mergeBiomarkers(gen.Biomarkers, extracted),
		Confidence:          gen.Confidence,
		AnalysisSource:      SourceGenerative,
	}
	finalize(&res, startedAt)
	return res
}

// AssembleFallback builds the canonical result from the rule-based path.
func AssembleFallback(fb FallbackResult, extracted map[string]Biomarker, startedAt time.Time) AnalysisResult {
	res := AnalysisResult{
		TechnicalAnalysis:   fb.TechnicalAnalysis,
		LaymanExplanationEn: fb.LaymanExplanationEn,
		LaymanExplanationHi: fb.LaymanExplanationHi,
		Recommendations:     fb.Recommendations,
		HealthScore:         fb.HealthScore,
		KeyFindings:         fb.KeyFindings,
		RiskFactors:         fb.RiskFactors,
		Biomarkers:          mergeBiomarkers(nil, extracted),
		Confidence:          fb.Confidence,
		AnalysisSource:      SourceFallback,
	}
	finalize(&res, startedAt)
	return res
}

// finalize appends the disclaimers, enforces the score/risk mapping and
// stamps the duration. The risk level always follows the score, even when
// the model disagrees.
func finalize(res *AnalysisResult, startedAt time.Time) {
	res.TechnicalAnalysis = withDisclaimer(res.TechnicalAnalysis, disclaimer)
	res.LaymanExplanationEn = withDisclaimer(res.LaymanExplanationEn, disclaimer)
	res.LaymanExplanationHi = withDisclaimer(res.LaymanExplanationHi, disclaimerHi)
	res.Recommendations = withDisclaimer(res.Recommendations, disclaimer)
	if res.HealthScore < 0 {
		res.HealthScore = 0
	}
	if res.HealthScore > 100 {
		res.HealthScore = 100
	}
	res.RiskLevel = RiskLevelForScore(res.HealthScore)
	if res.KeyFindings == nil {
		res.KeyFindings = []string{}
	}
	if res.RiskFactors == nil {
		res.RiskFactors = []string{}
	}
	res.ProcessingMs = float64(time.Since(startedAt).Microseconds()) / 1000.0
}

func withDisclaimer(text, note string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return note
	}
	if strings.Contains(text, note) {
		return text
	}
	return text + "\n\n" + note
}

// mergeBiomarkers combines generative and regex-extracted biomarkers.
// Generative entries win per key; extracted keys absent from the
// generative output are merged in. Status is always re-derived from the
// value and the known range, never trusted from the model.
func mergeBiomarkers(gen map[string]llm.BiomarkerReading, extracted map[string]Biomarker) map[string]Biomarker {
	out := make(map[string]Biomarker, len(gen)+len(extracted))
	for name, bm := range gen {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		normal := bm.Normal
		if r, ok := normalRanges[key]; ok {
			normal = r.String()
		}
		out[key] = Biomarker{
			Value:  bm.Value,
			Unit:   bm.Unit,
			Normal: normal,
			Status: deriveStatus(key, bm.Value, normal, bm.Status),
		}
	}
	for name, bm := range extracted {
		if _, ok := out[name]; ok {
			continue
		}
		out[name] = bm
	}
	return out
}

// deriveStatus range-checks the value. The known-range table wins; a
// model-supplied "lo-hi" range is used when the table has no entry; the
// model's own status is only kept when no range can be checked at all.
func deriveStatus(name, value, normal, modelStatus string) string {
	if _, ok := normalRanges[name]; ok {
		return BiomarkerStatus(name, value)
	}
	if lo, hi, ok := parseRange(normal); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return "unknown"
		}
		switch {
		case v < lo:
			return "low"
		case v > hi:
			return "high"
		default:
			return "normal"
		}
	}
	switch modelStatus {
	case "low", "high", "normal":
		return modelStatus
	}
	return "unknown"
}

func parseRange(normal string) (lo, hi float64, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(normal), "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lo, errLo := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	hi, errHi := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLo != nil || errHi != nil || lo > hi {
		return 0, 0, false
	}
	return lo, hi, true
}
