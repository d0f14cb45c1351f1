package analysis

import "strings"

// Keyword sets for the fallback path. Matching is case-insensitive
// substring presence over the cleaned text.
var (
	criticalKeywords = []string{"stroke", "heart attack", "cancer", "tumor", "severe", "critical", "emergency"}
	moderateKeywords = []string{"hypertension", "diabetes", "elevated", "abnormal", "mild"}
	bloodKeywords    = []string{"hemoglobin", "blood", "cbc", "platelet", "wbc", "rbc"}
	heartKeywords    = []string{"heart", "cardiac", "ecg", "cardiovascular", "pulse"}
)

const fallbackConfidence = 75

// FallbackResult is the deterministic analyzer's output, same shape as
// the generative path produces.
type FallbackResult struct {
	TechnicalAnalysis   string
	LaymanExplanationEn string
	LaymanExplanationHi string
	Recommendations     string
	HealthScore         int
	RiskLevel           string
	KeyFindings         []string
	RiskFactors         []string
	Confidence          float64
}

func containsAny(text string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return kw, true
		}
	}
	return "", false
}

// FallbackAnalyze produces a rule-based analysis when the generative path
// is unavailable. Pure function of the input text.
func FallbackAnalyze(text string) FallbackResult {
	lower := strings.ToLower(text)

	if kw, ok := containsAny(lower, criticalKeywords); ok {
		return FallbackResult{
			TechnicalAnalysis:   "Rule-based screening detected language associated with a serious medical condition (keyword: " + kw + "). The report requires urgent professional review.",
			LaymanExplanationEn: "Your report mentions a potentially serious condition. Please contact your doctor or seek medical care as soon as possible.",
			LaymanExplanationHi: "आपकी रिपोर्ट में एक संभावित गंभीर स्थिति का उल्लेख है। कृपया जल्द से जल्द अपने डॉक्टर से संपर्क करें।",
			Recommendations:     "Seek immediate medical attention. Bring this report to an emergency department or your treating physician.",
			HealthScore:         30,
			RiskLevel:           RiskCritical,
			KeyFindings:         []string{"Urgent: report language indicates a potentially critical condition (" + kw + ")"},
			RiskFactors:         []string{"Critical condition keyword detected: " + kw},
			Confidence:          fallbackConfidence,
		}
	}

	if kw, ok := containsAny(lower, moderateKeywords); ok {
		return FallbackResult{
			TechnicalAnalysis:   "Rule-based screening detected markers of a manageable chronic or abnormal condition (keyword: " + kw + "). Values should be reviewed against the patient's history.",
			LaymanExplanationEn: "Your report shows some findings that are worth discussing with your doctor, though they do not appear immediately dangerous.",
			LaymanExplanationHi: "आपकी रिपोर्ट में कुछ ऐसे निष्कर्ष हैं जिन पर डॉक्टर से चर्चा करनी चाहिए, हालांकि वे तुरंत खतरनाक नहीं लगते।",
			Recommendations:     "Schedule a follow-up appointment with your healthcare provider to review these findings.",
			HealthScore:         60,
			RiskLevel:           RiskModerate,
			KeyFindings:         []string{"Report indicates a condition requiring monitoring (" + kw + ")"},
			RiskFactors:         []string{"Moderate condition keyword detected: " + kw},
			Confidence:          fallbackConfidence,
		}
	}

	_, blood := containsAny(lower, bloodKeywords)
	_, heart := containsAny(lower, heartKeywords)
	if blood || heart {
		return FallbackResult{
			TechnicalAnalysis:   "Rule-based screening found routine hematology or cardiovascular content with no concerning severity markers.",
			LaymanExplanationEn: "Your report appears to contain routine test results with no alarming language detected.",
			LaymanExplanationHi: "आपकी रिपोर्ट में नियमित परीक्षण परिणाम दिखाई देते हैं और कोई चिंताजनक संकेत नहीं मिला।",
			Recommendations:     "Continue routine care and share this report with your doctor at your next visit.",
			HealthScore:         85,
			RiskLevel:           RiskLow,
			KeyFindings:         []string{"Routine test content, no severity markers detected"},
			RiskFactors:         []string{},
			Confidence:          fallbackConfidence,
		}
	}

	return FallbackResult{
		TechnicalAnalysis:   "Rule-based screening could not classify the report content with confidence.",
		LaymanExplanationEn: "We could not automatically interpret this report. A medical professional should review it.",
		LaymanExplanationHi: "हम इस रिपोर्ट की स्वचालित व्याख्या नहीं कर सके। एक चिकित्सा पेशेवर को इसकी समीक्षा करनी चाहिए।",
		Recommendations:     "Please consult your healthcare provider for a complete interpretation of this report.",
		HealthScore:         75,
		RiskLevel:           RiskModerate,
		KeyFindings:         []string{"Report content requires professional interpretation"},
		RiskFactors:         []string{"Requires professional interpretation"},
		Confidence:          fallbackConfidence,
	}
}
