package llm

import (
	"fmt"
	"strings"
)

const promptRole = `You are an expert medical AI analyst specializing in patient-friendly explanations. Analyze the following medical report and provide a comprehensive analysis.`

const promptSchema = `Please provide a detailed analysis in the following JSON format:

{
  "technicalAnalysis": "Detailed medical analysis using proper medical terminology. Include specific findings, diagnoses, and clinical observations.",
  "laymanExplanationEn": "Patient-friendly explanation in simple English, avoiding medical jargon. Be empathetic and clear about what the findings mean for the patient's health.",
  "laymanExplanationHi": "The same patient-friendly explanation in Hindi, using clear Devanagari script.",
  "recommendations": "Personalized actionable recommendations including lifestyle changes, follow-up appointments, and urgent care alerts if needed.",
  "healthScore": 85,
  "riskLevel": "moderate",
  "keyFindings": ["finding1", "finding2"],
  "riskFactors": ["factor1"],
  "biomarkers": {
    "glucose": {"value": "98", "unit": "mg/dL", "normal": "70-100", "status": "normal"}
  },
  "confidence": 95.5
}

IMPORTANT GUIDELINES:
1. Extract real values from the report text; do not invent measurements.
2. Compare extracted values to their normal ranges when interpreting them.
3. Health Score: compute a 0-100 score based on severity and number of conditions.
4. Risk Level: classify as low, moderate, high, or critical based on findings.
5. Key Findings: list the most important medical findings.
6. Risk Factors: list conditions or values that elevate the patient's risk.
7. Confidence: assess analysis quality (0-100) based on data clarity and completeness.
8. Respond with the JSON object only. If data is unclear, indicate uncertainty rather than guessing.`

// sectionOrder keeps prompt output deterministic for a given input.
var sectionOrder = []string{"diagnosis", "findings", "labs", "notes"}

// BuildPrompt assembles the analysis prompt from extracted text, validated
// terms, segmented sections, and the declared report type.
func BuildPrompt(text string, validatedTerms []string, sections map[string]string, reportType string) string {
	var b strings.Builder

	b.WriteString(promptRole)
	b.WriteString("\n\nMEDICAL REPORT TEXT (OCR Extracted):\n")
	b.WriteString(text)
	b.WriteString(fmt.Sprintf("\n\nREPORT TYPE: %s\n", reportType))

	if len(validatedTerms) > 0 {
		b.WriteString("\nVALIDATED MEDICAL TERMS:\n")
		b.WriteString(strings.Join(validatedTerms, ", "))
		b.WriteString("\n")
	}

	if len(sections) > 0 {
		b.WriteString("\nREPORT SECTIONS:\n")
		for _, name := range sectionOrder {
			content, ok := sections[name]
			if !ok || strings.TrimSpace(content) == "" {
				continue
			}
			b.WriteString(strings.ToUpper(name))
			b.WriteString(": ")
			b.WriteString(content)
			b.WriteString("\n\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(promptSchema)
	return b.String()
}
