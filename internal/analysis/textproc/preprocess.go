// Package textproc cleans and segments raw OCR output before analysis.
package textproc

import (
	"regexp"
	"strings"
)

var boilerplatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^(?:Page|PAGE)\s*\d+.*$`),
	regexp.MustCompile(`(?m)^(?:Confidential|CONFIDENTIAL).*$`),
	regexp.MustCompile(`(?m)^(?:Date|DATE):.*$`),
}

// abbreviations maps short medical forms to full terms. Expansion is
// best-effort normalization for downstream prompting, not authoritative.
var abbreviations = []struct {
	pattern *regexp.Regexp
	full    string
}{
	{regexp.MustCompile(`\bBP\b`), "Blood Pressure"},
	{regexp.MustCompile(`\bHR\b`), "Heart Rate"},
	{regexp.MustCompile(`\bRR\b`), "Respiratory Rate"},
	{regexp.MustCompile(`\bTemp\b`), "Temperature"},
	{regexp.MustCompile(`\bO2\b`), "Oxygen"},
	{regexp.MustCompile(`\bCT\b`), "Computed Tomography"},
	{regexp.MustCompile(`\bMRI\b`), "Magnetic Resonance Imaging"},
	{regexp.MustCompile(`\bECG\b`), "Electrocardiogram"},
	{regexp.MustCompile(`\bCBC\b`), "Complete Blood Count"},
	{regexp.MustCompile(`\bCMP\b`), "Comprehensive Metabolic Panel"},
}

var (
	spaceRuns = regexp.MustCompile(`[ \t]+`)
	blankRuns = regexp.MustCompile(`\n\s*\n`)
)

// Preprocess strips report boilerplate, collapses whitespace, and expands
// common medical abbreviations. Empty input passes through unchanged.
func Preprocess(raw string) string {
	if raw == "" {
		return ""
	}

	text := raw
	for _, p := range boilerplatePatterns {
		text = p.ReplaceAllString(text, "")
	}

	text = spaceRuns.ReplaceAllString(text, " ")
	text = blankRuns.ReplaceAllString(text, "\n")
	text = strings.TrimSpace(text)

	for _, abbr := range abbreviations {
		text = abbr.pattern.ReplaceAllString(text, abbr.full)
	}

	return text
}
