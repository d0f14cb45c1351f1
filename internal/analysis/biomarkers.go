package analysis

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// normalRange bounds a biomarker's reference interval, inclusive.
type normalRange struct {
	Lo   float64
	Hi   float64
	Unit string
}

func (r normalRange) String() string {
	return fmt.Sprintf("%s-%s", trimFloat(r.Lo), trimFloat(r.Hi))
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// normalRanges holds the reference intervals for the biomarkers the
// extractor knows about. Values follow common adult reference intervals.
var normalRanges = map[string]normalRange{
	"hemoglobin":  {12.0, 15.5, "g/dL"},
	"glucose":     {70, 100, "mg/dL"},
	"cholesterol": {125, 200, "mg/dL"},
	"ldl":         {0, 100, "mg/dL"},
	"hdl":         {40, 60, "mg/dL"},
	"creatinine":  {0.7, 1.3, "mg/dL"},
	"bun":         {7, 20, "mg/dL"},
	"alt":         {7, 56, "U/L"},
	"ast":         {10, 40, "U/L"},
	"wbc":         {4.5, 11.0, "K/uL"},
	"rbc":         {4.5, 5.9, "M/uL"},
	"platelets":   {150, 450, "K/uL"},
}

// biomarkerOrder fixes the scan order so output is deterministic.
var biomarkerOrder = []string{
	"hemoglobin", "glucose", "cholesterol", "ldl", "hdl",
	"creatinine", "bun", "alt", "ast", "wbc", "rbc", "platelets",
}

var biomarkerPatterns = buildBiomarkerPatterns()

func buildBiomarkerPatterns() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(biomarkerOrder))
	for _, name := range biomarkerOrder {
		// name, separator, number, optional unit token.
		expr := fmt.Sprintf(`(?i)\b%s[:\s]+(\d+(?:\.\d+)?)\s*([a-zA-Z/%%]+)?`, regexp.QuoteMeta(name))
		out[name] = regexp.MustCompile(expr)
	}
	return out
}

// ExtractBiomarkers scans cleaned text for known biomarkers. Markers not
// present in the text are omitted; extraction never fails.
func ExtractBiomarkers(text string) map[string]Biomarker {
	out := make(map[string]Biomarker)
	if strings.TrimSpace(text) == "" {
		return out
	}
	for _, name := range biomarkerOrder {
		match := biomarkerPatterns[name].FindStringSubmatch(text)
		if match == nil {
			continue
		}
		value := match[1]
		unit := ""
		if len(match) > 2 {
			unit = match[2]
		}
		normal := ""
		if r, ok := normalRanges[name]; ok {
			normal = r.String()
			if unit == "" {
				unit = r.Unit
			}
		}
		out[name] = Biomarker{
			Value:  value,
			Unit:   unit,
			Normal: normal,
			Status: BiomarkerStatus(name, value),
		}
	}
	return out
}

// BiomarkerStatus derives status from a value and the known range for the
// named marker. Unparseable values or unknown markers yield unknown.
func BiomarkerStatus(name, value string) string {
	r, ok := normalRanges[strings.ToLower(name)]
	if !ok {
		return "unknown"
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return "unknown"
	}
	switch {
	case v < r.Lo:
		return "low"
	case v > r.Hi:
		return "high"
	default:
		return "normal"
	}
}
