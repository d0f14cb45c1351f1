// Package nlp validates medical terminology via an external NER capability.
package nlp

import (
	"context"
	"unicode/utf8"
)

// maxInputChars bounds the prefix sent to the model, which has a hard
// input limit.
const maxInputChars = 512

// confidenceThreshold filters low-scoring entities out of the validated set.
const confidenceThreshold = 0.8

// Entity is a recognized medical term with its model confidence.
type Entity struct {
	Term       string  `json:"term"`
	Confidence float64 `json:"confidence"`
}

// Validation carries recognized entities plus the provider's raw
// classification payload, which is passed through opaquely.
type Validation struct {
	Entities       []Entity `json:"entities"`
	Classification any      `json:"classification,omitempty"`
}

// Validator is the medical entity-recognition capability.
type Validator interface {
	Classify(ctx context.Context, text string) (Validation, error)
}

// Truncate bounds text to the model input limit, backing off to the
// previous rune boundary so a multi-byte character is never split.
func Truncate(text string) string {
	if len(text) <= maxInputChars {
		return text
	}
	cut := maxInputChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// ValidatedTerms returns the deduplicated terms above the confidence
// threshold, preserving first-seen order.
func ValidatedTerms(v Validation) []string {
	seen := map[string]struct{}{}
	var terms []string
	for _, e := range v.Entities {
		if e.Confidence <= confidenceThreshold {
			continue
		}
		if _, dup := seen[e.Term]; dup {
			continue
		}
		seen[e.Term] = struct{}{}
		terms = append(terms, e.Term)
	}
	return terms
}
