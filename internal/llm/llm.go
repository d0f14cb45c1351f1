// Package llm abstracts the generative-model capability used for report
// analysis and owns prompt construction and response parsing.
package llm

import (
	"context"
	"errors"
)

// GenerationParams are the fixed generation settings for one call.
type GenerationParams struct {
	Temperature     float32 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float32 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// DefaultParams favors consistency over creativity for medical analysis.
func DefaultParams() GenerationParams {
	return GenerationParams{
		Temperature:     0.2,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 3072,
	}
}

// Client abstracts generative-model providers.
type Client interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// GenerationError wraps any transport, provider, or parse failure on the
// generative path. Callers treat it as a signal to fall back, never as a
// user-facing error.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return "generation failed: " + e.Op
	}
	return "generation failed: " + e.Op + ": " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsGenerationError reports whether err is (or wraps) a GenerationError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("generative model not configured")

// PlaceholderClient is used when no provider credentials are present; the
// pipeline then always takes the fallback path.
type PlaceholderClient struct{}

// Generate returns ErrNotConfigured wrapped as a GenerationError.
func (PlaceholderClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	_ = ctx
	_ = prompt
	_ = params
	return "", &GenerationError{Op: "generate", Err: ErrNotConfigured}
}

var _ Client = PlaceholderClient{}
