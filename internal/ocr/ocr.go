// Package ocr extracts text from uploaded medical reports.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	mimePDF  = "application/pdf"
	mimeJPEG = "image/jpeg"
	mimeJPG  = "image/jpg"
	mimePNG  = "image/png"
)

// Extraction is the result of pulling text out of a stored report.
type Extraction struct {
	Text       string
	Confidence float64
	Lines      []Line
}

// Line is coarse per-line layout information when the engine provides it.
type Line struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Extractor turns report bytes into text.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType, fileName string) (Extraction, error)
}

// ErrUnsupportedType indicates a file type no engine can handle.
var ErrUnsupportedType = errors.New("unsupported file type")

// Engine routes PDFs to the native reader and images to the OCR service.
type Engine struct {
	Images Extractor
}

// Extract dispatches on the (normalized) mime type.
func (e *Engine) Extract(ctx context.Context, data []byte, mimeType, fileName string) (Extraction, error) {
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}

	switch normalizeMimeType(mimeType, fileName) {
	case mimePDF:
		return extractPDF(data)
	case mimeJPEG, mimeJPG, mimePNG:
		if e.Images == nil {
			return Extraction{}, fmt.Errorf("image extraction: %w", ErrUnsupportedType)
		}
		return e.Images.Extract(ctx, data, mimeType, fileName)
	default:
		return Extraction{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
}

func normalizeMimeType(mimeType, fileName string) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if clean != "" && clean != "application/octet-stream" {
		return clean
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return mimePDF
	case ".jpg", ".jpeg":
		return mimeJPEG
	case ".png":
		return mimePNG
	default:
		return clean
	}
}

var _ Extractor = (*Engine)(nil)
