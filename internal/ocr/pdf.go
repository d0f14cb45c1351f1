package ocr

import (
	"bytes"
	"io"

	"github.com/ledongthuc/pdf"
)

// pdfTextConfidence is reported for native PDF text, which is read from
// the content stream rather than recognized.
const pdfTextConfidence = 99.0

func extractPDF(data []byte) (Extraction, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return Extraction{}, err
	}

	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return Extraction{}, err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return Extraction{}, err
	}

	return Extraction{
		Text:       buf.String(),
		Confidence: pdfTextConfidence,
	}, nil
}
