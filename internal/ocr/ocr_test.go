package ocr

import (
	"context"
	"errors"
	"testing"
)

type staticImageExtractor struct {
	result Extraction
	err    error
}

func (s staticImageExtractor) Extract(ctx context.Context, data []byte, mimeType, fileName string) (Extraction, error) {
	_ = ctx
	_ = data
	_ = mimeType
	_ = fileName
	return s.result, s.err
}

func TestEngineRoutesImagesToOCR(t *testing.T) {
	engine := &Engine{Images: staticImageExtractor{result: Extraction{Text: "scanned text", Confidence: 87.5}}}

	got, err := engine.Extract(context.Background(), []byte{0x89, 0x50}, "image/png", "report.png")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got.Text != "scanned text" || got.Confidence != 87.5 {
		t.Fatalf("unexpected extraction: %+v", got)
	}
}

func TestEngineRejectsUnsupportedType(t *testing.T) {
	engine := &Engine{Images: staticImageExtractor{}}

	_, err := engine.Extract(context.Background(), []byte("data"), "application/zip", "archive.zip")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestEngineImageWithoutClient(t *testing.T) {
	engine := &Engine{}

	_, err := engine.Extract(context.Background(), []byte("data"), "image/jpeg", "scan.jpg")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestNormalizeMimeTypeFallsBackToExtension(t *testing.T) {
	cases := []struct {
		mime string
		name string
		want string
	}{
		{"application/octet-stream", "report.pdf", mimePDF},
		{"", "scan.JPG", mimeJPEG},
		{"image/png; charset=binary", "x.png", mimePNG},
		{"application/pdf", "anything", mimePDF},
	}
	for _, tc := range cases {
		if got := normalizeMimeType(tc.mime, tc.name); got != tc.want {
			t.Errorf("normalizeMimeType(%q, %q) = %q, want %q", tc.mime, tc.name, got, tc.want)
		}
	}
}

func TestEngineHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := &Engine{Images: staticImageExtractor{}}
	if _, err := engine.Extract(ctx, []byte("data"), "image/png", "x.png"); err == nil {
		t.Fatal("expected context error")
	}
}
