package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// HTTPClient talks to a hosted OCR engine (a Tesseract-style service)
// over a multipart recognize endpoint.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient constructs an OCR client from explicit settings.
func NewHTTPClient(baseURL, apiKey string) (*HTTPClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("OCR_API_URL is required")
	}
	timeout := 60 * time.Second
	if raw := strings.TrimSpace(os.Getenv("OCR_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type recognizeResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Lines      []Line  `json:"lines,omitempty"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Extract sends the image to the OCR service and returns recognized text.
func (c *HTTPClient) Extract(ctx context.Context, data []byte, mimeType, fileName string) (Extraction, error) {
	if len(data) == 0 {
		return Extraction{}, errors.New("empty image data")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return Extraction{}, err
	}
	if _, err := part.Write(data); err != nil {
		return Extraction{}, err
	}
	if err := writer.WriteField("language", "eng"); err != nil {
		return Extraction{}, err
	}
	if err := writer.Close(); err != nil {
		return Extraction{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/recognize", &body)
	if err != nil {
		return Extraction{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return Extraction{}, fmt.Errorf("ocr request timeout: %w", err)
		}
		return Extraction{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Extraction{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Extraction{}, fmt.Errorf("ocr http status %d", resp.StatusCode)
	}

	var parsed recognizeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Extraction{}, fmt.Errorf("ocr response parse: %w", err)
	}
	if parsed.Error != nil {
		return Extraction{}, fmt.Errorf("ocr error: %s", parsed.Error.Message)
	}

	return Extraction{
		Text:       parsed.Text,
		Confidence: parsed.Confidence,
		Lines:      parsed.Lines,
	}, nil
}

var _ Extractor = (*HTTPClient)(nil)
