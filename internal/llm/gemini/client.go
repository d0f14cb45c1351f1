package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"medreport-backend/internal/llm"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-pro"
)

// Client implements llm.Client using the Gemini generateContent API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new Gemini client. The base URL can be overridden
// with GEMINI_API_URL for tests.
func NewClient(apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	baseURL := defaultBaseURL
	if raw := strings.TrimSpace(os.Getenv("GEMINI_API_URL")); raw != "" {
		baseURL = strings.TrimRight(raw, "/")
	}
	timeout := 120 * time.Second
	if raw := strings.TrimSpace(os.Getenv("GEMINI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float32 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float32 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Generate sends the prompt to generateContent and returns the first
// candidate's text. All failures come back as *llm.GenerationError so the
// pipeline can distinguish generation failures from its own.
func (c *Client) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	reqBody := generateRequest{
		Contents: []content{
			{Parts: []part{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     params.Temperature,
			TopK:            params.TopK,
			TopP:            params.TopP,
			MaxOutputTokens: params.MaxOutputTokens,
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", &llm.GenerationError{Op: "encode request", Err: err}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", &llm.GenerationError{Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", &llm.GenerationError{Op: "request", Err: fmt.Errorf("gemini request timeout: %w", err)}
		}
		return "", &llm.GenerationError{Op: "request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &llm.GenerationError{Op: "read response", Err: err}
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &llm.GenerationError{Op: "parse response", Err: fmt.Errorf("gemini response parse: %w", err)}
	}
	if parsed.Error != nil {
		return "", &llm.GenerationError{Op: "request", Err: fmt.Errorf("gemini error: %s (%s)", parsed.Error.Message, parsed.Error.Status)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &llm.GenerationError{Op: "request", Err: fmt.Errorf("gemini status %d", resp.StatusCode)}
	}
	if len(parsed.Candidates) == 0 {
		return "", &llm.GenerationError{Op: "parse response", Err: fmt.Errorf("gemini response missing candidates")}
	}

	candidate := parsed.Candidates[0]
	var b strings.Builder
	for _, p := range candidate.Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", &llm.GenerationError{Op: "parse response", Err: fmt.Errorf("gemini response empty content")}
	}
	if candidate.FinishReason != "" && candidate.FinishReason != "STOP" {
		log.Printf("gemini finish_reason=%s model=%s", candidate.FinishReason, c.model)
	}
	return text, nil
}

var _ llm.Client = (*Client)(nil)
