// Package huggingface implements nlp.Validator using the Hugging Face
// inference API with a clinical BERT model.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"medreport-backend/internal/nlp"
)

const (
	apiURLBase   = "https://api-inference.huggingface.co/models/"
	defaultModel = "emilyalsentzer/Bio_ClinicalBERT"
)

// Client implements nlp.Validator using Hugging Face token classification.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient constructs a Hugging Face validator client.
func NewClient(apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("HUGGINGFACE_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	timeout := 30 * time.Second
	if raw := strings.TrimSpace(os.Getenv("HUGGINGFACE_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

type tokenClassification struct {
	EntityGroup string  `json:"entity_group"`
	Word        string  `json:"word"`
	Score       float64 `json:"score"`
}

// Classify sends a bounded prefix of the text for entity recognition.
func (c *Client) Classify(ctx context.Context, text string) (nlp.Validation, error) {
	payload, err := json.Marshal(inferenceRequest{Inputs: nlp.Truncate(text)})
	if err != nil {
		return nlp.Validation{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURLBase+c.model, bytes.NewReader(payload))
	if err != nil {
		return nlp.Validation{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nlp.Validation{}, fmt.Errorf("huggingface request timeout: %w", err)
		}
		return nlp.Validation{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nlp.Validation{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return nlp.Validation{}, fmt.Errorf("huggingface http status %d", resp.StatusCode)
	}

	var tokens []tokenClassification
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nlp.Validation{}, fmt.Errorf("huggingface response parse: %w", err)
	}

	entities := make([]nlp.Entity, 0, len(tokens))
	for _, tok := range tokens {
		entities = append(entities, nlp.Entity{
			Term:       strings.TrimSpace(tok.Word),
			Confidence: tok.Score,
		})
	}

	// Keep the raw payload around for diagnostics; only entities get a
	// narrow shape.
	var raw any
	_ = json.Unmarshal(body, &raw)

	return nlp.Validation{Entities: entities, Classification: raw}, nil
}

var _ nlp.Validator = (*Client)(nil)
