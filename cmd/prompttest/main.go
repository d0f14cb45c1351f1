package main

// Exercise the analysis prompt against a local report file:
//   go run ./cmd/prompttest -report sample.pdf -type blood_test

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"medreport-backend/internal/analysis/textproc"
	"medreport-backend/internal/llm"
	"medreport-backend/internal/llm/gemini"
	"medreport-backend/internal/ocr"
	"medreport-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	reportPath := flag.String("report", "", "Path to report file (pdf, jpg, or png)")
	reportType := flag.String("type", "general", "Report type hint")
	dryRun := flag.Bool("dry", false, "Print the prompt instead of calling the model")
	outPath := flag.String("out", "", "Path to write raw JSON output (optional)")
	model := flag.String("model", cfg.LLMModel, "LLM model")
	flag.Parse()

	if strings.TrimSpace(*reportPath) == "" {
		exitErr("report path is required")
	}

	data, err := os.ReadFile(*reportPath)
	if err != nil {
		exitErr(fmt.Sprintf("read report: %v", err))
	}
	fileName := filepath.Base(*reportPath)
	mimeType, err := mimeFromExt(*reportPath)
	if err != nil {
		exitErr(err.Error())
	}

	engine := &ocr.Engine{}
	if strings.TrimSpace(cfg.OCRAPIURL) != "" {
		ocrClient, err := ocr.NewHTTPClient(cfg.OCRAPIURL, cfg.OCRAPIKey)
		if err != nil {
			exitErr(err.Error())
		}
		engine.Images = ocrClient
	}

	ctx := context.Background()
	extraction, err := engine.Extract(ctx, data, mimeType, fileName)
	if err != nil {
		exitErr(fmt.Sprintf("extract text: %v", err))
	}

	text := textproc.Preprocess(extraction.Text)
	sections := textproc.Segment(text)
	prompt := llm.BuildPrompt(text, nil, sections, *reportType)

	if *dryRun {
		fmt.Println(prompt)
		return
	}

	client, err := gemini.NewClient(cfg.GeminiAPIKey, *model)
	if err != nil {
		exitErr(err.Error())
	}

	raw, err := client.Generate(ctx, prompt, llm.DefaultParams())
	if err != nil {
		exitErr(fmt.Sprintf("llm generate: %v", err))
	}

	parsed, err := llm.ParseResponse(raw)
	if err != nil {
		exitErr(fmt.Sprintf("parse response: %v", err))
	}

	pretty, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}

	fmt.Println(string(pretty))
}

func mimeFromExt(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf", nil
	case ".jpg", ".jpeg":
		return "image/jpeg", nil
	case ".png":
		return "image/png", nil
	default:
		return "", fmt.Errorf("unsupported file extension: %s", filepath.Ext(path))
	}
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
