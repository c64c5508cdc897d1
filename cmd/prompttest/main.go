package main

// Run the analysis prompt against a local file without the API server:
//   go run ./cmd/prompttest -file ./invoice.pdf -provider anthropic

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"docsum-backend/internal/analysis"
	"docsum-backend/internal/bootstrap"
	"docsum-backend/internal/extract"
	"docsum-backend/internal/llm"
	"docsum-backend/internal/shared/config"
)

type output struct {
	File         string         `json:"file"`
	Chars        int            `json:"chars"`
	Summary      string         `json:"summary"`
	DocumentType string         `json:"documentType"`
	Metadata     map[string]any `json:"metadata"`
	Fallback     bool           `json:"fallback"`
	Reason       string         `json:"reason,omitempty"`
	Raw          string         `json:"raw,omitempty"`
	DurationMs   int64          `json:"durationMs"`
}

func main() {
	cfg := config.Load()

	filePath := flag.String("file", "", "Path to a PDF or DOCX file")
	provider := flag.String("provider", cfg.LLMProvider, "LLM provider")
	model := flag.String("model", "", "LLM model (default: provider default)")
	outPath := flag.String("out", "", "Path to write JSON output (optional)")
	showRaw := flag.Bool("raw", false, "Include the raw model answer")
	flag.Parse()

	if strings.TrimSpace(*filePath) == "" {
		exitErr("file path is required")
	}

	mimeType := extract.MimeTypeFromFileName(*filePath)
	data, err := os.ReadFile(*filePath)
	if err != nil {
		exitErr(fmt.Sprintf("read file: %v", err))
	}

	ctx := context.Background()
	text, err := extract.ExtractMime(ctx, data, mimeType)
	if err != nil {
		exitErr(fmt.Sprintf("extract text: %v", err))
	}

	if *provider != cfg.LLMProvider {
		// Reload so the provider's key, model and base URL defaults apply.
		_ = os.Setenv("LLM_PROVIDER", *provider)
		cfg = config.Load()
	}
	if strings.TrimSpace(*model) != "" {
		cfg.LLMModel = *model
	}
	client, err := bootstrap.NewLLMClient(cfg)
	if err != nil {
		exitErr(err.Error())
	}
	recorder := &recordingClient{next: client}

	start := time.Now()
	outcome, err := analysis.NewEngine(recorder).Analyze(ctx, text)
	if err != nil {
		exitErr(fmt.Sprintf("analyze: %v", err))
	}

	out := output{
		File:         *filePath,
		Chars:        len([]rune(text)),
		Summary:      outcome.Result.Summary,
		DocumentType: outcome.Result.DocumentType,
		Metadata:     outcome.Result.Metadata,
		Fallback:     outcome.Fallback,
		Reason:       outcome.Reason,
		DurationMs:   time.Since(start).Milliseconds(),
	}
	if *showRaw {
		out.Raw = recorder.last
	}

	pretty, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}
	pretty = append(pretty, '\n')

	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	if _, err := os.Stdout.Write(pretty); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
}

type recordingClient struct {
	next llm.Client
	last string
}

func (r *recordingClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	out, err := r.next.Complete(ctx, req)
	r.last = out
	return out, err
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
