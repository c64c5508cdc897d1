// Package analysis turns extracted document text into a summary, a document
// type and type-dependent metadata using a text-generation service.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"docsum-backend/internal/llm"
	"docsum-backend/internal/shared/telemetry"
)

// Result is the structured analysis merged into a document record.
type Result struct {
	Summary      string
	DocumentType string
	Metadata     map[string]any
}

// Outcome tags a Result with whether it is the degraded fallback.
type Outcome struct {
	Result   Result
	Fallback bool
	// Reason is the parse failure that triggered the fallback.
	Reason string
}

// Engine builds the prompt, calls the model and interprets its answer.
type Engine struct {
	LLM llm.Client
}

func NewEngine(client llm.Client) *Engine {
	return &Engine{LLM: client}
}

// Analyze returns an error only when the generation service fails or answers
// with no content. Malformed answers produce a fallback Outcome.
func (e *Engine) Analyze(ctx context.Context, text string) (Outcome, error) {
	if e == nil || e.LLM == nil {
		return Outcome{}, llm.ErrNotConfigured
	}

	raw, err := e.LLM.Complete(ctx, llm.Request{
		System:      SystemPrompt,
		User:        BuildPrompt(text),
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
		JSON:        true,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("generate analysis: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return Outcome{}, fmt.Errorf("generate analysis: %w", llm.ErrEmptyResponse)
	}

	result, err := parseResult(raw)
	if err != nil {
		reason := err.Error()
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			reason = "invalid json: " + syntaxErr.Error()
		}
		telemetry.Warn("analysis.fallback", map[string]any{
			"reason":       reason,
			"raw_response": preview(raw, 200),
		})
		return Outcome{Result: Fallback(), Fallback: true, Reason: reason}, nil
	}
	return Outcome{Result: result}, nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
