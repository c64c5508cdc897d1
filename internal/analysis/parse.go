package analysis

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

const (
	FallbackSummary       = "Unable to generate summary"
	FallbackDocumentType  = "other"
	FallbackMetadataError = "Failed to parse LLM response"
)

var (
	errMissingFields = errors.New("missing required fields in llm response")

	jsonFencePattern = regexp.MustCompile("```json\n?")
	fencePattern     = regexp.MustCompile("```\n?")
)

// Fallback returns a fresh copy of the degraded result used when a response cannot be interpreted.
func Fallback() Result {
	return Result{
		Summary:      FallbackSummary,
		DocumentType: FallbackDocumentType,
		Metadata:     map[string]any{"error": FallbackMetadataError},
	}
}

// stripFences removes markdown code fences wrapping a JSON answer.
func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(cleaned, "```json"):
		cleaned = jsonFencePattern.ReplaceAllString(cleaned, "")
		cleaned = fencePattern.ReplaceAllString(cleaned, "")
	case strings.HasPrefix(cleaned, "```"):
		cleaned = fencePattern.ReplaceAllString(cleaned, "")
	}
	return strings.TrimSpace(cleaned)
}

// parseResult interprets a raw model answer. Any returned error is a reason to fall back.
func parseResult(raw string) (Result, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(stripFences(raw)), &payload); err != nil {
		return Result{}, err
	}

	summary, _ := payload["summary"].(string)
	docType, _ := payload["documentType"].(string)
	if strings.TrimSpace(summary) == "" || strings.TrimSpace(docType) == "" {
		return Result{}, errMissingFields
	}

	metadata, ok := payload["metadata"].(map[string]any)
	if !ok || metadata == nil {
		metadata = map[string]any{}
	}

	return Result{
		Summary:      summary,
		DocumentType: strings.ToLower(docType),
		Metadata:     metadata,
	}, nil
}
