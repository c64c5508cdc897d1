package gemini

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/genai"

	"docsum-backend/internal/llm"
)

func TestNewClientValidatesOptions(t *testing.T) {
	if _, err := NewClient(Options{Model: "gemini-2.0-flash"}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := NewClient(Options{APIKey: "k"}); err == nil {
		t.Fatalf("expected missing model error")
	}
	if _, err := NewClient(Options{APIKey: "k", Model: "gemini-2.0-flash"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWrapErrorMapsAPIError(t *testing.T) {
	err := wrapError(fmt.Errorf("call: %w", genai.APIError{Code: http.StatusServiceUnavailable, Message: "overloaded"}))
	var statusErr *llm.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable || !statusErr.Retryable() {
		t.Fatalf("unexpected status error %+v", statusErr)
	}

	plain := wrapError(errors.New("dial tcp: refused"))
	if errors.As(plain, &statusErr) {
		t.Fatalf("plain errors must not become StatusError")
	}
}
