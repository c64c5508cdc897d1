// Package llm defines the text-generation contract used by document analysis
// and the provider-neutral pieces shared by the concrete clients.
package llm

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyResponse means the service answered without any text content.
	ErrEmptyResponse = errors.New("llm returned no content")
	// ErrNotConfigured is returned by Unconfigured.
	ErrNotConfigured = errors.New("llm provider not configured")
)

// Request is a single system+user completion call.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	// JSON asks providers that support it for a JSON-only response.
	JSON bool
}

// Client completes a prompt and returns the raw text answer.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// StatusError carries the HTTP status reported by a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s http status %d: %v", e.Provider, e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// Unconfigured is used when no provider credentials are available.
type Unconfigured struct {
	Provider string
}

// Complete always fails with ErrNotConfigured.
func (u Unconfigured) Complete(ctx context.Context, req Request) (string, error) {
	_ = ctx
	_ = req
	if u.Provider == "" {
		return "", ErrNotConfigured
	}
	return "", fmt.Errorf("%w: %s", ErrNotConfigured, u.Provider)
}
