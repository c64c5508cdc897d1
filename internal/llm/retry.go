package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"docsum-backend/internal/shared/telemetry"
)

const DefaultRetryBaseDelay = 300 * time.Millisecond

type retryingClient struct {
	base       Client
	maxRetries int
	baseDelay  time.Duration
}

// WithRetry wraps base so transient failures are retried up to maxRetries
// times with exponential backoff. maxRetries <= 0 returns base unchanged.
func WithRetry(base Client, maxRetries int, baseDelay time.Duration) Client {
	if base == nil || maxRetries <= 0 {
		return base
	}
	if baseDelay <= 0 {
		baseDelay = DefaultRetryBaseDelay
	}
	return retryingClient{base: base, maxRetries: maxRetries, baseDelay: baseDelay}
}

func (r retryingClient) Complete(ctx context.Context, req Request) (string, error) {
	delay := r.baseDelay
	var (
		out string
		err error
	)
	for attempt := 0; ; attempt++ {
		out, err = r.base.Complete(ctx, req)
		if err == nil || attempt >= r.maxRetries || !ShouldRetry(err) {
			return out, err
		}
		telemetry.Warn("llm.retry", map[string]any{
			"attempt": attempt + 1,
			"delay":   delay.String(),
			"error":   err.Error(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		delay *= 2
	}
}

// ShouldRetry classifies transient generation-service failures.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEmptyResponse) || errors.Is(err, ErrNotConfigured) || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "unexpected eof") {
		return true
	}
	return false
}
