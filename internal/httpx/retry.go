// Package httpx holds small helpers shared by the outbound HTTP clients:
// the embedding client and the reranker client both retry transient
// failures the same way against their self-hosted OpenAI-compatible
// endpoints. The LLM client does not use this package and makes a single
// attempt per call.
package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrRateLimited is returned when all retries are exhausted on a 429/503
// response.
var ErrRateLimited = fmt.Errorf("upstream model service is overloaded, try again shortly")

var retryConfig = struct {
	delays  []time.Duration
	ceiling time.Duration
}{
	delays:  []time.Duration{500 * time.Millisecond, 1000 * time.Millisecond, 2000 * time.Millisecond},
	ceiling: 4 * time.Second,
}

// IsRetryableError reports whether err looks like a transient failure worth
// retrying: a 429/503 HTTP status (as formatted by IsRetryableStatus's
// callers), a connection-level timeout, or a refused/reset connection. These
// are the failure shapes a self-hosted inference server actually produces
// under load or during a restart, not a cloud provider's quota-error
// vocabulary.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "status 429") ||
		strings.Contains(msg, "status 503") ||
		strings.Contains(msg, "rate limited") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout")
}

// IsRetryableStatus reports whether an HTTP status code warrants a retry.
func IsRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}

// WithRetry executes fn up to len(retryConfig.delays)+1 times, retrying only
// on the transient failures IsRetryableError recognizes. Backoff: 500ms,
// 1000ms, 2000ms, each capped at a 4s ceiling.
func WithRetry[T any](ctx context.Context, operation string, fn func() (T, error)) (T, error) {
	result, err := fn()
	if err == nil {
		return result, nil
	}

	if !IsRetryableError(err) {
		return result, err
	}

	for i, delay := range retryConfig.delays {
		if delay > retryConfig.ceiling {
			delay = retryConfig.ceiling
		}

		slog.Warn("upstream model service unavailable, retrying",
			"operation", operation,
			"attempt", i+2,
			"delay_ms", delay.Milliseconds(),
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			var zero T
			return zero, fmt.Errorf("%s: context cancelled during retry: %w", operation, ctx.Err())
		case <-time.After(delay):
		}

		result, err = fn()
		if err == nil {
			slog.Info("upstream retry succeeded", "operation", operation, "attempt", i+2)
			return result, nil
		}

		if !IsRetryableError(err) {
			return result, err
		}
	}

	var zero T
	slog.Error("upstream retries exhausted", "operation", operation, "attempts", len(retryConfig.delays)+1)
	return zero, ErrRateLimited
}
