package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3

// backoff is swapped out in tests.
var backoff = Backoff

// withRetry runs call up to MaxRetries times while it fails with a
// RetryableError.
func withRetry(ctx context.Context, log *slog.Logger, backend string, call func() ([]string, error)) ([]string, error) {
	var (
		out     []string
		lastErr error
	)
	for attempt := 0; attempt < MaxRetries; attempt++ {
		out, lastErr = call()
		if lastErr == nil || !IsRetryable(lastErr) || attempt == MaxRetries-1 {
			break
		}
		log.Warn("retryable translation error", "backend", backend, "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return out, lastErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
