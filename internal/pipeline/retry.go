package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/doclayout/internal/docmodel"
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *docmodel.RetryableError
	return errors.As(err, &retryErr)
}

// MaxBackoff caps every wait, jitter included.
const MaxBackoff = 30 * time.Second

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(min(max(attempt, 0), 5))) * time.Second
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return min(base+jitter, MaxBackoff)
}

const MaxRetries = 3

// backoff is swapped in tests.
var backoff = Backoff

// withRetry calls fn up to MaxRetries times while it fails with a
// retryable error.
func withRetry[T any](ctx context.Context, log *slog.Logger, fn func() (T, error)) (T, error) {
	var out T
	var lastErr error
	for attempt := range MaxRetries {
		out, lastErr = fn()
		if lastErr == nil || !IsRetryable(lastErr) || attempt == MaxRetries-1 {
			break
		}
		log.Warn("retryable provider error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
	return out, lastErr
}
