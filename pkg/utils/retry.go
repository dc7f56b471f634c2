package utils

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidMaxAttempts is returned by RetryWithBackoff when maxAttempts is not positive.
var ErrInvalidMaxAttempts = errors.New("maxAttempts must be positive")

// RetryWithBackoff runs op until it succeeds, maxAttempts is reached, or ctx is done.
// The delay starts at baseDelay and doubles after every failed attempt.
// Errors for which retryable returns false stop the loop immediately; a nil
// retryable retries every error. The last error is returned.
func RetryWithBackoff(ctx context.Context, op func() error, maxAttempts int, baseDelay time.Duration, retryable func(error) bool) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return lastErr
}
