// ABOUTME: Retry utilities with exponential backoff and jitter
// ABOUTME: Used to wait for an embedding endpoint to come up before the first call
package util

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// MaxBackoff caps a single delay before jitter
const MaxBackoff = 30 * time.Second

// CalculateBackoff returns base * 2^attempt capped at MaxBackoff, with
// ±25% jitter. Attempt 0 and a zero base return 0.
func CalculateBackoff(baseDelay time.Duration, attempt int) time.Duration {
	if attempt <= 0 || baseDelay <= 0 {
		return 0
	}
	// Keep the shift in range
	if attempt > 30 {
		attempt = 30
	}
	backoff := baseDelay * time.Duration(1<<uint(attempt))
	if backoff > MaxBackoff || backoff <= 0 {
		backoff = MaxBackoff
	}
	if half := int64(backoff) / 2; half > 0 {
		backoff += time.Duration(rand.Int64N(half)) - backoff/4
	}
	return backoff
}

// RetryNotify is called before each retry with the delay about to be slept
type RetryNotify func(attempt int, delay time.Duration, err error)

// Retry calls fn up to retries+1 times, sleeping CalculateBackoff between
// attempts. It stops early when ctx is done and returns the last error
// wrapped with the attempt count.
func Retry(ctx context.Context, retries int, baseDelay time.Duration, notify RetryNotify, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			delay := CalculateBackoff(baseDelay, attempt)
			if notify != nil {
				notify(attempt, delay, lastErr)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("after %d attempts: %w", retries+1, lastErr)
}
