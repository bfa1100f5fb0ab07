// Package retry runs a single operation across attempts with exponential
// backoff. Which failures are worth retrying is decided by the caller's
// classifier, so the package stays independent of any error taxonomy.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Policy configures a retry loop.
type Policy struct {
	// MaxAttempts is the total number of invocations, including the first.
	MaxAttempts int

	// BaseDelay is the sleep before the second attempt; the delay doubles
	// for every further attempt (base * 2^attempt).
	BaseDelay time.Duration

	// Retryable reports whether an error is transient. A nil classifier
	// retries everything.
	Retryable func(error) bool
}

// DefaultPolicy matches the platform adapters' posting behavior.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
	}
}

// Do invokes fn until it succeeds, returns a non-retryable error, or the
// attempt budget is exhausted. The last error propagates unmodified.
func Do(ctx context.Context, policy Policy, fn func() error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := policy.BaseDelay * (1 << (attempt - 1))
			slog.Debug("retrying operation", "attempt", attempt+1, "delay", delay)

			select {
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if policy.Retryable != nil && !policy.Retryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}
