// Package retry runs an operation a bounded number of times with a fixed delay between attempts.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Default policies
const (
	DefaultFileAttempts   = 3
	DefaultReportAttempts = 5
	DefaultDelay          = 2 * time.Second
)

// Policy configures WithRetries. Every retry sleeps the same Delay; there is no exponential growth.
type Policy struct {
	Name        string
	MaxAttempts int
	Delay       time.Duration
	Logger      *slog.Logger
}

// RetryExhaustedError wraps the last error after all attempts failed.
type RetryExhaustedError struct {
	Operation string
	Attempts  int
	Cause     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted: %s failed after %d attempts: %v", e.Operation, e.Attempts, e.Cause)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Cause
}

// WithRetries invokes op until it succeeds or p.MaxAttempts attempts have failed.
// Each failure is logged with its attempt number. Context cancellation stops retrying
// immediately and returns the context error.
func WithRetries[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("operation succeeded after retry",
					slog.String("operation", p.Name),
					slog.Int("attempt", attempt))
			}
			return result, nil
		}
		lastErr = err

		logger.Warn("operation attempt failed",
			slog.String("operation", p.Name),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.String("error", err.Error()))

		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(p.Delay):
		}
	}

	return zero, &RetryExhaustedError{Operation: p.Name, Attempts: attempts, Cause: lastErr}
}
