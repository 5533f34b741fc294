// Package retry implements a bounded-retry wrapper for fallible calls.
// It knows nothing about the operations it wraps; callers pass an explicit
// policy instead of relying on defaults baked into the call site.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts (not re-attempts). Zero or
	// negative means one attempt.
	MaxAttempts int
	// Delay is the fixed pause between attempts.
	Delay time.Duration
	// OnExhausted, when set, runs once after the final failed attempt. It is
	// used to deliver a user-facing failure message.
	OnExhausted func()
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do runs op until it succeeds or the policy is exhausted, sleeping
// p.Delay between attempts. It returns the first successful result, or the
// last error after running OnExhausted (when set). ctx cancellation stops
// retrying early between attempts.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= p.attempts(); attempt++ {
		v, err := op()
		if err == nil {
			return v, nil
		}
		lastErr = err
		slog.Info("attempt unsuccessful", slog.Int("attempt", attempt), slog.Any("err", err))
		if attempt == p.attempts() {
			break
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(p.Delay):
		}
	}
	if p.OnExhausted != nil {
		p.OnExhausted()
	}
	return zero, fmt.Errorf("all %d attempts failed: %w", p.attempts(), lastErr)
}

// Void wraps Do for operations without a result value.
func Void(ctx context.Context, p Policy, op func() error) error {
	_, err := Do(ctx, p, func() (struct{}, error) { return struct{}{}, op() })
	return err
}
