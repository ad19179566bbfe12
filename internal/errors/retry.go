package errors

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy configures bounded exponential-backoff retries.
// The zero value is invalid; use DefaultRetryPolicy or construct explicitly
// and call Validate.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Must be >= 1.
	MaxAttempts int

	// InitialDelay is the delay after the first failure.
	InitialDelay time.Duration

	// Multiplier is the factor by which the delay grows after each failure.
	// Must be >= 1.
	Multiplier float64

	// MaxDelay caps the backoff delay. Must be >= InitialDelay.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the policy used for backend calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     8 * time.Second,
	}
}

// Validate rejects policies that would never attempt or that shrink delays.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return New(ErrCodeInvalidPolicy, fmt.Sprintf("max attempts must be >= 1, got %d", p.MaxAttempts), nil)
	}
	if p.InitialDelay < 0 {
		return New(ErrCodeInvalidPolicy, "initial delay must be >= 0", nil)
	}
	if p.Multiplier < 1 {
		return New(ErrCodeInvalidPolicy, fmt.Sprintf("multiplier must be >= 1, got %g", p.Multiplier), nil)
	}
	if p.MaxDelay < p.InitialDelay {
		return New(ErrCodeInvalidPolicy, "max delay must be >= initial delay", nil)
	}
	return nil
}

// Delay returns the backoff delay applied after failure n (0-based).
// It grows geometrically from InitialDelay and never exceeds MaxDelay.
func (p RetryPolicy) Delay(failure int) time.Duration {
	d := float64(p.InitialDelay)
	for i := 0; i < failure; i++ {
		d *= p.Multiplier
		if d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// sleep waits for the given delay or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Do executes fn with bounded exponential backoff.
// The first attempt runs immediately. On exhaustion the last observed
// error is returned wrapped in a RetryExhausted IndexError.
func Do(ctx context.Context, p RetryPolicy, fn func() error) error {
	if err := p.Validate(); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}

		// No sleep after the final attempt.
		if attempt == p.MaxAttempts-1 {
			break
		}
		if err := sleep(ctx, p.Delay(attempt)); err != nil {
			return err
		}
	}

	e := New(ErrCodeRetryExhausted,
		fmt.Sprintf("failed after %d attempts: %v", p.MaxAttempts, lastErr), lastErr)
	return e.WithDetail("attempts", fmt.Sprintf("%d", p.MaxAttempts))
}

// DoWithResult executes a value-producing fn with the same retry behavior
// as Do.
func DoWithResult[T any](ctx context.Context, p RetryPolicy, fn func() (T, error)) (T, error) {
	var zero T
	if err := p.Validate(); err != nil {
		return zero, err
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == p.MaxAttempts-1 {
			break
		}
		if err := sleep(ctx, p.Delay(attempt)); err != nil {
			return zero, err
		}
	}

	e := New(ErrCodeRetryExhausted,
		fmt.Sprintf("failed after %d attempts: %v", p.MaxAttempts, lastErr), lastErr)
	return zero, e.WithDetail("attempts", fmt.Sprintf("%d", p.MaxAttempts))
}

// DoOptional executes fn with retry and returns nil instead of an error
// when attempts are exhausted. A non-nil error is returned only when the
// context is cancelled during the loop.
func DoOptional[T any](ctx context.Context, p RetryPolicy, fn func() (T, error)) (*T, error) {
	result, err := DoWithResult(ctx, p, fn)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}
	return &result, nil
}

// DoClassified executes fn with retry, consulting IsRetryable on each
// failure. Errors classified as non-retryable are returned immediately
// without consuming further attempts or sleeping.
func DoClassified(ctx context.Context, p RetryPolicy, fn func() error) error {
	if err := p.Validate(); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}

		if !IsRetryable(lastErr) {
			return lastErr
		}

		if attempt == p.MaxAttempts-1 {
			break
		}
		if err := sleep(ctx, p.Delay(attempt)); err != nil {
			return err
		}
	}

	e := New(ErrCodeRetryExhausted,
		fmt.Sprintf("failed after %d attempts: %v", p.MaxAttempts, lastErr), lastErr)
	return e.WithDetail("attempts", fmt.Sprintf("%d", p.MaxAttempts))
}
