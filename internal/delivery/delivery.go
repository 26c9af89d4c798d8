// Package delivery sends a message to a surface that may not be ready yet:
// attempts are retried with a shrinking backoff while an overall deadline
// runs. When the deadline fires no further attempts start and the in-flight
// attempt sees a cancelled context.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout means the overall deadline passed before an attempt succeeded.
	ErrTimeout = errors.New("delivery timed out")
	// ErrExhausted means every attempt failed before the deadline.
	ErrExhausted = errors.New("delivery attempts exhausted")
)

// Policy bounds a delivery.
type Policy struct {
	Retries        int           // attempts after the first
	InitialBackoff time.Duration // halved after every retry
	Timeout        time.Duration // overall deadline, 0 for none
}

// DefaultPolicy is 3 retries, 300ms initial backoff, 1.5s deadline.
func DefaultPolicy() Policy {
	return Policy{Retries: 3, InitialBackoff: 300 * time.Millisecond, Timeout: 1500 * time.Millisecond}
}

// Deliver runs attempt until it succeeds. Between failed attempts it calls
// repair (if non-nil) to make the next attempt more likely to succeed, for
// example by injecting the receiving script, then sleeps the backoff.
// Errors from repair are ignored; the next attempt reports the outcome.
func Deliver(ctx context.Context, p Policy, attempt, repair func(context.Context) error) error {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	backoff := p.InitialBackoff
	var lastErr error
	for i := 0; i <= p.Retries; i++ {
		if err := ctx.Err(); err != nil {
			return deadlineErr(err, lastErr)
		}
		err := attempt(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == p.Retries {
			break
		}
		if repair != nil {
			_ = repair(ctx)
		}
		if err := sleep(ctx, backoff); err != nil {
			return deadlineErr(err, lastErr)
		}
		backoff /= 2
	}
	if err := ctx.Err(); err != nil {
		return deadlineErr(err, lastErr)
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, p.Retries+1, lastErr)
}

func deadlineErr(ctxErr, lastErr error) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		if lastErr != nil {
			return fmt.Errorf("%w: %w", ErrTimeout, lastErr)
		}
		return ErrTimeout
	}
	return ctxErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
