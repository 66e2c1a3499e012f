// Package retry runs an operation a bounded number of times with a fixed
// delay between attempts.
package retry

import (
	"context"
	"log/slog"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// Do calls fn up to attempts times, waiting delay between failures. It returns
// nil on the first success, the last error once attempts are exhausted, or
// ctx.Err() if the context ends while waiting.
func Do(ctx context.Context, attempts uint64, delay time.Duration, fn func(context.Context) error) error {
	if attempts == 0 {
		attempts = 1
	}
	if delay <= 0 {
		delay = time.Millisecond
	}

	backoff := goretry.WithMaxRetries(attempts-1, goretry.NewConstant(delay))

	var attempt uint64
	return goretry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := fn(ctx); err != nil {
			if attempt < attempts {
				slog.Warn("attempt failed, retrying", "attempt", attempt, "of", attempts, "delay", delay, "error", err)
			}
			return goretry.RetryableError(err)
		}
		return nil
	})
}

// Value is Do for operations that produce a result. On failure the zero value
// is returned with the error.
func Value[T any](ctx context.Context, attempts uint64, delay time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, attempts, delay, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
