package ozonapi

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultMaxRetries      = 5
	defaultBaseDelay       = time.Second
	defaultMaxDelay        = 30 * time.Second
	defaultExponentialBase = 2.0
)

// RetryObserver is invoked before each backoff wait with the 1-based attempt
// number that just failed, the delay about to be slept, and the error that
// caused the retry. It is fire-and-forget: panics inside it are swallowed and
// never affect the calling operation.
type RetryObserver func(attempt int, delay time.Duration, err error)

// RetryConfig controls the retry behavior applied to every logical call.
// It is immutable once passed to a client and shared read-only across calls.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt, so a
	// logical call makes at most MaxRetries+1 attempts. Default: 5.
	MaxRetries int

	// BaseDelay is the delay before the first retry. Default: 1s.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff delay. Default: 30s.
	MaxDelay time.Duration

	// ExponentialBase is the backoff growth factor. Default: 2.0.
	ExponentialBase float64

	// Jitter draws each delay uniformly from [d/2, d]. Default config: true.
	Jitter bool

	// OnRetry, if set, observes every retry decision.
	OnRetry RetryObserver
}

// DefaultRetryConfig returns the retry configuration used when none is given.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      defaultMaxRetries,
		BaseDelay:       defaultBaseDelay,
		MaxDelay:        defaultMaxDelay,
		ExponentialBase: defaultExponentialBase,
		Jitter:          true,
	}
}

// runWithRetry drives op until it succeeds, fails with a non-retryable error,
// exhausts the retry budget, or the context is cancelled. Classification of
// retryable vs fatal is entirely the classifier's business; this loop only
// decides how many attempts and how long between them.
//
// Attempts within one logical call are strictly sequential: attempt N+1 never
// starts before attempt N's outcome is known.
func runWithRetry[T any](
	ctx context.Context,
	cfg RetryConfig,
	classifier ErrorClassifier,
	logger *slog.Logger,
	op func(context.Context) (T, error),
) (T, error) {
	var zero T

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	backoff := NewBackoff(cfg)

	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("request succeeded after retry", "attempts", attempt)
			}
			return v, nil
		}

		if !classifier.IsRetryable(err) {
			logger.Debug("non-retryable error, giving up",
				"error", err,
				"attempts", attempt)
			return zero, err
		}

		if attempt > cfg.MaxRetries {
			logger.Warn("retry budget exhausted",
				"attempts", attempt,
				"error", err)
			return zero, err
		}

		delay, stop := backoff.Next()
		if stop {
			return zero, err
		}

		notifyRetry(cfg.OnRetry, attempt, delay, err)

		logger.Debug("retrying request after delay",
			"attempt", attempt,
			"delay", delay,
			"error", err)

		if werr := sleepContext(ctx, delay); werr != nil {
			return zero, werr
		}
	}
}

// notifyRetry invokes the observer, isolating the retry loop from panics
// inside caller-supplied code.
func notifyRetry(fn RetryObserver, attempt int, delay time.Duration, err error) {
	if fn == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	fn(attempt, delay, err)
}

// sleepContext waits for d without blocking other logical calls, returning
// early if the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
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
