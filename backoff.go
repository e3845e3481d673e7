package ozonapi

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/sethvargo/go-retry"
)

// Delay returns the backoff delay before retrying the given 1-based attempt:
//
//	min(MaxDelay, BaseDelay * ExponentialBase^(attempt-1))
//
// With Jitter enabled the result is drawn uniformly from [d/2, d], which
// spreads concurrent retriers without exceeding the configured ceiling.
func (c RetryConfig) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	base := c.ExponentialBase
	if base < 1 {
		base = defaultExponentialBase
	}

	d := float64(c.BaseDelay) * math.Pow(base, float64(attempt-1))
	if c.MaxDelay > 0 && d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	if d > float64(math.MaxInt64) {
		d = float64(math.MaxInt64)
	}

	delay := time.Duration(d)
	if c.Jitter && delay > 0 {
		half := delay / 2
		delay = half + rand.N(delay-half+1)
	}
	return delay
}

// NewBackoff adapts the config's delay schedule to the go-retry Backoff
// interface so it composes with retry.Do and the rest of the go-retry
// combinators. Each Next call advances the attempt counter.
func NewBackoff(cfg RetryConfig) retry.Backoff {
	var attempt int
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return cfg.Delay(attempt), false
	})
}
