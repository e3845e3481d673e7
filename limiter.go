package ozonapi

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// limiter gates outbound requests. The semaphore bounds in-flight concurrency
// against the remote service; the optional token bucket additionally throttles
// request rate. Waiters are admitted roughly FIFO and never starved.
type limiter struct {
	sem *semaphore.Weighted
	rps *rate.Limiter
}

func newLimiter(maxConcurrent int64, rps float64, burst int) *limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentRequests
	}
	l := &limiter{sem: semaphore.NewWeighted(maxConcurrent)}
	if rps > 0 {
		if burst <= 0 {
			burst = 1
		}
		l.rps = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return l
}

// acquire blocks until a permit is available or ctx is done. On success the
// caller must release exactly once, on every exit path.
func (l *limiter) acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	if l.rps != nil {
		if err := l.rps.Wait(ctx); err != nil {
			l.sem.Release(1)
			return err
		}
	}
	return nil
}

func (l *limiter) release() {
	l.sem.Release(1)
}
