// Package ratelimit provides an advisory pacing limiter for outbound
// fetches. Pacing keeps the collector from hammering rate-limited
// search backends; it is not a hard token-bucket guarantee shared
// across processes.
package ratelimit

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces operations to a target rate with optional random
// jitter. It is safe for concurrent use.
type Limiter struct {
	limiter  *rate.Limiter
	interval time.Duration
	jitter   float64
}

// New creates a limiter allowing rps operations per second. jitter
// (0.0 to 1.0) adds up to jitter*interval of extra random sleep per
// wait, which avoids lockstep request timing against scraped engines.
// If rps <= 0 the limiter never blocks.
func New(rps float64, jitter float64) *Limiter {
	if rps <= 0 {
		return &Limiter{}
	}
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}

	return &Limiter{
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		interval: time.Duration(float64(time.Second) / rps),
		jitter:   jitter,
	}
}

// Wait blocks until the next operation may proceed or the context is
// canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.limiter == nil {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}

	if l.jitter > 0 {
		extra := time.Duration(rand.Float64() * l.jitter * float64(l.interval))
		if extra > 0 {
			select {
			case <-time.After(extra):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}
