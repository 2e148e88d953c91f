// Package ratelimit wraps a token-bucket rate limiter behind a small
// interface so REST clients can pace requests to exchange limits. The
// implementation sits on top of Uber's rate limiter.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/ratelimit"
)

// Rate expresses "Limit operations per Interval".
type Rate struct {
	Limit    int
	Interval time.Duration
}

// PerSecond converts the rate to operations per second.
func (r Rate) PerSecond() int {
	if r.Interval <= 0 {
		return 0
	}
	rps := float64(r.Limit) / r.Interval.Seconds()
	if rps < 1 {
		return 1
	}
	return int(rps)
}

// RateLimiter paces operations according to a configured Rate.
type RateLimiter interface {
	// Wait blocks until an operation is permitted or ctx is cancelled.
	Wait(ctx context.Context) error

	// SetLimit replaces the rate configuration at runtime.
	SetLimit(rate Rate) error
}

type uberLimiter struct {
	mu      sync.Mutex
	limiter ratelimit.Limiter
	rate    Rate
}

// NewTokenBucketLimiter creates a limiter allowing rate.Limit operations per
// rate.Interval, smoothed by a token bucket.
func NewTokenBucketLimiter(rate Rate) RateLimiter {
	return &uberLimiter{
		limiter: ratelimit.New(rate.PerSecond()),
		rate:    rate,
	}
}

func (l *uberLimiter) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limit wait cancelled: %w", ctx.Err())
	default:
	}
	l.mu.Lock()
	lim := l.limiter
	l.mu.Unlock()
	lim.Take()
	return nil
}

func (l *uberLimiter) SetLimit(rate Rate) error {
	if rate.Limit <= 0 || rate.Interval <= 0 {
		return fmt.Errorf("invalid rate limit: %+v", rate)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiter = ratelimit.New(rate.PerSecond())
	l.rate = rate
	return nil
}
