package ratelimit

import (
	"context"
	"time"

	"familyalbum/pkg/config"

	"golang.org/x/time/rate"
)

// Limiter paces outgoing requests
type Limiter interface {
	// Allow reports whether a request may proceed now, consuming a token if so
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
}

// TokenBucket is a Limiter backed by golang.org/x/time/rate
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket allows requestsPerMinute on average with bursts of up to burst requests
func NewTokenBucket(requestsPerMinute, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	every := time.Minute / time.Duration(requestsPerMinute)
	return &TokenBucket{limiter: rate.NewLimiter(rate.Every(every), burst)}
}

func (tb *TokenBucket) Allow() bool {
	return tb.limiter.Allow()
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.limiter.Wait(ctx)
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Allow() bool                   { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }

// FromSettings builds a Limiter from configuration. Zero requests per minute disables limiting.
func FromSettings(s config.RateLimitConfig) Limiter {
	if s.RequestsPerMinute <= 0 {
		return Unlimited{}
	}
	return NewTokenBucket(s.RequestsPerMinute, s.BurstSize)
}
