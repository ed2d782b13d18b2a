package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// unlimited is the rate used when pacing is disabled.
const unlimited = 1_000_000_000

// RateLimiter paces calls to the remote item service with a token bucket.
//
// The vendor API throttles aggressive clients, and a recursive put or get
// issues several service calls per file (authorization, create, refetch).
// Every call takes one token; the burst lets short interactive commands
// (ls, cd) run without delay while long transfers settle on the sustained
// rate.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter.
//
// Parameters:
//   - requestsPerSecond: sustained rate of service calls
//   - burst: calls that can be issued back to back when the bucket is full
//
// A zero requestsPerSecond disables pacing. A zero burst with a non-zero
// rate is raised to 1, otherwise no call could ever be admitted.
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		requestsPerSecond = unlimited
		burst = requestsPerSecond
	}
	if burst == 0 {
		burst = 1
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Wait blocks until a token is available or ctx is done.
//
// Returns the context error if ctx ends first; no token is consumed in
// that case.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Tokens returns the number of tokens currently in the bucket. The value
// is stale immediately; it is meant for logs.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
