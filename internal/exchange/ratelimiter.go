package exchange

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket that spreads calls to the exchange API.
// One limiter belongs to exactly one Gateway; limiter state is never
// shared across batch workers.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillEach time.Duration
	lastRefill time.Time
}

// NewRateLimiter allows up to requests calls per window, refilling one
// token every window/requests.
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	if requests < 1 {
		requests = 1
	}
	return &RateLimiter{
		tokens:     requests,
		maxTokens:  requests,
		refillEach: window / time.Duration(requests),
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill()
		if r.tokens > 0 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.refillEach):
		}
	}
}

func (r *RateLimiter) refill() {
	now := time.Now()
	earned := int(now.Sub(r.lastRefill) / r.refillEach)
	if earned <= 0 {
		return
	}
	r.tokens += earned
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
	r.lastRefill = r.lastRefill.Add(time.Duration(earned) * r.refillEach)
}
