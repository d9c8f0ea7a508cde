// Package ratelimit provides a keyed token-bucket limiter for outbound API calls.
// Each BookStack instance (keyed by base URL) gets its own independent bucket,
// so a slow destination never throttles reads from the source.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// KeyedRateLimiter manages per-key rate limiting.
type KeyedRateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// New creates a keyed rate limiter allowing rps requests per second with the given burst.
// A non-positive rps disables limiting.
func New(rps float64, burst int) *KeyedRateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &KeyedRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Allow reports whether a request for key may proceed now, without blocking.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	return krl.getLimiter(key).Allow()
}

// Wait blocks until a request for key is allowed or ctx is canceled.
func (krl *KeyedRateLimiter) Wait(ctx context.Context, key string) error {
	return krl.getLimiter(key).Wait(ctx)
}

// Keys returns the number of keys that have been seen.
func (krl *KeyedRateLimiter) Keys() int {
	krl.mu.RLock()
	defer krl.mu.RUnlock()
	return len(krl.limiters)
}

func (krl *KeyedRateLimiter) getLimiter(key string) *rate.Limiter {
	krl.mu.RLock()
	limiter, exists := krl.limiters[key]
	krl.mu.RUnlock()

	if exists {
		return limiter
	}

	krl.mu.Lock()
	defer krl.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists = krl.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(krl.limit, krl.burst)
	krl.limiters[key] = limiter
	return limiter
}
