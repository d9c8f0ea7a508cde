package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/faithconnect/bookstack-sync/internal/http/response"
	"github.com/faithconnect/bookstack-sync/internal/ratelimit"
)

// RateLimiter limits API requests per client.
type RateLimiter = ratelimit.KeyedRateLimiter

// NewRateLimiter creates a limiter allowing ratePerInterval requests per interval
// with the given burst. 20 per minute becomes 0.333 requests per second.
func NewRateLimiter(ratePerInterval int, interval time.Duration, burst int) *RateLimiter {
	rps := float64(ratePerInterval) / interval.Seconds()
	return ratelimit.New(rps, burst)
}

// RateLimitMiddleware creates a middleware that rate limits requests by IP.
// Returns 429 Too Many Requests when limit is exceeded. Health checks are never limited.
func RateLimitMiddleware(limiter *RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			key := getClientIP(r)
			if !limiter.Allow(key) {
				logger.Warn("Rate limit exceeded",
					"ip", key,
					"path", r.URL.Path,
				)
				response.TooManyRequests(w, "Too many requests. Please try again later.", logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP from the request.
// Checks X-Forwarded-For and X-Real-IP headers before falling back to RemoteAddr.
func getClientIP(r *http.Request) string {
	// First entry of X-Forwarded-For is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
