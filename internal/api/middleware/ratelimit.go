package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hugh/ticketdesk/internal/api/dto"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter kept in Redis so every API replica
// shares the same budget.
type RateLimiter struct {
	client   redis.UniversalClient
	requests int           // Maximum requests per window
	window   time.Duration // Window duration
	prefix   string
	logger   *slog.Logger

	// trustProxy keys requests on X-Forwarded-For / X-Real-IP instead of
	// the socket address.
	trustProxy bool
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client redis.UniversalClient, prefix string, requests, windowSeconds int, trustProxy bool, logger *slog.Logger) *RateLimiter {
	if requests <= 0 {
		requests = 20 // Default
	}
	if windowSeconds <= 0 {
		windowSeconds = 60 // Default
	}

	return &RateLimiter{
		client:   client,
		requests: requests,
		window:   time.Duration(windowSeconds) * time.Second,
		prefix:   "ratelimit:" + prefix + ":",
		logger:   logger,

		trustProxy: trustProxy,
	}
}

// Allow counts one request against key and reports whether it fits in the
// current window, how many requests remain and when the window resets.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	redisKey := rl.prefix + key

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, fmt.Errorf("counting request: %w", err)
	}

	count := incr.Val()
	ttl := pttl.Val()

	// First hit in the window, or a key that lost its expiry.
	if count == 1 || ttl <= 0 {
		if err := rl.client.PExpire(ctx, redisKey, rl.window).Err(); err != nil {
			return false, 0, time.Time{}, fmt.Errorf("setting window expiry: %w", err)
		}
		ttl = rl.window
	}

	resetTime := time.Now().Add(ttl)
	remaining := rl.requests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return count <= int64(rl.requests), remaining, resetTime, nil
}

// Limit returns a middleware that applies rate limiting per client IP.
// Redis failures let the request through.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, rl.trustProxy)

		allowed, remaining, resetTime, err := rl.Allow(r.Context(), ip)
		if err != nil {
			rl.logger.Warn("rate limiter unavailable", "error", err, "ip", ip)
			next.ServeHTTP(w, r)
			return
		}

		// Set rate limit headers
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			w.Header().Set("Retry-After", strconv.FormatInt(int64(time.Until(resetTime).Seconds())+1, 10))
			writeError(w, http.StatusTooManyRequests, dto.CodeRateLimited, "Rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP returns the address requests are attributed to. Forwarding
// headers are only honoured when trustProxy is set.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		// Take the first IP in the list (original client)
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if i := strings.IndexByte(xff, ','); i >= 0 {
				return strings.TrimSpace(xff[:i])
			}
			return strings.TrimSpace(xff)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}
	return remoteIP(r)
}

// remoteIP is the socket peer address without its port.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
