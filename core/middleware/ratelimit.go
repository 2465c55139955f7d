package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"meetbook/core/controller"
	"meetbook/core/errors"
)

// RateLimiter keeps per-key token buckets in memory. The table is ephemeral
// and resets on process restart; it is not a hard quota.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucketEntry
	perMin   int
	lastSeen time.Duration
}

type bucketEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewRateLimiter allows perMinute requests per key with a burst of the same
// size. Idle buckets are evicted after an hour.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		buckets:  make(map[string]*bucketEntry),
		perMin:   perMinute,
		lastSeen: time.Hour,
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.buckets[key]
	if !ok {
		entry = &bucketEntry{
			limiter: rate.NewLimiter(rate.Limit(float64(rl.perMin)/60.0), rl.perMin),
		}
		rl.buckets[key] = entry
		if len(rl.buckets)%1024 == 0 {
			rl.evictIdle()
		}
	}
	entry.seen = time.Now()
	return entry.limiter.Allow()
}

func (rl *RateLimiter) evictIdle() {
	cutoff := time.Now().Add(-rl.lastSeen)
	for k, e := range rl.buckets {
		if e.seen.Before(cutoff) {
			delete(rl.buckets, k)
		}
	}
}

// Middleware keys the limit by client IP plus request path and answers 429
// with Retry-After when exceeded.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP() + c.Path()
			if !rl.Allow(key) {
				c.Response().Header().Set("Retry-After", strconv.Itoa(60/maxInt(rl.perMin, 1)+1))
				return c.JSON(http.StatusTooManyRequests,
					controller.NewErrorBody(errors.ErrRateLimited, "Too many requests"))
			}
			return next(c)
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
