package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/recykl/fleet-registry/internal/config"
)

// Counter tracks request counts per key within a fixed window.  The first
// increment of a window starts it; the count resets when the window
// elapses.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// NewCounter picks the counter backend: Redis when a client is available
// so instances behind a load balancer share one budget, otherwise a
// process-local counter so the gate keeps protecting the API.
func NewCounter(rdb *redis.Client) Counter {
	if rdb != nil {
		return &redisCounter{rdb: rdb}
	}
	return newMemoryCounter()
}

// NewRateLimiter returns the combined rate/throttle gate.  Within each
// window a client gets cfg.DelayAfter fast requests; requests beyond that
// are delayed by cfg.Delay as a back-pressure signal, and requests beyond
// cfg.Max are rejected with 429.  The gate keys on the client IP and runs
// before authentication so unauthenticated abuse is covered too.
func NewRateLimiter(cfg config.RateLimitConfig, counter Counter) echo.MiddlewareFunc {
	if !cfg.Enabled || counter == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key := cfg.Prefix + ":ip:" + ip

			ctx := c.Request().Context()
			count, err := counter.Incr(ctx, key, cfg.Window)
			if err != nil {
				// Counter backend trouble must not take the API down.
				c.Logger().Warnf("[ratelimit] counter error for key=%s: %v", key, err)
				return next(c)
			}

			remaining := int64(cfg.Max) - count
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Max))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(cfg.Max) {
				secs := int(math.Ceil(cfg.Window.Seconds()))
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"message":     "Too many requests from this IP, please try again later",
					"retry_after": secs,
				})
			}

			if count > int64(cfg.DelayAfter) && cfg.Delay > 0 {
				// Throttle: slow the request down but let it proceed.
				select {
				case <-time.After(cfg.Delay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return next(c)
		}
	}
}

// redisCounter increments a windowed key atomically.  The expiry is set
// only when the key is created so all requests in a window share one
// deadline.
type redisCounter struct{ rdb *redis.Client }

var incrScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	return count
`)

func (r *redisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	res, err := incrScript.Run(ctx, r.rdb, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return 0, err
	}
	n, ok := res.(int64)
	if !ok {
		return 0, nil
	}
	return n, nil
}

// memoryCounter is the process-local fallback.  Windows are tracked per
// key and pruned lazily on access.
type memoryCounter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	count   int64
	resetAt time.Time
}

func newMemoryCounter() *memoryCounter {
	return &memoryCounter{buckets: make(map[string]*bucket)}
}

func (m *memoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(window)}
		m.buckets[key] = b
	}
	b.count++
	return b.count, nil
}
