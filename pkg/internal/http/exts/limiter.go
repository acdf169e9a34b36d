package exts

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles callers by key, usually the client IP.
// Idle keys are forgotten after the ttl.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration

	// nextSweep marks when idle keys are pruned next
	nextSweep time.Time

	NowFunc func() time.Time
}

// NewRateLimiter allows requests per window for each key, plus burst.
func NewRateLimiter(requests int, window time.Duration, burst int) *RateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Second
	}
	if burst <= 0 {
		burst = 1
	}

	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    burst,
		ttl:      max(window, 5*time.Minute),
		NowFunc:  time.Now,
	}
}

func (v *RateLimiter) Allow(key string) bool {
	if len(key) == 0 {
		key = "unknown"
	}
	now := v.NowFunc()

	v.mu.Lock()
	item, ok := v.visitors[key]
	if !ok {
		item = &visitor{limiter: rate.NewLimiter(v.limit, v.burst)}
		v.visitors[key] = item
	}
	item.lastSeen = now
	if !now.Before(v.nextSweep) {
		v.prune(now)
		v.nextSweep = now.Add(v.ttl)
	}
	v.mu.Unlock()

	return item.limiter.AllowN(now, 1)
}

func (v *RateLimiter) prune(now time.Time) {
	for k, other := range v.visitors {
		if now.Sub(other.lastSeen) > v.ttl {
			delete(v.visitors, k)
		}
	}
}

func (v *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !v.Allow(c.IP()) {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}
