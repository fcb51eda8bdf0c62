package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// KeyedLimiter hands out one token bucket per client key.
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rps      rate.Limit
	burst    int
	ttl      time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewKeyedLimiter(perSecond, burst int) *KeyedLimiter {
	return &KeyedLimiter{
		limiters: make(map[string]*limiterEntry),
		rps:      rate.Limit(perSecond),
		burst:    burst,
		ttl:      10 * time.Minute,
	}
}

func (l *KeyedLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[key] = e
		l.evict(now)
	}
	e.lastSeen = now
	return e.limiter.Allow()
}

// evict drops buckets idle for longer than ttl. Called with mu held.
func (l *KeyedLimiter) evict(now time.Time) {
	for k, e := range l.limiters {
		if now.Sub(e.lastSeen) > l.ttl {
			delete(l.limiters, k)
		}
	}
}

// RateLimit rejects requests over the client's budget with 429.
func RateLimit(l *KeyedLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.Allow(c.IP()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many pointer events",
			})
		}
		return c.Next()
	}
}
