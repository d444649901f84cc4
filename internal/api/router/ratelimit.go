package router

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/x402dev/paygate/internal/config"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

// clientLimiter keeps one token bucket per client IP. Idle entries are
// pruned on access so the map stays bounded by active clients.
type clientLimiter struct {
	limit rate.Limit
	burst int

	mu        sync.Mutex
	byKey     map[string]*limiterEntry
	lastPrune time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(limit rate.Limit, burst int) *clientLimiter {
	return &clientLimiter{
		limit:     limit,
		burst:     burst,
		byKey:     make(map[string]*limiterEntry),
		lastPrune: time.Now(),
	}
}

func (l *clientLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastPrune) > limiterIdleTTL {
		for k, entry := range l.byKey {
			if now.Sub(entry.lastSeen) > limiterIdleTTL {
				delete(l.byKey, k)
			}
		}
		l.lastPrune = now
	}

	entry, ok := l.byKey[key]
	if !ok {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(l.limit, l.burst),
		}
		l.byKey[key] = entry
	}
	entry.lastSeen = now

	return entry.limiter.Allow()
}

// RateLimitMiddleware limits requests per client IP with a token bucket
func RateLimitMiddleware(cfg config.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	limiter := newClientLimiter(rate.Limit(cfg.RPS), cfg.Burst)

	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP(), time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests",
			})
			return
		}

		c.Next()
	}
}
