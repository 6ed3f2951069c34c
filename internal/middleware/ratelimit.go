package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterTTL = 5 * time.Minute

type cachedLimiter struct {
	limiter   *rate.Limiter
	expiresAt time.Time
}

// ipLimiters holds one token bucket per client IP. Expired buckets are swept
// at most once per ttl, from the request path.
type ipLimiters struct {
	limiters sync.Map // client ip -> *cachedLimiter
	rps      float64
	burst    int
	ttl      time.Duration
	now      func() time.Time

	mu        sync.Mutex
	lastSweep time.Time
}

func newIPLimiters(rps float64, burst int, ttl time.Duration) *ipLimiters {
	return &ipLimiters{rps: rps, burst: burst, ttl: ttl, now: time.Now, lastSweep: time.Now()}
}

// RateLimit throttles each client IP to rps requests per second with the given
// burst. rps <= 0 disables the limiter.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}

	limiters := newIPLimiters(rps, burst, limiterTTL)
	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}

func (l *ipLimiters) get(key string) *rate.Limiter {
	now := l.now()
	l.maybeSweep(now)

	if v, ok := l.limiters.Load(key); ok {
		cached := v.(*cachedLimiter)
		if now.Before(cached.expiresAt) {
			return cached.limiter
		}
		// expired, start a fresh window
	}

	limiter := rate.NewLimiter(rate.Limit(l.rps), l.burst)
	l.limiters.Store(key, &cachedLimiter{
		limiter:   limiter,
		expiresAt: now.Add(l.ttl),
	})
	return limiter
}

func (l *ipLimiters) maybeSweep(now time.Time) {
	l.mu.Lock()
	if now.Sub(l.lastSweep) < l.ttl {
		l.mu.Unlock()
		return
	}
	l.lastSweep = now
	l.mu.Unlock()

	l.limiters.Range(func(key, v any) bool {
		if !now.Before(v.(*cachedLimiter).expiresAt) {
			l.limiters.Delete(key)
		}
		return true
	})
}
