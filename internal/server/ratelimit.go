package server

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"flatup/internal/api"
	"flatup/internal/auth"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per key (client IP or account).
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	idle    time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows rps requests per second per key with the given burst.
// Buckets idle for longer than idle are dropped by Sweep.
func NewRateLimiter(rps float64, burst int, idle time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(rps),
		burst:   burst,
		idle:    idle,
	}
}

func (rl *RateLimiter) bucketFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// Wait reports how long key must wait before its next request is allowed.
// Zero means the request is allowed and a token was taken.
func (rl *RateLimiter) Wait(key string) time.Duration {
	now := time.Now()
	r := rl.bucketFor(key, now).ReserveN(now, 1)
	if !r.OK() {
		return rl.idle
	}
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
	}
	return delay
}

func (rl *RateLimiter) Allow(key string) bool {
	return rl.Wait(key) == 0
}

// Sweep drops buckets not used since now minus the idle period.
func (rl *RateLimiter) Sweep(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	dropped := 0
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.idle {
			delete(rl.buckets, key)
			dropped++
		}
	}
	return dropped
}

func (rl *RateLimiter) sweepEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for now := range ticker.C {
		rl.Sweep(now)
	}
}

type keyFunc func(c *gin.Context) string

func byClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// byAccount keys authenticated requests by user id so one account cannot
// spread checkout attempts across addresses.
func byAccount(c *gin.Context) string {
	if id, ok := auth.GetUserID(c); ok {
		return "user:" + strconv.Itoa(id)
	}
	return "ip:" + c.ClientIP()
}

// RateLimitMiddleware limits requests per client IP.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	return newRateLimit(rps, burst, byClientIP)
}

// AccountRateLimitMiddleware limits requests per authenticated account. It
// must run after the auth middleware.
func AccountRateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	return newRateLimit(rps, burst, byAccount)
}

func newRateLimit(rps float64, burst int, key keyFunc) gin.HandlerFunc {
	limiter := NewRateLimiter(rps, burst, 3*time.Minute)
	go limiter.sweepEvery(time.Minute)
	return rateLimit(limiter, key)
}

func rateLimit(limiter *RateLimiter, key keyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if wait := limiter.Wait(key(c)); wait > 0 {
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, api.ErrorResponse{Error: "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func retryAfterSeconds(d time.Duration) int {
	return int(math.Max(1, math.Ceil(d.Seconds())))
}
