package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/innoval-tech/puntual-api/internal/domain"
	"github.com/innoval-tech/puntual-api/internal/pkg"
)

const (
	visitorCleanupInterval = 5 * time.Minute
	visitorIdleTimeout     = 3 * time.Minute
)

// RateLimiter keeps one token bucket per client IP. Idle buckets are evicted
// by a background goroutine that runs until Stop or the context passed to
// NewRateLimiter is done.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	cancel   context.CancelFunc
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows rps requests per second per client with the given burst.
func NewRateLimiter(ctx context.Context, rps float64, burst int) *RateLimiter {
	ctx, cancel := context.WithCancel(ctx)
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(rps),
		burst:    burst,
		cancel:   cancel,
		now:      time.Now,
	}
	go rl.cleanupLoop(ctx)
	return rl
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.cancel()
}

// Allow consumes a token for key and reports whether the request may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = rl.now()
	rl.mu.Unlock()

	return v.limiter.Allow()
}

func (rl *RateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(visitorCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle()
		case <-ctx.Done():
			return
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-visitorIdleTimeout)
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
		}
	}
}

// RateLimit rejects requests over the per-client budget with 429. The client
// is identified by GetClientAddr. metrics may be nil.
func RateLimit(rl *RateLimiter, metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.Allow(GetClientAddr(c).IP) {
			c.Next()
			return
		}
		if metrics != nil {
			metrics.RecordRateLimitHit(c)
		}
		c.Header("Retry-After", "1")
		_ = c.Error(domain.ErrRateLimited)
		pkg.Fail(c, http.StatusTooManyRequests, "Too many requests", domain.ErrRateLimited)
	}
}
