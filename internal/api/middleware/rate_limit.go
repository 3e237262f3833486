package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"vinz/internal/config"
)

// RateLimiter hands out one token bucket per client IP. Buckets live in
// a bounded LRU so idle clients age out instead of accumulating.
type RateLimiter struct {
	clients *expirable.LRU[string, *rate.Limiter]
	limit   rate.Limit
	burst   int
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	size := cfg.CacheSize
	if size <= 0 {
		size = 5000
	}

	return &RateLimiter{
		clients: expirable.NewLRU[string, *rate.Limiter](size, nil, cfg.CacheTTL),
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
	}
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	if limiter, ok := rl.clients.Get(ip); ok {
		return limiter
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.clients.Add(ip, limiter)
	return limiter
}

func RateLimitMiddleware(cfg config.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	rl := NewRateLimiter(cfg)

	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP()).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
