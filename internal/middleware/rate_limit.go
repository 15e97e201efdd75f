package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Window is the time window for rate limiting
	Window time.Duration
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Key prefix for Redis keys
	KeyPrefix string
}

// RateLimiter enforces a fixed-window request counter backed by Redis.
// The counter is per client IP and per window; it bounds total inbound load
// (chiefly to protect the generation endpoint) and makes no per-client
// fairness guarantee beyond that.
type RateLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
}

// NewRateLimiter creates a new rate limiter instance
func NewRateLimiter(redisClient *redis.Client, config RateLimitConfig) *RateLimiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "rate_limit:api"
	}
	return &RateLimiter{
		redis:  redisClient,
		config: config,
	}
}

// Middleware returns a Gin middleware that enforces the limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, resetTime, err := rl.IsAllowed(c.Request.Context(), c.ClientIP())
		if err != nil {
			// Degrade open: a Redis outage must not take the API down.
			c.Header("X-RateLimit-Error", "rate limit check failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "Trop de requêtes, veuillez réessayer plus tard.",
			})
			return
		}

		c.Next()
	}
}

// IsAllowed checks if a request from the given client is allowed.
// Returns: allowed, remaining requests, reset time, error
func (rl *RateLimiter) IsAllowed(ctx context.Context, clientKey string) (bool, int, time.Time, error) {
	now := time.Now()
	windowStart := now.Truncate(rl.config.Window)
	key := fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, clientKey, windowStart.Unix())

	// Use Redis pipeline for atomic operations
	pipe := rl.redis.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rl.config.Window)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, 0, time.Time{}, err
	}

	count := int(incrCmd.Val())
	remaining := rl.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	resetTime := windowStart.Add(rl.config.Window)
	allowed := count <= rl.config.Limit

	return allowed, remaining, resetTime, nil
}
