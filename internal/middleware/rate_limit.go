package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Window is the time window for rate limiting
	Window time.Duration
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// KeyPrefix namespaces the counters of one limiter
	KeyPrefix string
}

// Limiter decides whether the caller identified by key may proceed.
// It returns whether the request is allowed, how many requests remain and when
// the window resets.
type Limiter interface {
	IsAllowed(ctx context.Context, key string) (bool, int, time.Time, error)
	Config() RateLimitConfig
}

// RateLimiter is a fixed-window limiter whose counters live in Redis, so the
// limit holds across API instances.
type RateLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
}

// NewRateLimiter creates a new rate limiter instance
func NewRateLimiter(redisClient *redis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		config: config,
	}
}

func (rl *RateLimiter) Config() RateLimitConfig {
	return rl.config
}

// IsAllowed counts a request from key against the current window
func (rl *RateLimiter) IsAllowed(ctx context.Context, key string) (bool, int, time.Time, error) {
	windowStart := time.Now().Truncate(rl.config.Window)
	redisKey := fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, key, windowStart.Unix())

	// Use Redis pipeline for atomic operations
	pipe := rl.redis.Pipeline()
	incrCmd := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.Window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, err
	}

	count := int(incrCmd.Val())
	remaining := max(rl.config.Limit-count, 0)
	resetTime := windowStart.Add(rl.config.Window)

	return count <= rl.config.Limit, remaining, resetTime, nil
}

// LocalLimiter is the in-process fallback used when Redis is not configured.
// Each key gets a token bucket refilled at Limit per Window with a burst of Limit.
type LocalLimiter struct {
	config   RateLimitConfig
	mu       sync.Mutex
	limiters *gocache.Cache
}

func NewLocalLimiter(config RateLimitConfig) *LocalLimiter {
	return &LocalLimiter{
		config:   config,
		limiters: gocache.New(2*config.Window, 4*config.Window),
	}
}

func (l *LocalLimiter) Config() RateLimitConfig {
	return l.config
}

func (l *LocalLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.limiters.Get(key); ok {
		lim := v.(*rate.Limiter)
		l.limiters.SetDefault(key, lim)
		return lim
	}
	every := rate.Every(l.config.Window / time.Duration(l.config.Limit))
	lim := rate.NewLimiter(every, l.config.Limit)
	l.limiters.SetDefault(key, lim)
	return lim
}

func (l *LocalLimiter) IsAllowed(_ context.Context, key string) (bool, int, time.Time, error) {
	lim := l.limiter(key)
	now := time.Now()

	allowed := lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)
	remaining := max(int(tokens), 0)

	missing := float64(l.config.Limit) - tokens
	reset := now.Add(time.Duration(missing / float64(lim.Limit()) * float64(time.Second)))
	return allowed, remaining, reset, nil
}

// RateLimitMiddleware returns a Gin middleware that enforces the limiter per
// authenticated user, or per client IP for anonymous callers.
func RateLimitMiddleware(l Limiter) gin.HandlerFunc {
	cfg := l.Config()
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id := CurrentUserID(c); id != 0 {
			key = "user:" + strconv.FormatUint(uint64(id), 10)
		}

		allowed, remaining, resetTime, err := l.IsAllowed(c.Request.Context(), key)
		if err != nil {
			// fail open
			log.Warn("rate limit check failed", "key", key, "error", err)
			c.Header("X-RateLimit-Error", "rate limit check failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"message":     fmt.Sprintf("You have exceeded the rate limit of %d requests per %v", cfg.Limit, cfg.Window),
				"retry_after": max(int(time.Until(resetTime).Seconds()), 1),
			})
			return
		}

		c.Next()
	}
}
