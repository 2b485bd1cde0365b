package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
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

// RateLimiter counts requests per user in fixed windows kept in redis. Without
// a redis client it falls back to an in-process token bucket per user.
type RateLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
	now    func() time.Time

	mu    sync.Mutex
	local map[string]*rate.Limiter
}

// NewRateLimiter creates a new rate limiter instance. redisClient may be nil.
func NewRateLimiter(redisClient *redis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		config: config,
		now:    time.Now,
		local:  make(map[string]*rate.Limiter),
	}
}

// NewRecipeCreationRateLimiter limits recipe creation to limit per hour.
func NewRecipeCreationRateLimiter(redisClient *redis.Client, limit int) *RateLimiter {
	return NewRateLimiter(redisClient, RateLimitConfig{
		Window:    time.Hour,
		Limit:     limit,
		KeyPrefix: "foodgram:rate_limit:recipe_creation",
	})
}

// RateLimitMiddleware returns a Gin middleware that enforces rate limiting.
// It must run after AuthMiddleware.
func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := Actor(c)
		if !actor.Authenticated() {
			abort(c, service.ErrUnauthenticated)
			return
		}

		allowed, remaining, resetTime, release, err := rl.take(c.Request.Context(), strconv.FormatUint(uint64(actor.UserID), 10))
		if err != nil {
			// A broken limiter must not take recipe creation down with it.
			logrus.WithError(err).Warn("Rate limit check failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			retryAfter := int(resetTime.Sub(rl.now()).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, types.ErrorResponse{
				Error: fmt.Sprintf("rate limit exceeded: %d requests per %v", rl.config.Limit, rl.config.Window),
			})
			return
		}

		c.Next()

		// Only requests that went through count. Handler errors are still
		// pending in c.Errors here; ErrorHandler writes the status later.
		if len(c.Errors) > 0 || c.Writer.Status() >= http.StatusBadRequest {
			if err := release(c.Request.Context()); err != nil {
				logrus.WithError(err).Warn("Rate limit release failed")
			}
		}
	}
}

// IsAllowed counts a request for key.
// Returns: allowed, remaining requests, reset time, error
func (rl *RateLimiter) IsAllowed(ctx context.Context, key string) (bool, int, time.Time, error) {
	allowed, remaining, reset, _, err := rl.take(ctx, key)
	return allowed, remaining, reset, err
}

// take counts a request for key like IsAllowed and also returns a func that
// gives an allowed request back.
func (rl *RateLimiter) take(ctx context.Context, key string) (bool, int, time.Time, func(context.Context) error, error) {
	if rl.redis == nil {
		allowed, remaining, reset, release := rl.allowLocal(key)
		return allowed, remaining, reset, release, nil
	}

	windowStart := rl.now().Truncate(rl.config.Window)
	redisKey := fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, key, windowStart.Unix())

	// Use Redis pipeline for atomic operations
	pipe := rl.redis.Pipeline()
	incrCmd := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, nil, err
	}

	count := int(incrCmd.Val())
	remaining := rl.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	release := func(ctx context.Context) error {
		return rl.redis.Decr(ctx, redisKey).Err()
	}
	return count <= rl.config.Limit, remaining, windowStart.Add(rl.config.Window), release, nil
}

func (rl *RateLimiter) allowLocal(key string) (bool, int, time.Time, func(context.Context) error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.local[key]
	if !ok {
		every := rl.config.Window / time.Duration(rl.config.Limit)
		limiter = rate.NewLimiter(rate.Every(every), rl.config.Limit)
		rl.local[key] = limiter
	}

	now := rl.now()
	reservation := limiter.ReserveN(now, 1)
	allowed := reservation.OK() && reservation.DelayFrom(now) == 0
	if !allowed {
		reservation.CancelAt(now)
	}
	tokens := limiter.TokensAt(now)
	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}

	// Time until one more request fits.
	reset := now
	if tokens < 1 {
		reset = now.Add(time.Duration((1 - tokens) * float64(rl.config.Window) / float64(rl.config.Limit)))
	}

	// Cancelling at the reservation time hands the token back.
	release := func(context.Context) error {
		reservation.CancelAt(now)
		return nil
	}
	return allowed, remaining, reset, release
}
