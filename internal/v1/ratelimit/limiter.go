// Package ratelimit throttles the HTTP API and WebSocket upgrades per
// client IP. Limits are best effort: a store failure fails open because
// locking players out of a running game is worse than briefly not
// throttling.
package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"github.com/alex-gusto/buzzer/internal/v1/config"
	"github.com/alex-gusto/buzzer/internal/v1/logging"
	"github.com/alex-gusto/buzzer/internal/v1/metrics"
)

// RateLimiter holds one limiter per scope, sharing a single in-memory store.
type RateLimiter struct {
	api   *limiter.Limiter
	wsIP  *limiter.Limiter
	store limiter.Store
}

// NewRateLimiter parses the configured rates ("300-M" style) and builds the
// limiters.
func NewRateLimiter(cfg *config.Config) (*RateLimiter, error) {
	apiRate, err := limiter.NewRateFromFormatted(cfg.RateLimitApi)
	if err != nil {
		return nil, fmt.Errorf("invalid API rate: %w", err)
	}

	wsRate, err := limiter.NewRateFromFormatted(cfg.RateLimitWsIp)
	if err != nil {
		return nil, fmt.Errorf("invalid WS IP rate: %w", err)
	}

	store := memory.NewStore()
	return &RateLimiter{
		api:   limiter.New(store, apiRate),
		wsIP:  limiter.New(store, wsRate),
		store: store,
	}, nil
}

// APIMiddleware enforces the per-IP API limit. Every response carries the
// X-RateLimit headers; a breached limit answers 429 with the standard
// error body.
func (rl *RateLimiter) APIMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		lctx, err := rl.api.Get(ctx, c.ClientIP())
		if err != nil {
			logging.Error(ctx, "Rate limiter store failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			metrics.RateLimitExceeded.WithLabelValues("api").Inc()
			retryAfter := lctx.Reset - time.Now().Unix()
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests"})
			return
		}

		c.Next()
	}
}

// CheckWebSocket guards upgrade requests per client IP. Returns false
// after writing the 429 response, so callers just stop.
func (rl *RateLimiter) CheckWebSocket(c *gin.Context) bool {
	ctx := c.Request.Context()

	lctx, err := rl.wsIP.Get(ctx, c.ClientIP())
	if err != nil {
		logging.Error(ctx, "Rate limiter store failed", zap.Error(err))
		return true
	}

	if lctx.Reached {
		metrics.RateLimitExceeded.WithLabelValues("websocket").Inc()
		c.Header("Retry-After", strconv.FormatInt(lctx.Reset, 10))
		c.JSON(http.StatusTooManyRequests, gin.H{"message": "Too many connection attempts"})
		return false
	}
	return true
}
