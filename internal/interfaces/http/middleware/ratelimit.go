package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"script-studio-api/internal/config"
	"script-studio-api/internal/interfaces/http/dto"
	"script-studio-api/pkg/logger"
)

// RateLimiter 滑动窗口限流器，拒绝时给出建议的重试等待
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

// KeyFunc 根据客户端与接口生成限流键
type KeyFunc func(clientID, endpoint string) string

// RateLimit 按客户端限流；限流器故障时放行
func RateLimit(cfg config.RateLimitConfig, limiter RateLimiter, key KeyFunc) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 30
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	return func(c *gin.Context) {
		clientID := dto.ClientID(c)
		if clientID == "" {
			clientID = "ip:" + c.ClientIP()
		}
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), key(clientID, endpoint), cfg.Limit, cfg.Window)
		if err != nil {
			logger.Warn(c.Request.Context(), "rate limiter unavailable, allowing request", "error", err.Error())
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(retrySeconds(retryAfter, cfg.Window)))
			dto.TooManyRequests(c, "rate limit exceeded")
			return
		}
		c.Next()
	}
}

// retrySeconds 向上取整到秒，未知时按整个窗口
func retrySeconds(d, window time.Duration) int {
	if d <= 0 {
		d = window
	}
	return max(int((d+time.Second-1)/time.Second), 1)
}
