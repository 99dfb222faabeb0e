package middleware

import (
	"Chatter/internal/pkg/response"
	"Chatter/internal/service"
	"context"
	log "log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// Limiter 固定窗口计数, 返回本次是否放行
type Limiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
}

// RateLimitMiddleware 按客户端 IP 限流, 计数存储故障时放行
func RateLimitMiddleware(limiter Limiter, prefix string, limit int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}
		ok, err := limiter.Allow(c.Request.Context(), prefix+c.ClientIP(), limit, window)
		if err != nil {
			log.WarnContext(c.Request.Context(), "rate limit check failed", "prefix", prefix, "err", err)
			c.Next()
			return
		}
		if !ok {
			response.Error(c, service.ErrRateLimited)
			return
		}
		c.Next()
	}
}
