package api

import (
	"Chatter/internal/api/config"
	"Chatter/internal/api/handler"
	"Chatter/internal/api/middleware"
	"Chatter/internal/service"
)

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	AuthHandler   *handler.AuthHandler
	UserHandler   *handler.UserHandler
	ChatHandler   *handler.ChatHandler
	MediaHandler  *handler.MediaHandler
	WsHandler     *handler.WsHandler
	HealthHandler *handler.HealthHandler
}

// RouterDeps 中间件依赖
type RouterDeps struct {
	AuthService service.AuthService
	Limiter     middleware.Limiter
	RateLimit   config.RateLimitConfig
	ClientURL   string
}
