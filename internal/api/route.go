package api

import (
	"Chatter/internal/api/middleware"
	"Chatter/internal/pkg/consts"
	"Chatter/internal/pkg/logger"

	"github.com/gin-gonic/gin"
)

const wsPath = "/api/ws"

func SetupRouter(group *HandlersGroup, deps RouterDeps) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})
	r.MaxMultipartMemory = consts.MaxUploadSize

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware(wsPath))
	r.Use(middleware.CORSMiddleware(deps.ClientURL))
	logger.SetupGin(r)

	auth := middleware.AuthMiddleware(deps.AuthService)

	r.GET("/health", group.HealthHandler.Health)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", group.HealthHandler.Ping)
		apiGroup.GET("/ws", group.WsHandler.Connect)

		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/register",
				middleware.RateLimitMiddleware(deps.Limiter, consts.RegisterRateLimitKey, deps.RateLimit.RegisterMax, deps.RateLimit.RegisterWindow),
				group.AuthHandler.Register)
			authGroup.POST("/login",
				middleware.RateLimitMiddleware(deps.Limiter, consts.LoginRateLimitKey, deps.RateLimit.LoginMax, deps.RateLimit.LoginWindow),
				group.AuthHandler.Login)
			authGroup.POST("/refresh", group.AuthHandler.Refresh)
			authGroup.POST("/forgot-password", group.AuthHandler.ForgotPassword)
			authGroup.POST("/reset-password", group.AuthHandler.ResetPassword)

			authedGroup := authGroup.Group("")
			authedGroup.Use(auth)
			{
				authedGroup.GET("/verify", group.AuthHandler.Verify)
				authedGroup.POST("/logout", group.AuthHandler.Logout)
				authedGroup.GET("/profile", group.AuthHandler.Profile)
			}
		}

		userGroup := apiGroup.Group("/users")
		userGroup.Use(auth)
		{
			userGroup.GET("", group.UserHandler.ListUsers)
			userGroup.GET("/search", group.UserHandler.SearchUsers)
			userGroup.GET("/profile", group.UserHandler.GetProfile)
			userGroup.PUT("/profile", group.UserHandler.UpdateProfile)
			userGroup.POST("/avatar", group.UserHandler.UploadAvatar)
			userGroup.GET("/:userId", group.UserHandler.GetUser)
		}

		chatGroup := apiGroup.Group("/chat")
		chatGroup.Use(auth)
		{
			chatGroup.GET("/conversations", group.ChatHandler.ListConversations)
			chatGroup.GET("/messages/:chatType", group.ChatHandler.GetMessages)
			chatGroup.GET("/messages/:chatType/unread", group.ChatHandler.GetUnreadCount)
			chatGroup.PUT("/messages/:messageId", group.ChatHandler.EditMessage)
			chatGroup.DELETE("/messages/:messageId", group.ChatHandler.DeleteMessage)
		}

		mediaGroup := apiGroup.Group("/media")
		{
			mediaGroup.Use(auth)
			mediaGroup.POST("/upload", group.MediaHandler.Upload)
		}
	}

	return r
}
