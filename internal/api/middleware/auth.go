package middleware

import (
	"Chatter/internal/pkg/consts"
	"Chatter/internal/pkg/logger"
	"Chatter/internal/pkg/response"
	"Chatter/internal/service"
	"strings"

	"github.com/gin-gonic/gin"
)

// BearerToken 取 Authorization: Bearer <token>, 缺失或格式错误返回空串
func BearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

// AuthMiddleware 负责验证 JWT 并将用户身份信息注入 Context
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		user, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			return
		}

		c.Set(consts.ContextUserID, user.ID)
		c.Set(consts.ContextUser, user)
		c.Set(consts.ContextToken, token)

		ctx := logger.WithUserID(c.Request.Context(), user.ID.Hex())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
