package handler

import (
	"Chatter/internal/model"
	"Chatter/internal/pkg/consts"

	"github.com/gin-gonic/gin"
)

// currentUser 由 AuthMiddleware 注入
func currentUser(c *gin.Context) *model.User {
	if v, ok := c.Get(consts.ContextUser); ok {
		if user, ok := v.(*model.User); ok {
			return user
		}
	}
	return nil
}
