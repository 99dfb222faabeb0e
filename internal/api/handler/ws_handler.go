package handler

import (
	"Chatter/internal/api/middleware"
	"Chatter/internal/pkg/response"
	"Chatter/internal/realtime"
	"Chatter/internal/service"
	"context"
	log "log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// 浏览器无法设置请求头, 令牌可放在子协议 "access_token, <jwt>" 中
const tokenSubprotocol = "access_token"

type WsHandler struct {
	authSvc  service.AuthService
	gateway  *realtime.Gateway
	upgrader websocket.Upgrader
}

// NewWsHandler clientURL 为空时不校验 Origin
func NewWsHandler(authSvc service.AuthService, gateway *realtime.Gateway, clientURL string) *WsHandler {
	return &WsHandler{
		authSvc: authSvc,
		gateway: gateway,
		upgrader: websocket.Upgrader{
			Subprotocols: []string{tokenSubprotocol},
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return clientURL == "" || origin == "" || origin == clientURL
			},
		},
	}
}

func (s *WsHandler) Connect(c *gin.Context) {
	// 鉴权失败在升级前直接返回
	user, err := s.authSvc.Authenticate(c.Request.Context(), handshakeToken(c))
	if err != nil {
		log.WarnContext(c.Request.Context(), "WS 鉴权失败", "err", err)
		response.Error(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.ErrorContext(c.Request.Context(), "WS 协议升级失败", "err", err)
		return
	}

	s.gateway.Serve(context.WithoutCancel(c.Request.Context()), conn, user)
}

// handshakeToken 依次取 Authorization 头, 子协议, ?token= 参数
func handshakeToken(c *gin.Context) string {
	if token := middleware.BearerToken(c); token != "" {
		return token
	}
	protocols := websocket.Subprotocols(c.Request)
	for i, p := range protocols {
		if p == tokenSubprotocol && i+1 < len(protocols) {
			return strings.TrimSpace(protocols[i+1])
		}
	}
	return c.Query("token")
}
