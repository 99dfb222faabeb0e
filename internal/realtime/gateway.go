package realtime

import (
	"Chatter/internal/api/config"
	"Chatter/internal/api/dto"
	"Chatter/internal/model"
	"Chatter/internal/pkg/logger"
	"Chatter/internal/pkg/response"
	"Chatter/internal/service"
	"context"
	log "log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Gateway 连接生命周期与入站事件分发
type Gateway struct {
	hub      *Hub
	registry Registry
	users    service.UserService
	chat     service.ChatService
	cfg      config.WSConfig
}

func NewGateway(registry Registry, users service.UserService, chat service.ChatService, cfg config.WSConfig) *Gateway {
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	return &Gateway{
		hub:      NewHub(),
		registry: registry,
		users:    users,
		chat:     chat,
		cfg:      cfg,
	}
}

// Serve 接管已升级的连接, 阻塞到连接关闭
func (g *Gateway) Serve(ctx context.Context, conn *websocket.Conn, user *model.User) {
	connID := uuid.NewString()
	ctx = logger.WithUserID(ctx, user.ID.Hex())
	c := newClient(ctx, connID, user, conn, g.cfg)

	g.hub.Add(c)
	g.hub.Join(c, model.ChatTypeGlobal.Room())
	g.hub.Join(c, model.ChatTypeGroup.Room())

	presence := Presence{
		UserID:   user.ID.Hex(),
		Username: user.Username,
		Avatar:   user.Avatar,
	}
	g.registry.Register(connID, presence)
	if err := g.users.SetOnline(ctx, user.ID, true); err != nil {
		log.WarnContext(ctx, "mark user online failed", "connID", connID, "err", err)
	}
	log.InfoContext(ctx, "ws connected", "connID", connID, "userID", presence.UserID, "username", user.Username)

	go c.writePump()

	g.hub.Emit(c, EventRegistered, RegisteredPayload{
		ID:       presence.UserID,
		Username: user.Username,
		Avatar:   user.Avatar,
		Email:    user.Email,
	})
	g.hub.BroadcastAll(EventUsersCount, g.registry.Count())
	g.hub.BroadcastAll(EventUserOnline, UserOnlinePayload{
		UserID:   presence.UserID,
		Username: user.Username,
		Avatar:   user.Avatar,
	})

	c.readPump(g.dispatch)
	g.disconnect(c)
}

func (g *Gateway) disconnect(c *Client) {
	g.hub.Remove(c)
	_, _ = g.registry.Unregister(c.ID)

	userID := c.UserID()
	if g.registry.UserConnections(userID) == 0 {
		if err := g.users.SetOnline(c.ctx, c.User.ID, false); err != nil {
			log.WarnContext(c.ctx, "mark user offline failed", "connID", c.ID, "err", err)
		}
		g.hub.BroadcastAll(EventUserOffline, UserOfflinePayload{UserID: userID})
	}
	g.hub.BroadcastAll(EventUsersCount, g.registry.Count())
	log.InfoContext(c.ctx, "ws disconnected", "connID", c.ID, "userID", userID)
}

func (g *Gateway) dispatch(c *Client, env *Envelope) {
	switch env.Event {
	case EventTyping:
		g.relayTyping(c, env, EventUserTyping)
	case EventStopTyping:
		g.relayTyping(c, env, EventUserStopTyping)
	case EventGetOnlineUsers:
		g.hub.Emit(c, EventOnlineUsersList, g.registry.List())
	case EventJoinRoom:
		g.joinRoom(c, env)
	case EventSendMessage:
		g.sendMessage(c, env)
	case EventMarkChatAsRead:
		g.markChatAsRead(c, env)
	default:
		log.DebugContext(c.ctx, "unknown ws event", "connID", c.ID, "event", env.Event)
	}
}

func (g *Gateway) relayTyping(c *Client, env *Envelope, out string) {
	var in TypingPayload
	if err := json.Unmarshal(env.Data, &in); err != nil || in.ChatType == "" {
		return
	}
	g.hub.Broadcast(in.ChatType, out, UserTypingPayload{
		Username: c.User.Username,
		UserID:   c.UserID(),
		ChatType: in.ChatType,
	}, c.ID)
}

// joinRoom 载荷可以是房间名字符串或 {"roomId": ...}
func (g *Gateway) joinRoom(c *Client, env *Envelope) {
	var room string
	if err := json.Unmarshal(env.Data, &room); err != nil {
		var in JoinRoomPayload
		if err = json.Unmarshal(env.Data, &in); err != nil {
			return
		}
		room = in.RoomID
	}
	if room == "" {
		return
	}
	g.hub.Join(c, room)
	log.DebugContext(c.ctx, "joined room", "connID", c.ID, "room", room)
}

func (g *Gateway) sendMessage(c *Client, env *Envelope) {
	var in dto.SendMessageDTO
	if err := json.Unmarshal(env.Data, &in); err != nil {
		g.emitError(c, service.ErrParamInvalid)
		return
	}
	msg, err := g.chat.SendMessage(c.ctx, c.User, &in)
	if err != nil {
		log.WarnContext(c.ctx, "send message failed", "connID", c.ID, "chatType", in.ChatType, "err", err)
		g.emitError(c, err)
		return
	}
	g.hub.Broadcast(msg.ChatType, EventReceiveMessage, msg, "")
}

func (g *Gateway) markChatAsRead(c *Client, env *Envelope) {
	var in MarkReadPayload
	if err := json.Unmarshal(env.Data, &in); err != nil {
		g.emitError(c, service.ErrParamInvalid)
		return
	}
	if in.UserID != "" && in.UserID != c.UserID() {
		g.emitError(c, service.UnauthorizedError)
		return
	}
	chatType, err := service.ParseChatType(in.ChatType)
	if err != nil {
		g.emitError(c, err)
		return
	}

	count, found, err := g.chat.MarkChatAsRead(c.ctx, chatType, c.User.ID)
	if err != nil {
		log.WarnContext(c.ctx, "mark chat as read failed", "connID", c.ID, "chatType", chatType, "err", err)
		g.emitError(c, err)
		return
	}
	if !found {
		return
	}
	g.hub.Broadcast(chatType.Room(), EventMessagesRead, MessagesReadPayload{
		ChatType: string(chatType),
		UserID:   c.UserID(),
		Count:    count,
	}, c.ID)
}

func (g *Gateway) emitError(c *Client, err error) {
	message, details := response.ErrorMessage(err)
	g.hub.Emit(c, EventError, ErrorPayload{Message: message, Details: details})
}
