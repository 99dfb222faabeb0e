package realtime

import (
	"github.com/goccy/go-json"
)

// 客户端 → 服务端
const (
	EventTyping         = "typing"
	EventStopTyping     = "stop_typing"
	EventGetOnlineUsers = "get_online_users"
	EventJoinRoom       = "join_room"
	EventSendMessage    = "send_message"
	EventMarkChatAsRead = "mark_chat_as_read"
)

// 服务端 → 客户端
const (
	EventRegistered      = "registered"
	EventUsersCount      = "users_count"
	EventUserOnline      = "user_online"
	EventUserOffline     = "user_offline"
	EventUserTyping      = "user_typing"
	EventUserStopTyping  = "user_stop_typing"
	EventOnlineUsersList = "online_users_list"
	EventReceiveMessage  = "receive_message"
	EventMessagesRead    = "messages_read"
	EventError           = "error"
)

// Envelope 通道上每一帧的结构 {"event": ..., "data": ...}
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

type RegisteredPayload struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Email    string `json:"email"`
}

type UserOnlinePayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type UserOfflinePayload struct {
	UserID string `json:"userId"`
}

type TypingPayload struct {
	ChatType string `json:"chatType"`
}

type UserTypingPayload struct {
	Username string `json:"username"`
	UserID   string `json:"userId"`
	ChatType string `json:"chatType"`
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
}

type MarkReadPayload struct {
	ChatType string `json:"chatType"`
	UserID   string `json:"userId"`
}

type MessagesReadPayload struct {
	ChatType string `json:"chatType"`
	UserID   string `json:"userId"`
	Count    int64  `json:"count"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
