package dto

import "time"

// MessageDTO 消息明细, REST 历史与实时推送共用
type MessageDTO struct {
	ID           string        `json:"id"`
	Text         string        `json:"text"`
	StickerURL   *string       `json:"stickerUrl"`
	SenderID     string        `json:"senderId"`
	SenderName   string        `json:"senderName"`
	SenderAvatar *string       `json:"senderAvatar"`
	ChatType     string        `json:"chatType"`
	Type         string        `json:"type"`
	AudioData    *string       `json:"audioData"`
	MediaData    *string       `json:"mediaData"`
	Duration     *float64      `json:"duration"`
	Timestamp    string        `json:"timestamp"`
	ReplyTo      *ReplyPreview `json:"replyTo"`
	Read         bool          `json:"read"`
	Edited       bool          `json:"edited,omitempty"`
	EditedAt     *time.Time    `json:"editedAt,omitempty"`
}

// ReplyPreview 被回复消息摘要
type ReplyPreview struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	SenderID string `json:"senderId,omitempty"`
}

// PaginationDTO skip/limit 分页信息
type PaginationDTO struct {
	Total   int64 `json:"total"`
	Limit   int64 `json:"limit"`
	Skip    int64 `json:"skip"`
	HasMore bool  `json:"hasMore"`
}

// MessagePageDTO 历史消息页
type MessagePageDTO struct {
	Messages   []*MessageDTO `json:"messages"`
	Pagination PaginationDTO `json:"pagination"`
}

// MessagePageQuery 历史消息分页参数
type MessagePageQuery struct {
	Limit int64 `form:"limit" validate:"omitempty,min=1"`
	Skip  int64 `form:"skip" validate:"omitempty,min=0"`
}

// UnreadCountDTO 未读数
type UnreadCountDTO struct {
	ChatType string `json:"chatType"`
	Count    int64  `json:"count"`
}

// EditMessageDTO 编辑文本消息
type EditMessageDTO struct {
	Content string `json:"content" binding:"required"`
}

// ConversationDTO 会话列表项
type ConversationDTO struct {
	ID           string              `json:"id"`
	IsGroup      bool                `json:"isGroup"`
	Participants []*UserDTO          `json:"participants"`
	LastMessage  *LastMessagePreview `json:"lastMessage"`
	UnreadCount  int64               `json:"unreadCount"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// LastMessagePreview 会话最后一条消息
type LastMessagePreview struct {
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// SendMessageDTO send_message 载荷, type 缺省时按字段推断
type SendMessageDTO struct {
	ChatType   string  `json:"chatType"`
	Text       string  `json:"text"`
	Type       string  `json:"type"`
	StickerURL string  `json:"stickerUrl"`
	AudioData  string  `json:"audioData"`
	MediaData  string  `json:"mediaData"`
	Duration   float64 `json:"duration"`
	ReplyTo    string  `json:"replyTo"`
}

// DeleteMessageResultDTO 删除结果
type DeleteMessageResultDTO struct {
	MessageID string `json:"messageId"`
}
