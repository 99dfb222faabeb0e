package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageType 消息内容类型
type MessageType string

const (
	MessageTypeText    MessageType = "text"
	MessageTypeAudio   MessageType = "audio"
	MessageTypeSticker MessageType = "sticker"
	MessageTypeImage   MessageType = "image"
	MessageTypeVideo   MessageType = "video"
	MessageTypeFile    MessageType = "file"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeAudio, MessageTypeSticker, MessageTypeImage, MessageTypeVideo, MessageTypeFile:
		return true
	}
	return false
}

// Message messages 集合文档, 归属于一个 Conversation
type Message struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	ConversationID primitive.ObjectID   `bson:"conversation_id" json:"conversationId"`
	Sender         *primitive.ObjectID  `bson:"sender" json:"sender"` // 历史脏数据可能为空
	Type           MessageType          `bson:"type" json:"type"`
	ChatType       ChatType             `bson:"chat_type" json:"chatType"`
	Content        string               `bson:"content" json:"content"`
	AudioURL       *string              `bson:"audio_url,omitempty" json:"audioUrl"`
	StickerURL     *string              `bson:"sticker_url,omitempty" json:"stickerUrl"`
	MediaData      *string              `bson:"media_data,omitempty" json:"mediaData"`
	Duration       float64              `bson:"duration,omitempty" json:"duration"`
	ReplyTo        *primitive.ObjectID  `bson:"reply_to,omitempty" json:"replyTo"`
	ReadBy         []primitive.ObjectID `bson:"read_by" json:"readBy"`
	Edited         bool                 `bson:"edited" json:"edited"`
	EditedAt       *time.Time           `bson:"edited_at,omitempty" json:"editedAt"`
	CreatedAt      time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time            `bson:"updated_at" json:"updatedAt"`
}

func (m *Message) IsSentBy(userID primitive.ObjectID) bool {
	return m.Sender != nil && *m.Sender == userID
}

func (m *Message) IsReadBy(userID primitive.ObjectID) bool {
	for _, r := range m.ReadBy {
		if r == userID {
			return true
		}
	}
	return false
}
