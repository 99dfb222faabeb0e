package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatType 逻辑房间类型
type ChatType string

const (
	ChatTypeGlobal  ChatType = "global"
	ChatTypeGroup   ChatType = "group"
	ChatTypePrivate ChatType = "private"
)

func (t ChatType) Valid() bool {
	switch t {
	case ChatTypeGlobal, ChatTypeGroup, ChatTypePrivate:
		return true
	}
	return false
}

// IsGroup 会话只按 group 标记区分: group 一个, 其余类型共用非 group 会话
func (t ChatType) IsGroup() bool {
	return t == ChatTypeGroup
}

// Room 广播房间名与 chat type 同名
func (t ChatType) Room() string {
	return string(t)
}

// Conversation conversations 集合文档, is_group 上有唯一索引
type Conversation struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	IsGroup      bool                 `bson:"is_group" json:"isGroup"`
	Participants []primitive.ObjectID `bson:"participants" json:"participants"`
	CreatedAt    time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updated_at" json:"updatedAt"`
}

func (c *Conversation) HasParticipant(userID primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
