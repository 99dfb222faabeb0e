package repository

import (
	"Chatter/internal/model"
	"Chatter/internal/pkg/consts"
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepo interface {
	CreateMessage(ctx context.Context, msg *model.Message) error
	GetMessageById(ctx context.Context, id primitive.ObjectID) (*model.Message, error)
	GetMessageByIds(ctx context.Context, ids []primitive.ObjectID) ([]*model.Message, error)
	// ListPage 从最新往前跳过 skip 条取 limit 条, 返回结果按时间正序
	ListPage(ctx context.Context, convID primitive.ObjectID, skip, limit int64) ([]*model.Message, error)
	CountByConversation(ctx context.Context, convID primitive.ObjectID) (int64, error)
	CountUnread(ctx context.Context, convID, userID primitive.ObjectID) (int64, error)
	MarkAllRead(ctx context.Context, convID, userID primitive.ObjectID) (int64, error)
	GetLatest(ctx context.Context, convID primitive.ObjectID) (*model.Message, error)
	UpdateContent(ctx context.Context, id primitive.ObjectID, content string, at time.Time) error
	DeleteMessage(ctx context.Context, id primitive.ObjectID) error
	DeleteOrphaned(ctx context.Context) (int64, error)
}

type messageRepoImpl struct {
	col *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) MessageRepo {
	return &messageRepoImpl{col: db.Collection(consts.MessageCollection)}
}

var newestFirst = bson.D{
	{Key: "created_at", Value: -1},
	{Key: "_id", Value: -1},
}

func (s *messageRepoImpl) CreateMessage(ctx context.Context, msg *model.Message) error {
	now := time.Now()
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = msg.CreatedAt
	if msg.ReadBy == nil {
		msg.ReadBy = []primitive.ObjectID{}
	}
	_, err := s.col.InsertOne(ctx, msg)
	return errors.Wrap(err, "insert message")
}

func (s *messageRepoImpl) GetMessageById(ctx context.Context, id primitive.ObjectID) (*model.Message, error) {
	msg := &model.Message{}
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find message")
	}
	return msg, nil
}

func (s *messageRepoImpl) GetMessageByIds(ctx context.Context, ids []primitive.ObjectID) ([]*model.Message, error) {
	if len(ids) == 0 {
		return []*model.Message{}, nil
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, nil)
}

func (s *messageRepoImpl) ListPage(ctx context.Context, convID primitive.ObjectID, skip, limit int64) ([]*model.Message, error) {
	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(skip).
		SetLimit(limit)

	messages, err := s.find(ctx, bson.M{"conversation_id": convID}, opts)
	if err != nil {
		return nil, err
	}

	// 反转消息列表，保证消息从旧到新排列
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *messageRepoImpl) CountByConversation(ctx context.Context, convID primitive.ObjectID) (int64, error) {
	n, err := s.col.CountDocuments(ctx, bson.M{"conversation_id": convID})
	return n, errors.Wrap(err, "count messages")
}

func (s *messageRepoImpl) CountUnread(ctx context.Context, convID, userID primitive.ObjectID) (int64, error) {
	n, err := s.col.CountDocuments(ctx, unreadFilter(convID, userID))
	return n, errors.Wrap(err, "count unread messages")
}

// MarkAllRead 返回本次新标记为已读的条数, 重复调用返回 0
func (s *messageRepoImpl) MarkAllRead(ctx context.Context, convID, userID primitive.ObjectID) (int64, error) {
	res, err := s.col.UpdateMany(ctx,
		unreadFilter(convID, userID),
		bson.M{"$addToSet": bson.M{"read_by": userID}},
	)
	if err != nil {
		return 0, errors.Wrap(err, "mark messages read")
	}
	return res.ModifiedCount, nil
}

func (s *messageRepoImpl) GetLatest(ctx context.Context, convID primitive.ObjectID) (*model.Message, error) {
	msg := &model.Message{}
	opts := options.FindOne().SetSort(newestFirst)
	err := s.col.FindOne(ctx, bson.M{"conversation_id": convID}, opts).Decode(msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find latest message")
	}
	return msg, nil
}

func (s *messageRepoImpl) UpdateContent(ctx context.Context, id primitive.ObjectID, content string, at time.Time) error {
	update := bson.M{"$set": bson.M{
		"content":    content,
		"edited":     true,
		"edited_at":  at,
		"updated_at": at,
	}}
	_, err := s.col.UpdateByID(ctx, id, update)
	return errors.Wrap(err, "update message")
}

func (s *messageRepoImpl) DeleteMessage(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	return errors.Wrap(err, "delete message")
}

// DeleteOrphaned 清理发送者为空的历史消息
func (s *messageRepoImpl) DeleteOrphaned(ctx context.Context) (int64, error) {
	res, err := s.col.DeleteMany(ctx, bson.M{"sender": nil})
	if err != nil {
		return 0, errors.Wrap(err, "delete orphaned messages")
	}
	return res.DeletedCount, nil
}

func (s *messageRepoImpl) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Message, error) {
	var cursor *mongo.Cursor
	var err error
	if opts != nil {
		cursor, err = s.col.Find(ctx, filter, opts)
	} else {
		cursor, err = s.col.Find(ctx, filter)
	}
	if err != nil {
		return nil, errors.Wrap(err, "find messages")
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	messages := make([]*model.Message, 0)
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, errors.Wrap(err, "decode messages")
	}
	return messages, nil
}

// unreadFilter 别人发的且自己不在 read_by 中
func unreadFilter(convID, userID primitive.ObjectID) bson.M {
	return bson.M{
		"conversation_id": convID,
		"sender":          bson.M{"$ne": userID},
		"read_by":         bson.M{"$ne": userID},
	}
}
