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

type ConversationRepo interface {
	// Resolve 按 group 标记取会话, 不存在则创建, 并保证 userID 在参与者中
	Resolve(ctx context.Context, isGroup bool, userID primitive.ObjectID) (*model.Conversation, error)
	GetByGroupFlag(ctx context.Context, isGroup bool) (*model.Conversation, error)
	ListByParticipant(ctx context.Context, userID primitive.ObjectID) ([]*model.Conversation, error)
}

type conversationRepoImpl struct {
	col *mongo.Collection
}

func NewConversationRepo(db *mongo.Database) ConversationRepo {
	return &conversationRepoImpl{col: db.Collection(consts.ConversationCollection)}
}

// Resolve 单条 upsert, 并发创建撞上唯一索引时重试一次即可读到对方写入的文档
func (s *conversationRepoImpl) Resolve(ctx context.Context, isGroup bool, userID primitive.ObjectID) (*model.Conversation, error) {
	conv, err := s.upsert(ctx, isGroup, userID)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		conv, err = s.upsert(ctx, isGroup, userID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "resolve conversation")
	}
	return conv, nil
}

func (s *conversationRepoImpl) upsert(ctx context.Context, isGroup bool, userID primitive.ObjectID) (*model.Conversation, error) {
	now := time.Now()
	update := bson.M{
		"$addToSet":    bson.M{"participants": userID},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	conv := &model.Conversation{}
	if err := s.col.FindOneAndUpdate(ctx, bson.M{"is_group": isGroup}, update, opts).Decode(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *conversationRepoImpl) GetByGroupFlag(ctx context.Context, isGroup bool) (*model.Conversation, error) {
	conv := &model.Conversation{}
	err := s.col.FindOne(ctx, bson.M{"is_group": isGroup}).Decode(conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find conversation")
	}
	return conv, nil
}

// ListByParticipant 最近活跃的会话在前
func (s *conversationRepoImpl) ListByParticipant(ctx context.Context, userID primitive.ObjectID) ([]*model.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := s.col.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find conversations")
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	convs := make([]*model.Conversation, 0)
	if err = cursor.All(ctx, &convs); err != nil {
		return nil, errors.Wrap(err, "decode conversations")
	}
	return convs, nil
}
