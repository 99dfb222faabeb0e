package repotest

import (
	"Chatter/internal/model"
	"Chatter/internal/repository"
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ConversationRepo struct {
	mu    sync.Mutex
	convs map[bool]*model.Conversation
}

var _ repository.ConversationRepo = (*ConversationRepo)(nil)

func NewConversationRepo() *ConversationRepo {
	return &ConversationRepo{convs: make(map[bool]*model.Conversation)}
}

// Count 已创建的会话数
func (r *ConversationRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.convs)
}

func (r *ConversationRepo) Resolve(_ context.Context, isGroup bool, userID primitive.ObjectID) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	conv, ok := r.convs[isGroup]
	if !ok {
		conv = &model.Conversation{ID: primitive.NewObjectID(), IsGroup: isGroup, CreatedAt: now}
		r.convs[isGroup] = conv
	}
	if !conv.HasParticipant(userID) {
		conv.Participants = append(conv.Participants, userID)
	}
	conv.UpdatedAt = now
	return cloneConv(conv), nil
}

func (r *ConversationRepo) GetByGroupFlag(_ context.Context, isGroup bool) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conv, ok := r.convs[isGroup]; ok {
		return cloneConv(conv), nil
	}
	return nil, nil
}

func (r *ConversationRepo) ListByParticipant(_ context.Context, userID primitive.ObjectID) ([]*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Conversation, 0)
	for _, conv := range r.convs {
		if conv.HasParticipant(userID) {
			out = append(out, cloneConv(conv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func cloneConv(c *model.Conversation) *model.Conversation {
	cp := *c
	cp.Participants = append([]primitive.ObjectID(nil), c.Participants...)
	return &cp
}

type MessageRepo struct {
	mu       sync.Mutex
	messages []*model.Message
}

var _ repository.MessageRepo = (*MessageRepo)(nil)

func NewMessageRepo() *MessageRepo {
	return &MessageRepo{}
}

// Insert 直接写入, 用于构造历史数据
func (r *MessageRepo) Insert(msg *model.Message) {
	_ = r.CreateMessage(context.Background(), msg)
}

func (r *MessageRepo) CreateMessage(_ context.Context, msg *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.UpdatedAt = msg.CreatedAt
	if msg.ReadBy == nil {
		msg.ReadBy = []primitive.ObjectID{}
	}
	r.messages = append(r.messages, cloneMsg(msg))
	return nil
}

func (r *MessageRepo) GetMessageById(_ context.Context, id primitive.ObjectID) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m := r.find(id); m != nil {
		return cloneMsg(m), nil
	}
	return nil, nil
}

func (r *MessageRepo) GetMessageByIds(_ context.Context, ids []primitive.ObjectID) ([]*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Message, 0, len(ids))
	for _, id := range ids {
		if m := r.find(id); m != nil {
			out = append(out, cloneMsg(m))
		}
	}
	return out, nil
}

func (r *MessageRepo) ListPage(_ context.Context, convID primitive.ObjectID, skip, limit int64) ([]*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// 倒序遍历即最新在前
	newest := make([]*model.Message, 0)
	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].ConversationID == convID {
			newest = append(newest, r.messages[i])
		}
	}
	if skip >= int64(len(newest)) {
		return []*model.Message{}, nil
	}
	end := skip + limit
	if end > int64(len(newest)) {
		end = int64(len(newest))
	}
	window := newest[skip:end]
	out := make([]*model.Message, 0, len(window))
	for i := len(window) - 1; i >= 0; i-- {
		out = append(out, cloneMsg(window[i]))
	}
	return out, nil
}

func (r *MessageRepo) CountByConversation(_ context.Context, convID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.messages {
		if m.ConversationID == convID {
			n++
		}
	}
	return n, nil
}

func (r *MessageRepo) CountUnread(_ context.Context, convID, userID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.messages {
		if isUnread(m, convID, userID) {
			n++
		}
	}
	return n, nil
}

func (r *MessageRepo) MarkAllRead(_ context.Context, convID, userID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.messages {
		if isUnread(m, convID, userID) {
			m.ReadBy = append(m.ReadBy, userID)
			n++
		}
	}
	return n, nil
}

func (r *MessageRepo) GetLatest(_ context.Context, convID primitive.ObjectID) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].ConversationID == convID {
			return cloneMsg(r.messages[i]), nil
		}
	}
	return nil, nil
}

func (r *MessageRepo) UpdateContent(_ context.Context, id primitive.ObjectID, content string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m := r.find(id); m != nil {
		m.Content = content
		m.Edited = true
		m.EditedAt = &at
		m.UpdatedAt = at
	}
	return nil
}

func (r *MessageRepo) DeleteMessage(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeIf(func(m *model.Message) bool { return m.ID == id })
	return nil
}

func (r *MessageRepo) DeleteOrphaned(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeIf(func(m *model.Message) bool { return m.Sender == nil }), nil
}

func (r *MessageRepo) find(id primitive.ObjectID) *model.Message {
	for _, m := range r.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (r *MessageRepo) removeIf(match func(m *model.Message) bool) int64 {
	kept := r.messages[:0]
	var n int64
	for _, m := range r.messages {
		if match(m) {
			n++
			continue
		}
		kept = append(kept, m)
	}
	r.messages = kept
	return n
}

func isUnread(m *model.Message, convID, userID primitive.ObjectID) bool {
	return m.ConversationID == convID && !m.IsSentBy(userID) && !m.IsReadBy(userID)
}

func cloneMsg(m *model.Message) *model.Message {
	cp := *m
	cp.ReadBy = append([]primitive.ObjectID(nil), m.ReadBy...)
	return &cp
}
