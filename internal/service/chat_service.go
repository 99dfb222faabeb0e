package service

import (
	"Chatter/internal/api/dto"
	"Chatter/internal/model"
	"Chatter/internal/pkg/consts"
	"Chatter/internal/pkg/util"
	"Chatter/internal/repository"
	"context"
	log "log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

const unknownSender = "unknown"

type ChatService interface {
	// Resolve 取 chatType 对应的会话, 不存在则创建, 并把用户加入参与者
	Resolve(ctx context.Context, chatType model.ChatType, userID primitive.ObjectID) (*model.Conversation, error)
	SendMessage(ctx context.Context, sender *model.User, in *dto.SendMessageDTO) (*dto.MessageDTO, error)
	// MarkChatAsRead 返回新标记的条数, 会话不存在时 found 为 false
	MarkChatAsRead(ctx context.Context, chatType model.ChatType, userID primitive.ObjectID) (count int64, found bool, err error)
	GetMessages(ctx context.Context, chatType string, userID primitive.ObjectID, query *dto.MessagePageQuery) (*dto.MessagePageDTO, error)
	UnreadCount(ctx context.Context, chatType string, userID primitive.ObjectID) (*dto.UnreadCountDTO, error)
	DeleteMessage(ctx context.Context, userID primitive.ObjectID, messageID string) error
	EditMessage(ctx context.Context, user *model.User, messageID string, content string) (*dto.MessageDTO, error)
	ListConversations(ctx context.Context, userID primitive.ObjectID) ([]*dto.ConversationDTO, error)
	CleanOrphanedMessages(ctx context.Context) (int64, error)
}

type chatServiceImpl struct {
	convRepo repository.ConversationRepo
	msgRepo  repository.MessageRepo
	userRepo repository.UserRepo
}

func NewChatService(convRepo repository.ConversationRepo, msgRepo repository.MessageRepo, userRepo repository.UserRepo) ChatService {
	return &chatServiceImpl{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		userRepo: userRepo,
	}
}

// ParseChatType 空值与非法值分别报错
func ParseChatType(raw string) (model.ChatType, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrChatTypeRequired
	}
	chatType := model.ChatType(raw)
	if !chatType.Valid() {
		return "", ErrChatTypeInvalid
	}
	return chatType, nil
}

// InferMessageType 首个命中生效: sticker, audio, 显式 type (必须合法), 否则为 text
func InferMessageType(in *dto.SendMessageDTO) (model.MessageType, error) {
	switch {
	case in.StickerURL != "":
		return model.MessageTypeSticker, nil
	case in.AudioData != "":
		return model.MessageTypeAudio, nil
	case in.Type != "":
		t := model.MessageType(in.Type)
		if !t.Valid() {
			return "", ErrMessageTypeInvalid
		}
		return t, nil
	}
	return model.MessageTypeText, nil
}

func (s *chatServiceImpl) Resolve(ctx context.Context, chatType model.ChatType, userID primitive.ObjectID) (*model.Conversation, error) {
	return s.convRepo.Resolve(ctx, chatType.IsGroup(), userID)
}

func (s *chatServiceImpl) SendMessage(ctx context.Context, sender *model.User, in *dto.SendMessageDTO) (*dto.MessageDTO, error) {
	chatType, err := ParseChatType(in.ChatType)
	if err != nil {
		return nil, err
	}
	msgType, err := InferMessageType(in)
	if err != nil {
		return nil, err
	}
	if err = checkPayload(msgType, in); err != nil {
		return nil, err
	}

	var replyTo *primitive.ObjectID
	if in.ReplyTo != "" {
		id, ok := util.ParseObjectID(in.ReplyTo)
		if !ok {
			return nil, ErrParamInvalid
		}
		replyTo = &id
	}

	conv, err := s.Resolve(ctx, chatType, sender.ID)
	if err != nil {
		return nil, err
	}

	senderID := sender.ID
	msg := &model.Message{
		ConversationID: conv.ID,
		Sender:         &senderID,
		Type:           msgType,
		ChatType:       chatType,
		Content:        in.Text,
		StickerURL:     util.PtrString(in.StickerURL),
		AudioURL:       util.PtrString(in.AudioData),
		MediaData:      util.PtrString(in.MediaData),
		Duration:       in.Duration,
		ReplyTo:        replyTo,
	}
	if err = s.msgRepo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	var reply *model.Message
	if replyTo != nil {
		if reply, err = s.msgRepo.GetMessageById(ctx, *replyTo); err != nil {
			log.WarnContext(ctx, "load reply message failed", "reply_to", replyTo.Hex(), "err", err)
		}
	}

	out := toMessageDTO(msg, sender, reply, sender.ID)
	out.ChatType = string(chatType)
	out.Read = false
	return out, nil
}

// checkPayload 各类型必须携带对应内容
func checkPayload(t model.MessageType, in *dto.SendMessageDTO) error {
	switch t {
	case model.MessageTypeText:
		if strings.TrimSpace(in.Text) == "" {
			return ErrContentEmpty
		}
	case model.MessageTypeSticker:
		if in.StickerURL == "" {
			return ErrContentEmpty
		}
	case model.MessageTypeAudio:
		if in.AudioData == "" {
			return ErrContentEmpty
		}
	default:
		if in.MediaData == "" {
			return ErrContentEmpty
		}
	}
	return nil
}

func (s *chatServiceImpl) MarkChatAsRead(ctx context.Context, chatType model.ChatType, userID primitive.ObjectID) (int64, bool, error) {
	conv, err := s.convRepo.GetByGroupFlag(ctx, chatType.IsGroup())
	if err != nil {
		return 0, false, err
	}
	if conv == nil {
		return 0, false, nil
	}
	n, err := s.msgRepo.MarkAllRead(ctx, conv.ID, userID)
	if err != nil {
		return 0, true, err
	}
	return n, true, nil
}

func (s *chatServiceImpl) GetMessages(ctx context.Context, rawChatType string, userID primitive.ObjectID, query *dto.MessagePageQuery) (*dto.MessagePageDTO, error) {
	chatType, err := ParseChatType(rawChatType)
	if err != nil {
		return nil, err
	}
	limit := query.Limit
	if limit <= 0 {
		limit = consts.DefaultMessageSize
	}
	if limit > consts.MaxMessagePageSize {
		limit = consts.MaxMessagePageSize
	}
	skip := query.Skip
	if skip < 0 {
		skip = 0
	}

	page := &dto.MessagePageDTO{
		Messages:   []*dto.MessageDTO{},
		Pagination: dto.PaginationDTO{Limit: limit, Skip: skip},
	}

	conv, err := s.convRepo.GetByGroupFlag(ctx, chatType.IsGroup())
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return page, nil
	}

	messages, err := s.msgRepo.ListPage(ctx, conv.ID, skip, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.msgRepo.CountByConversation(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	senders, replies, err := s.loadRelations(ctx, messages)
	if err != nil {
		return nil, err
	}
	for _, m := range messages {
		var sender *model.User
		if m.Sender != nil {
			sender = senders[*m.Sender]
		}
		var reply *model.Message
		if m.ReplyTo != nil {
			reply = replies[*m.ReplyTo]
		}
		out := toMessageDTO(m, sender, reply, userID)
		out.ChatType = string(chatType)
		page.Messages = append(page.Messages, out)
	}

	page.Pagination.Total = total
	page.Pagination.HasMore = skip+int64(len(messages)) < total
	return page, nil
}

// loadRelations 批量加载发送者与被回复消息
func (s *chatServiceImpl) loadRelations(ctx context.Context, messages []*model.Message) (map[primitive.ObjectID]*model.User, map[primitive.ObjectID]*model.Message, error) {
	senderIDs := make([]primitive.ObjectID, 0, len(messages))
	replyIDs := make([]primitive.ObjectID, 0)
	seen := make(map[primitive.ObjectID]struct{})
	for _, m := range messages {
		if m.Sender != nil {
			if _, ok := seen[*m.Sender]; !ok {
				seen[*m.Sender] = struct{}{}
				senderIDs = append(senderIDs, *m.Sender)
			}
		}
		if m.ReplyTo != nil {
			replyIDs = append(replyIDs, *m.ReplyTo)
		}
	}

	users, err := s.userRepo.GetUserByIds(ctx, senderIDs)
	if err != nil {
		return nil, nil, err
	}
	replies, err := s.msgRepo.GetMessageByIds(ctx, replyIDs)
	if err != nil {
		return nil, nil, err
	}

	userMap := make(map[primitive.ObjectID]*model.User, len(users))
	for _, u := range users {
		userMap[u.ID] = u
	}
	replyMap := make(map[primitive.ObjectID]*model.Message, len(replies))
	for _, r := range replies {
		replyMap[r.ID] = r
	}
	return userMap, replyMap, nil
}

func (s *chatServiceImpl) UnreadCount(ctx context.Context, rawChatType string, userID primitive.ObjectID) (*dto.UnreadCountDTO, error) {
	chatType, err := ParseChatType(rawChatType)
	if err != nil {
		return nil, err
	}
	out := &dto.UnreadCountDTO{ChatType: string(chatType)}

	conv, err := s.convRepo.GetByGroupFlag(ctx, chatType.IsGroup())
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return out, nil
	}
	if out.Count, err = s.msgRepo.CountUnread(ctx, conv.ID, userID); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *chatServiceImpl) DeleteMessage(ctx context.Context, userID primitive.ObjectID, messageID string) error {
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if !msg.IsSentBy(userID) {
		return ErrNotMessageSender
	}
	if err = s.msgRepo.DeleteMessage(ctx, msg.ID); err != nil {
		return err
	}
	log.InfoContext(ctx, "message deleted", "message_id", msg.ID.Hex(), "user_id", userID.Hex())
	return nil
}

func (s *chatServiceImpl) EditMessage(ctx context.Context, user *model.User, messageID string, content string) (*dto.MessageDTO, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrContentEmpty
	}
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !msg.IsSentBy(user.ID) {
		return nil, ErrNotMessageSender
	}
	if msg.Type != model.MessageTypeText {
		return nil, ErrMessageNotEditable
	}

	now := time.Now()
	if err = s.msgRepo.UpdateContent(ctx, msg.ID, content, now); err != nil {
		return nil, err
	}
	msg.Content = content
	msg.Edited = true
	msg.EditedAt = &now
	msg.UpdatedAt = now

	out := toMessageDTO(msg, user, nil, user.ID)
	out.ChatType = string(msg.ChatType)
	return out, nil
}

func (s *chatServiceImpl) getMessage(ctx context.Context, messageID string) (*model.Message, error) {
	id, ok := util.ParseObjectID(messageID)
	if !ok {
		return nil, ErrMessageNotFound
	}
	msg, err := s.msgRepo.GetMessageById(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	return msg, nil
}

// ListConversations 每个会话的摘要并行加载
func (s *chatServiceImpl) ListConversations(ctx context.Context, userID primitive.ObjectID) ([]*dto.ConversationDTO, error) {
	convs, err := s.convRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]*dto.ConversationDTO, len(convs))
	g, gctx := errgroup.WithContext(ctx)
	for i, conv := range convs {
		g.Go(func() error {
			item, err := s.summarize(gctx, conv, userID)
			if err != nil {
				return err
			}
			out[i] = item
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *chatServiceImpl) summarize(ctx context.Context, conv *model.Conversation, userID primitive.ObjectID) (*dto.ConversationDTO, error) {
	participants, err := s.userRepo.GetUserByIds(ctx, conv.Participants)
	if err != nil {
		return nil, err
	}
	unread, err := s.msgRepo.CountUnread(ctx, conv.ID, userID)
	if err != nil {
		return nil, err
	}
	latest, err := s.msgRepo.GetLatest(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	item := &dto.ConversationDTO{
		ID:           conv.ID.Hex(),
		IsGroup:      conv.IsGroup,
		Participants: toUserDTOs(participants),
		UnreadCount:  unread,
		UpdatedAt:    conv.UpdatedAt,
	}
	if latest != nil {
		preview := &dto.LastMessagePreview{Content: latest.Content, Timestamp: latest.CreatedAt}
		if latest.Sender != nil {
			for _, p := range participants {
				if p.ID == *latest.Sender {
					preview.Sender = p.Username
					break
				}
			}
		}
		item.LastMessage = preview
	}
	return item, nil
}

func (s *chatServiceImpl) CleanOrphanedMessages(ctx context.Context) (int64, error) {
	return s.msgRepo.DeleteOrphaned(ctx)
}

// toMessageDTO read 为 viewer 已读或 viewer 即发送者
func toMessageDTO(m *model.Message, sender *model.User, reply *model.Message, viewer primitive.ObjectID) *dto.MessageDTO {
	out := &dto.MessageDTO{
		ID:         m.ID.Hex(),
		Text:       m.Content,
		StickerURL: m.StickerURL,
		SenderID:   unknownSender,
		SenderName: unknownSender,
		ChatType:   string(m.ChatType),
		Type:       string(m.Type),
		AudioData:  m.AudioURL,
		MediaData:  m.MediaData,
		Duration:   util.PtrFloat64(m.Duration),
		Timestamp:  util.FormatISO(m.CreatedAt),
		Read:       m.IsReadBy(viewer) || m.IsSentBy(viewer),
		Edited:     m.Edited,
		EditedAt:   m.EditedAt,
	}
	if out.Type == "" {
		out.Type = string(model.MessageTypeText)
	}
	if m.Sender != nil {
		out.SenderID = m.Sender.Hex()
	}
	if sender != nil {
		out.SenderName = sender.Username
		out.SenderAvatar = util.PtrString(sender.Avatar)
	}
	if reply != nil {
		out.ReplyTo = &dto.ReplyPreview{ID: reply.ID.Hex(), Content: reply.Content}
		if reply.Sender != nil {
			out.ReplyTo.SenderID = reply.Sender.Hex()
		}
	} else if m.ReplyTo != nil {
		out.ReplyTo = &dto.ReplyPreview{ID: m.ReplyTo.Hex()}
	}
	return out
}
