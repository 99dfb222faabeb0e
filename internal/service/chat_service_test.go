package service

import (
	"Chatter/internal/api/dto"
	"Chatter/internal/model"
	"Chatter/internal/pkg/util"
	"Chatter/internal/repository/repotest"
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type chatFixture struct {
	svc   ChatService
	users *repotest.UserRepo
	convs *repotest.ConversationRepo
	msgs  *repotest.MessageRepo
}

func newChatFixture() *chatFixture {
	f := &chatFixture{
		users: repotest.NewUserRepo(),
		convs: repotest.NewConversationRepo(),
		msgs:  repotest.NewMessageRepo(),
	}
	f.svc = NewChatService(f.convs, f.msgs, f.users)
	return f
}

func (f *chatFixture) addUser(t *testing.T, name string) *model.User {
	t.Helper()
	u := &model.User{Username: name, Email: name + "@example.com", Avatar: "https://a/" + name}
	if err := f.users.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func parseHex(h string) (primitive.ObjectID, bool) {
	return util.ParseObjectID(h)
}

func TestResolveIsIdempotent(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	u1, u2 := f.addUser(t, "u1"), f.addUser(t, "u2")

	c1, err := f.svc.Resolve(ctx, model.ChatTypeGlobal, u1.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	c2, _ := f.svc.Resolve(ctx, model.ChatTypeGlobal, u2.ID)
	c3, _ := f.svc.Resolve(ctx, model.ChatTypeGlobal, u1.ID)

	if c1.ID != c2.ID || c2.ID != c3.ID {
		t.Fatal("global resolved to different conversations")
	}
	if len(c3.Participants) != 2 || !c3.HasParticipant(u1.ID) || !c3.HasParticipant(u2.ID) {
		t.Errorf("unexpected participants %v", c3.Participants)
	}

	group, _ := f.svc.Resolve(ctx, model.ChatTypeGroup, u1.ID)
	if group.ID == c1.ID || !group.IsGroup {
		t.Error("group must resolve to its own conversation")
	}
	private, _ := f.svc.Resolve(ctx, model.ChatTypePrivate, u2.ID)
	if private.ID != c1.ID {
		t.Error("private shares the non-group conversation")
	}
	if f.convs.Count() != 2 {
		t.Errorf("expected 2 conversations, got %d", f.convs.Count())
	}
}

func TestInferMessageType(t *testing.T) {
	cases := []struct {
		name string
		in   dto.SendMessageDTO
		want model.MessageType
	}{
		{"sticker", dto.SendMessageDTO{StickerURL: "s.png", AudioData: "a"}, model.MessageTypeSticker},
		{"audio", dto.SendMessageDTO{AudioData: "a.webm"}, model.MessageTypeAudio},
		{"text", dto.SendMessageDTO{Text: "hi"}, model.MessageTypeText},
		{"sticker beats explicit type", dto.SendMessageDTO{Type: "text", StickerURL: "s.png"}, model.MessageTypeSticker},
		{"audio beats explicit type", dto.SendMessageDTO{Type: "image", AudioData: "a.webm"}, model.MessageTypeAudio},
		{"explicit", dto.SendMessageDTO{Type: "image", MediaData: "m"}, model.MessageTypeImage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := InferMessageType(&tc.in)
			if err != nil {
				t.Fatalf("infer: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}

	if _, err := InferMessageType(&dto.SendMessageDTO{Type: "gif"}); !errors.Is(err, ErrMessageTypeInvalid) {
		t.Errorf("expected ErrMessageTypeInvalid, got %v", err)
	}
}

func TestSendMessageKinds(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice")

	sticker, err := f.svc.SendMessage(ctx, alice, &dto.SendMessageDTO{ChatType: "global", StickerURL: "https://s/1.png"})
	if err != nil {
		t.Fatalf("send sticker: %v", err)
	}
	if sticker.Type != "sticker" {
		t.Errorf("expected sticker, got %s", sticker.Type)
	}

	audio, _ := f.svc.SendMessage(ctx, alice, &dto.SendMessageDTO{ChatType: "global", AudioData: "data:audio/webm;base64,AAAA"})
	if audio.Type != "audio" {
		t.Errorf("expected audio, got %s", audio.Type)
	}

	text, _ := f.svc.SendMessage(ctx, alice, &dto.SendMessageDTO{ChatType: "global", Text: "hello", ReplyTo: sticker.ID})
	if text.Type != "text" {
		t.Errorf("expected text, got %s", text.Type)
	}
	if text.SenderID != alice.ID.Hex() || text.SenderName != "alice" {
		t.Errorf("sender not enriched: %+v", text)
	}
	if text.ReplyTo == nil || text.ReplyTo.ID != sticker.ID {
		t.Errorf("reply preview missing: %+v", text.ReplyTo)
	}
	if _, err = time.Parse(time.RFC3339, text.Timestamp); err != nil {
		t.Errorf("timestamp not ISO: %q", text.Timestamp)
	}

	id, _ := parseHex(sticker.ID)
	stored, _ := f.msgs.GetMessageById(ctx, id)
	if stored == nil || stored.Type != model.MessageTypeSticker {
		t.Errorf("sticker not persisted with its kind: %+v", stored)
	}

	// 旧客户端带着 type:"text" 发贴纸
	legacy, err := f.svc.SendMessage(ctx, alice, &dto.SendMessageDTO{ChatType: "global", Type: "text", StickerURL: "https://s/2.png"})
	if err != nil || legacy.Type != "sticker" {
		t.Errorf("legacy sticker: %+v %v", legacy, err)
	}
	voice, err := f.svc.SendMessage(ctx, alice, &dto.SendMessageDTO{ChatType: "global", Type: "image", AudioData: "data:audio/webm;base64,AAAA"})
	if err != nil || voice.Type != "audio" {
		t.Errorf("audio with stale type: %+v %v", voice, err)
	}
}

func TestSendMessageValidation(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice")

	cases := map[string]struct {
		in   dto.SendMessageDTO
		want error
	}{
		"missing chat type": {dto.SendMessageDTO{Text: "hi"}, ErrChatTypeRequired},
		"bad chat type":     {dto.SendMessageDTO{ChatType: "lobby", Text: "hi"}, ErrChatTypeInvalid},
		"empty text":        {dto.SendMessageDTO{ChatType: "global", Text: "  "}, ErrContentEmpty},
		"image without url": {dto.SendMessageDTO{ChatType: "group", Type: "image"}, ErrContentEmpty},
		"bad reply id":      {dto.SendMessageDTO{ChatType: "global", Text: "hi", ReplyTo: "x"}, ErrParamInvalid},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := f.svc.SendMessage(ctx, alice, &tc.in); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if f.convs.Count() != 0 {
		t.Error("invalid messages must not create conversations")
	}
}

func TestMarkChatAsReadIsIdempotent(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	alice, bob := f.addUser(t, "alice"), f.addUser(t, "bob")

	if n, found, err := f.svc.MarkChatAsRead(ctx, model.ChatTypeGlobal, bob.ID); err != nil || found || n != 0 {
		t.Fatalf("missing conversation should be a silent no-op, got %d %v %v", n, found, err)
	}

	for _, text := range []string{"one", "two"} {
		if _, err := f.svc.SendMessage(ctx, alice, &dto.SendMessageDTO{ChatType: "global", Text: text}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	_, _ = f.svc.SendMessage(ctx, bob, &dto.SendMessageDTO{ChatType: "global", Text: "mine"})

	unread, _ := f.svc.UnreadCount(ctx, "global", bob.ID)
	if unread.Count != 2 {
		t.Errorf("expected 2 unread, got %d", unread.Count)
	}

	n, found, err := f.svc.MarkChatAsRead(ctx, model.ChatTypeGlobal, bob.ID)
	if err != nil || !found || n != 2 {
		t.Fatalf("first mark: expected 2, got %d %v %v", n, found, err)
	}
	n, _, _ = f.svc.MarkChatAsRead(ctx, model.ChatTypeGlobal, bob.ID)
	if n != 0 {
		t.Errorf("second mark: expected 0, got %d", n)
	}

	unread, _ = f.svc.UnreadCount(ctx, "global", bob.ID)
	if unread.Count != 0 {
		t.Errorf("expected 0 unread, got %d", unread.Count)
	}
}

func TestGetMessagesPagination(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	alice, bob := f.addUser(t, "alice"), f.addUser(t, "bob")

	empty, err := f.svc.GetMessages(ctx, "group", alice.ID, &dto.MessagePageQuery{})
	if err != nil || len(empty.Messages) != 0 || empty.Pagination.Total != 0 {
		t.Fatalf("expected empty page, got %+v %v", empty, err)
	}

	conv, _ := f.svc.Resolve(ctx, model.ChatTypeGroup, alice.ID)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		sender := alice.ID
		f.msgs.Insert(&model.Message{
			ConversationID: conv.ID,
			Sender:         &sender,
			Type:           model.MessageTypeText,
			ChatType:       model.ChatTypeGroup,
			Content:        string(rune('a' + i)),
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
	}
	// 发送者缺失的历史数据
	f.msgs.Insert(&model.Message{ConversationID: conv.ID, Content: "legacy", CreatedAt: base.Add(10 * time.Minute)})

	page, err := f.svc.GetMessages(ctx, "group", bob.ID, &dto.MessagePageQuery{Limit: 3})
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if got := []string{page.Messages[0].Text, page.Messages[1].Text, page.Messages[2].Text}; got[0] != "d" || got[1] != "e" || got[2] != "legacy" {
		t.Errorf("expected newest page in chronological order, got %v", got)
	}
	if page.Messages[2].SenderID != unknownSender {
		t.Errorf("expected unknown sender, got %q", page.Messages[2].SenderID)
	}
	if page.Pagination.Total != 6 || !page.Pagination.HasMore {
		t.Errorf("unexpected pagination %+v", page.Pagination)
	}
	if page.Messages[0].Read {
		t.Error("bob has not read alice's message")
	}

	last, _ := f.svc.GetMessages(ctx, "group", alice.ID, &dto.MessagePageQuery{Limit: 3, Skip: 3})
	if len(last.Messages) != 3 || last.Messages[0].Text != "a" || last.Pagination.HasMore {
		t.Errorf("unexpected last page %+v", last.Pagination)
	}
	if !last.Messages[0].Read {
		t.Error("own messages count as read")
	}

	if _, err = f.svc.GetMessages(ctx, "lobby", alice.ID, &dto.MessagePageQuery{}); !errors.Is(err, ErrChatTypeInvalid) {
		t.Errorf("expected ErrChatTypeInvalid, got %v", err)
	}
}

func TestDeleteMessageSenderOnly(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	alice, bob := f.addUser(t, "alice"), f.addUser(t, "bob")

	msg, _ := f.svc.SendMessage(ctx, alice, &dto.SendMessageDTO{ChatType: "global", Text: "keep me"})

	if err := f.svc.DeleteMessage(ctx, bob.ID, msg.ID); !errors.Is(err, ErrNotMessageSender) {
		t.Fatalf("expected ErrNotMessageSender, got %v", err)
	}
	page, _ := f.svc.GetMessages(ctx, "global", alice.ID, &dto.MessagePageQuery{})
	if len(page.Messages) != 1 {
		t.Fatal("message removed by non-sender")
	}

	if err := f.svc.DeleteMessage(ctx, alice.ID, msg.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	page, _ = f.svc.GetMessages(ctx, "global", alice.ID, &dto.MessagePageQuery{})
	if len(page.Messages) != 0 {
		t.Error("deleted message still listed")
	}
	if err := f.svc.DeleteMessage(ctx, alice.ID, msg.ID); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestEditMessage(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	alice, bob := f.addUser(t, "alice"), f.addUser(t, "bob")

	text, _ := f.svc.SendMessage(ctx, alice, &dto.SendMessageDTO{ChatType: "global", Text: "helo"})
	sticker, _ := f.svc.SendMessage(ctx, alice, &dto.SendMessageDTO{ChatType: "global", StickerURL: "s.png"})

	if _, err := f.svc.EditMessage(ctx, bob, text.ID, "hijack"); !errors.Is(err, ErrNotMessageSender) {
		t.Errorf("expected ErrNotMessageSender, got %v", err)
	}
	if _, err := f.svc.EditMessage(ctx, alice, text.ID, "   "); !errors.Is(err, ErrContentEmpty) {
		t.Errorf("expected ErrContentEmpty, got %v", err)
	}
	if _, err := f.svc.EditMessage(ctx, alice, sticker.ID, "text"); !errors.Is(err, ErrMessageNotEditable) {
		t.Errorf("expected ErrMessageNotEditable, got %v", err)
	}

	edited, err := f.svc.EditMessage(ctx, alice, text.ID, " hello ")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.Text != "hello" || !edited.Edited || edited.EditedAt == nil {
		t.Errorf("unexpected edit result %+v", edited)
	}
}

func TestListConversations(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	alice, bob := f.addUser(t, "alice"), f.addUser(t, "bob")

	_, _ = f.svc.SendMessage(ctx, alice, &dto.SendMessageDTO{ChatType: "global", Text: "hi all"})
	_, _ = f.svc.SendMessage(ctx, bob, &dto.SendMessageDTO{ChatType: "global", Text: "hi alice"})
	_, _ = f.svc.SendMessage(ctx, bob, &dto.SendMessageDTO{ChatType: "group", Text: "group only"})

	convs, err := f.svc.ListConversations(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("alice only joined global, got %d conversations", len(convs))
	}
	c := convs[0]
	if c.UnreadCount != 1 || len(c.Participants) != 2 {
		t.Errorf("unexpected summary %+v", c)
	}
	if c.LastMessage == nil || c.LastMessage.Content != "hi alice" || c.LastMessage.Sender != "bob" {
		t.Errorf("unexpected last message %+v", c.LastMessage)
	}
}

func TestCleanOrphanedMessages(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice")
	_, _ = f.svc.SendMessage(ctx, alice, &dto.SendMessageDTO{ChatType: "global", Text: "ok"})
	conv, _ := f.svc.Resolve(ctx, model.ChatTypeGlobal, alice.ID)
	f.msgs.Insert(&model.Message{ConversationID: conv.ID, Content: "orphan"})

	n, err := f.svc.CleanOrphanedMessages(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 removed, got %d %v", n, err)
	}
	total, _ := f.msgs.CountByConversation(ctx, conv.ID)
	if total != 1 {
		t.Errorf("expected 1 remaining, got %d", total)
	}
}
