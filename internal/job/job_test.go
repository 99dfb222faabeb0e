package job

import (
	"Chatter/internal/model"
	"Chatter/internal/repository/repotest"
	"Chatter/internal/service"
	"context"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	released int
}

func (f *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] {
		return "", false, nil
	}
	f.held[key] = true
	return "token", true, nil
}

func (f *fakeLocker) Release(_ context.Context, key, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, key)
	f.released++
}

func TestMessageCleanJobRemovesOrphans(t *testing.T) {
	users, convs, msgs := repotest.NewUserRepo(), repotest.NewConversationRepo(), repotest.NewMessageRepo()
	chat := service.NewChatService(convs, msgs, users)
	convID := primitive.NewObjectID()
	sender := primitive.NewObjectID()
	msgs.Insert(&model.Message{ConversationID: convID, Sender: &sender, Content: "ok"})
	msgs.Insert(&model.Message{ConversationID: convID, Content: "orphan"})

	locker := &fakeLocker{held: map[string]bool{}}
	NewMessageCleanJob(chat, locker).Run()

	if n, _ := msgs.CountByConversation(context.Background(), convID); n != 1 {
		t.Errorf("expected 1 message left, got %d", n)
	}
	if locker.released != 1 {
		t.Errorf("lock not released")
	}
}

func TestJobSkippedWhenLockHeld(t *testing.T) {
	users, convs, msgs := repotest.NewUserRepo(), repotest.NewConversationRepo(), repotest.NewMessageRepo()
	chat := service.NewChatService(convs, msgs, users)
	convID := primitive.NewObjectID()
	msgs.Insert(&model.Message{ConversationID: convID, Content: "orphan"})

	locker := &fakeLocker{held: map[string]bool{}}
	_, _, _ = locker.Acquire(context.Background(), "lock:message:clean", time.Minute)
	NewMessageCleanJob(chat, locker).Run()

	if n, _ := msgs.CountByConversation(context.Background(), convID); n != 1 {
		t.Error("job ran while lock was held elsewhere")
	}
}

func TestResetTokenCleanJob(t *testing.T) {
	users := repotest.NewUserRepo()
	ctx := context.Background()
	u := &model.User{Username: "alice", Email: "alice@example.com"}
	_ = users.CreateUser(ctx, u)
	_ = users.SetResetToken(ctx, u.ID, "tok", time.Now().Add(-time.Minute))

	NewResetTokenCleanJob(users, nil).Run()

	if got := users.Get(u.ID); got.ResetPasswordToken != nil || got.ResetPasswordExpires != nil {
		t.Error("expired reset token not cleared")
	}
}

func TestPresenceResetJob(t *testing.T) {
	users := repotest.NewUserRepo()
	ctx := context.Background()
	u := &model.User{Username: "alice", Email: "alice@example.com"}
	_ = users.CreateUser(ctx, u)
	_ = users.SetOnline(ctx, u.ID, true, time.Now())

	NewPresenceResetJob(service.NewUserService(users, nil, nil), nil).Run()

	if users.Get(u.ID).Online {
		t.Error("online flag not reset")
	}
}
