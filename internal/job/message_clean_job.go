package job

import (
	"Chatter/internal/pkg/consts"
	"Chatter/internal/service"
	"context"
	log "log/slog"
	"time"
)

// MessageCleanJob 删除发送者缺失的历史消息
type MessageCleanJob struct {
	chatSvc service.ChatService
	locker  Locker
}

func NewMessageCleanJob(chatSvc service.ChatService, locker Locker) *MessageCleanJob {
	return &MessageCleanJob{chatSvc: chatSvc, locker: locker}
}

func (s *MessageCleanJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	runLocked(ctx, s.locker, consts.MessageCleanLock, 10*time.Minute, "message_clean", func(ctx context.Context) {
		log.InfoContext(ctx, "start orphaned message cleanup job")
		n, err := s.chatSvc.CleanOrphanedMessages(ctx)
		if err != nil {
			log.ErrorContext(ctx, "orphaned message cleanup failed", "err", err)
			return
		}
		log.InfoContext(ctx, "orphaned message cleanup finished", "deleted_count", n)
	})
}
