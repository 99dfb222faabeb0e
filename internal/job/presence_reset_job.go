package job

import (
	"Chatter/internal/pkg/consts"
	"Chatter/internal/service"
	"context"
	log "log/slog"
	"time"
)

// PresenceResetJob 在线表不跨进程存活, 启动时把持久化的 online 标记全部复位
type PresenceResetJob struct {
	userSvc service.UserService
	locker  Locker
}

func NewPresenceResetJob(userSvc service.UserService, locker Locker) *PresenceResetJob {
	return &PresenceResetJob{userSvc: userSvc, locker: locker}
}

func (s *PresenceResetJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	runLocked(ctx, s.locker, consts.PresenceResetLock, time.Minute, "presence_reset", func(ctx context.Context) {
		n, err := s.userSvc.ResetPresence(ctx)
		if err != nil {
			log.ErrorContext(ctx, "presence reset failed", "err", err)
			return
		}
		log.InfoContext(ctx, "presence flags reset", "reset_count", n)
	})
}
