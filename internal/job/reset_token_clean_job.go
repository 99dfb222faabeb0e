package job

import (
	"Chatter/internal/pkg/consts"
	"Chatter/internal/repository"
	"context"
	log "log/slog"
	"time"
)

// ResetTokenCleanJob 清除已过期的重置密码令牌
type ResetTokenCleanJob struct {
	userRepo repository.UserRepo
	locker   Locker
}

func NewResetTokenCleanJob(userRepo repository.UserRepo, locker Locker) *ResetTokenCleanJob {
	return &ResetTokenCleanJob{userRepo: userRepo, locker: locker}
}

func (s *ResetTokenCleanJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	runLocked(ctx, s.locker, consts.ResetTokenCleanLock, 5*time.Minute, "reset_token_clean", func(ctx context.Context) {
		n, err := s.userRepo.ClearExpiredResetTokens(ctx, time.Now())
		if err != nil {
			log.ErrorContext(ctx, "reset token cleanup failed", "err", err)
			return
		}
		if n > 0 {
			log.InfoContext(ctx, "expired reset tokens cleared", "cleared_count", n)
		}
	})
}
