package job

import (
	"context"
	log "log/slog"
	"time"
)

// Locker 多实例部署时保证同一任务只有一个实例在跑
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string)
}

// runLocked locker 为 nil 时直接执行
func runLocked(ctx context.Context, locker Locker, key string, ttl time.Duration, name string, fn func(ctx context.Context)) {
	if locker == nil {
		fn(ctx)
		return
	}
	token, ok, err := locker.Acquire(ctx, key, ttl)
	if err != nil {
		log.ErrorContext(ctx, "acquire job lock failed", "job", name, "err", err)
		return
	}
	if !ok {
		log.InfoContext(ctx, "job is running elsewhere, skipped", "job", name)
		return
	}
	defer locker.Release(ctx, key, token)
	fn(ctx)
}
