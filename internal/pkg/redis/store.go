package redis

import (
	"Chatter/internal/pkg/consts"
	"context"
	"time"

	"github.com/google/uuid"
)

// TokenBlacklist 注销后的令牌签名, 过期时间与令牌剩余有效期一致
type TokenBlacklist struct{}

func NewTokenBlacklist() *TokenBlacklist {
	return &TokenBlacklist{}
}

func (s *TokenBlacklist) Revoke(ctx context.Context, signature string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return SetWithExpiration(ctx, consts.TokenBlacklistKey+signature, "1", ttl)
}

func (s *TokenBlacklist) IsRevoked(ctx context.Context, signature string) (bool, error) {
	value, err := GetValue(ctx, consts.TokenBlacklistKey+signature)
	if err != nil {
		return false, err
	}
	return value != "", nil
}

// WindowLimiter 固定窗口计数限流
type WindowLimiter struct{}

func NewWindowLimiter() *WindowLimiter {
	return &WindowLimiter{}
}

func (s *WindowLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	n, err := IncrWithWindow(ctx, key, window)
	if err != nil {
		return false, err
	}
	return n <= limit, nil
}

// JobLocker 定时任务互斥, 锁值为随机 token
type JobLocker struct{}

func NewJobLocker() *JobLocker {
	return &JobLocker{}
}

func (s *JobLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := TryLock(ctx, key, token, ttl, 1)
	return token, ok, err
}

func (s *JobLocker) Release(ctx context.Context, key, token string) {
	UnLock(ctx, key, token)
}
