package repotest

import (
	"context"
	"sync"
	"time"
)

// Blacklist 内存令牌黑名单
type Blacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewBlacklist() *Blacklist {
	return &Blacklist{revoked: make(map[string]time.Time)}
}

func (b *Blacklist) Revoke(_ context.Context, signature string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[signature] = time.Now().Add(ttl)
	return nil
}

func (b *Blacklist) IsRevoked(_ context.Context, signature string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.revoked[signature]
	return ok && time.Now().Before(exp), nil
}

// Limiter 内存固定窗口计数
type Limiter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewLimiter() *Limiter {
	return &Limiter{counts: make(map[string]int64)}
}

func (l *Limiter) Allow(_ context.Context, key string, limit int64, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[key]++
	return l.counts[key] <= limit, nil
}
