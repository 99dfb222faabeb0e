// Package repotest 提供仓储接口的内存实现, 供单元测试与端到端测试使用
package repotest

import (
	"Chatter/internal/model"
	"Chatter/internal/repository"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*model.User
}

var _ repository.UserRepo = (*UserRepo)(nil)

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[primitive.ObjectID]*model.User)}
}

// Get 返回副本, 测试断言用
func (r *UserRepo) Get(id primitive.ObjectID) *model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp
	}
	return nil
}

func (r *UserRepo) SetStatus(id primitive.ObjectID, status model.UserStatus) {
	r.update(id, func(u *model.User) { u.Status = status })
}

func (r *UserRepo) CreateUser(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrDuplicateKey
		}
	}
	now := time.Now()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.Status == "" {
		user.Status = model.UserStatusActive
	}
	user.LastSeen = now
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *UserRepo) GetUserById(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	return r.Get(id), nil
}

func (r *UserRepo) GetUserByIds(_ context.Context, ids []primitive.ObjectID) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *UserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return r.findOne(func(u *model.User) bool { return u.Email == email }), nil
}

func (r *UserRepo) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	return r.findOne(func(u *model.User) bool { return u.Username == username }), nil
}

func (r *UserRepo) SearchByName(_ context.Context, name string, limit int64) ([]*model.User, error) {
	name = strings.ToLower(name)
	return r.findMany(limit, func(u *model.User) bool {
		return !u.IsBlocked() && strings.Contains(strings.ToLower(u.Username), name)
	}), nil
}

func (r *UserRepo) ListOthers(_ context.Context, excludeID primitive.ObjectID, limit int64) ([]*model.User, error) {
	return r.findMany(limit, func(u *model.User) bool {
		return u.ID != excludeID && !u.IsBlocked()
	}), nil
}

func (r *UserRepo) UpdateProfile(_ context.Context, id primitive.ObjectID, update model.ProfileUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil
	}
	for _, other := range r.users {
		if other.ID == id {
			continue
		}
		if (update.Username != nil && other.Username == *update.Username) ||
			(update.Email != nil && other.Email == *update.Email) {
			return repository.ErrDuplicateKey
		}
	}
	if update.Username != nil {
		u.Username = *update.Username
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.Avatar != nil {
		u.Avatar = *update.Avatar
	}
	u.UpdatedAt = time.Now()
	return nil
}

func (r *UserRepo) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) error {
	r.update(id, func(u *model.User) {
		u.Password = hash
		u.ResetPasswordToken = nil
		u.ResetPasswordExpires = nil
	})
	return nil
}

func (r *UserRepo) RecordLoginFailure(_ context.Context, id primitive.ObjectID, at time.Time) error {
	r.update(id, func(u *model.User) {
		u.FailedLoginAttempts++
		u.LastFailedLogin = &at
	})
	return nil
}

func (r *UserRepo) RecordLoginSuccess(_ context.Context, id primitive.ObjectID, at time.Time) error {
	r.update(id, func(u *model.User) {
		u.FailedLoginAttempts = 0
		u.LastLogin = &at
	})
	return nil
}

func (r *UserRepo) SetResetToken(_ context.Context, id primitive.ObjectID, token string, expires time.Time) error {
	r.update(id, func(u *model.User) {
		u.ResetPasswordToken = &token
		u.ResetPasswordExpires = &expires
	})
	return nil
}

func (r *UserRepo) GetUserByResetToken(_ context.Context, id primitive.ObjectID, token string, now time.Time) (*model.User, error) {
	return r.findOne(func(u *model.User) bool {
		return u.ID == id &&
			u.ResetPasswordToken != nil && *u.ResetPasswordToken == token &&
			u.ResetPasswordExpires != nil && u.ResetPasswordExpires.After(now)
	}), nil
}

func (r *UserRepo) ClearExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if u.ResetPasswordExpires != nil && !u.ResetPasswordExpires.After(now) {
			u.ResetPasswordToken = nil
			u.ResetPasswordExpires = nil
			n++
		}
	}
	return n, nil
}

func (r *UserRepo) SetOnline(_ context.Context, id primitive.ObjectID, online bool, at time.Time) error {
	r.update(id, func(u *model.User) {
		u.Online = online
		u.LastSeen = at
	})
	return nil
}

func (r *UserRepo) ResetAllOnline(_ context.Context, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if u.Online {
			u.Online = false
			u.LastSeen = at
			n++
		}
	}
	return n, nil
}

func (r *UserRepo) update(id primitive.ObjectID, fn func(u *model.User)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		fn(u)
	}
}

func (r *UserRepo) findOne(match func(u *model.User) bool) *model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (r *UserRepo) findMany(limit int64, match func(u *model.User) bool) []*model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.User, 0)
	for _, u := range r.users {
		if match(u) {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out
}
