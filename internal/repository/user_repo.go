package repository

import (
	"Chatter/internal/model"
	"Chatter/internal/pkg/consts"
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepo interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserById(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	GetUserByIds(ctx context.Context, ids []primitive.ObjectID) ([]*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	SearchByName(ctx context.Context, name string, limit int64) ([]*model.User, error)
	ListOthers(ctx context.Context, excludeID primitive.ObjectID, limit int64) ([]*model.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, update model.ProfileUpdate) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
	RecordLoginFailure(ctx context.Context, id primitive.ObjectID, at time.Time) error
	RecordLoginSuccess(ctx context.Context, id primitive.ObjectID, at time.Time) error
	SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expires time.Time) error
	GetUserByResetToken(ctx context.Context, id primitive.ObjectID, token string, now time.Time) (*model.User, error)
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
	SetOnline(ctx context.Context, id primitive.ObjectID, online bool, at time.Time) error
	ResetAllOnline(ctx context.Context, at time.Time) (int64, error)
}

type UserRepoImpl struct {
	col *mongo.Collection
}

func NewUserRepo(db *mongo.Database) UserRepo {
	return &UserRepoImpl{col: db.Collection(consts.UserCollection)}
}

func (s *UserRepoImpl) CreateUser(ctx context.Context, user *model.User) error {
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

	if _, err := s.col.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return errors.Wrap(err, "insert user")
	}
	return nil
}

func (s *UserRepoImpl) GetUserById(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *UserRepoImpl) GetUserByIds(ctx context.Context, ids []primitive.ObjectID) ([]*model.User, error) {
	users := make([]*model.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	cursor, err := s.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errors.Wrap(err, "find users by ids")
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()
	if err = cursor.All(ctx, &users); err != nil {
		return nil, errors.Wrap(err, "decode users")
	}
	return users, nil
}

func (s *UserRepoImpl) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *UserRepoImpl) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

// SearchByName 用户名模糊匹配, 忽略大小写
func (s *UserRepoImpl) SearchByName(ctx context.Context, name string, limit int64) ([]*model.User, error) {
	filter := bson.M{
		"username": primitive.Regex{Pattern: regexp.QuoteMeta(name), Options: "i"},
		"status":   bson.M{"$ne": model.UserStatusBlocked},
	}
	opts := options.Find().SetSort(bson.D{{Key: "username", Value: 1}}).SetLimit(limit)
	return s.findMany(ctx, filter, opts)
}

func (s *UserRepoImpl) ListOthers(ctx context.Context, excludeID primitive.ObjectID, limit int64) ([]*model.User, error) {
	filter := bson.M{
		"_id":    bson.M{"$ne": excludeID},
		"status": bson.M{"$ne": model.UserStatusBlocked},
	}
	opts := options.Find().SetSort(bson.D{{Key: "username", Value: 1}}).SetLimit(limit)
	return s.findMany(ctx, filter, opts)
}

func (s *UserRepoImpl) UpdateProfile(ctx context.Context, id primitive.ObjectID, update model.ProfileUpdate) error {
	set := bson.M{"updated_at": time.Now()}
	if update.Username != nil {
		set["username"] = *update.Username
	}
	if update.Email != nil {
		set["email"] = *update.Email
	}
	if update.Avatar != nil {
		set["avatar"] = *update.Avatar
	}
	_, err := s.col.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return errors.Wrap(err, "update profile")
	}
	return nil
}

// UpdatePassword 修改密码并清除重置令牌
func (s *UserRepoImpl) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	update := bson.M{
		"$set":   bson.M{"password": hash, "updated_at": time.Now()},
		"$unset": bson.M{"reset_password_token": "", "reset_password_expires": ""},
	}
	_, err := s.col.UpdateByID(ctx, id, update)
	return errors.Wrap(err, "update password")
}

func (s *UserRepoImpl) RecordLoginFailure(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	update := bson.M{
		"$inc": bson.M{"failed_login_attempts": 1},
		"$set": bson.M{"last_failed_login": at},
	}
	_, err := s.col.UpdateByID(ctx, id, update)
	return errors.Wrap(err, "record login failure")
}

func (s *UserRepoImpl) RecordLoginSuccess(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	update := bson.M{"$set": bson.M{"failed_login_attempts": 0, "last_login": at}}
	_, err := s.col.UpdateByID(ctx, id, update)
	return errors.Wrap(err, "record login success")
}

func (s *UserRepoImpl) SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expires time.Time) error {
	update := bson.M{"$set": bson.M{"reset_password_token": token, "reset_password_expires": expires}}
	_, err := s.col.UpdateByID(ctx, id, update)
	return errors.Wrap(err, "set reset token")
}

func (s *UserRepoImpl) GetUserByResetToken(ctx context.Context, id primitive.ObjectID, token string, now time.Time) (*model.User, error) {
	return s.findOne(ctx, bson.M{
		"_id":                    id,
		"reset_password_token":   token,
		"reset_password_expires": bson.M{"$gt": now},
	})
}

func (s *UserRepoImpl) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.col.UpdateMany(ctx,
		bson.M{"reset_password_expires": bson.M{"$lte": now}},
		bson.M{"$unset": bson.M{"reset_password_token": "", "reset_password_expires": ""}},
	)
	if err != nil {
		return 0, errors.Wrap(err, "clear expired reset tokens")
	}
	return res.ModifiedCount, nil
}

func (s *UserRepoImpl) SetOnline(ctx context.Context, id primitive.ObjectID, online bool, at time.Time) error {
	update := bson.M{"$set": bson.M{"online": online, "last_seen": at}}
	_, err := s.col.UpdateByID(ctx, id, update)
	return errors.Wrap(err, "set online")
}

// ResetAllOnline 进程启动时在线表为空, 持久化的 online 标记全部复位
func (s *UserRepoImpl) ResetAllOnline(ctx context.Context, at time.Time) (int64, error) {
	res, err := s.col.UpdateMany(ctx,
		bson.M{"online": true},
		bson.M{"$set": bson.M{"online": false, "last_seen": at}},
	)
	if err != nil {
		return 0, errors.Wrap(err, "reset online flags")
	}
	return res.ModifiedCount, nil
}

func (s *UserRepoImpl) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	user := &model.User{}
	err := s.col.FindOne(ctx, filter).Decode(user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find user")
	}
	return user, nil
}

func (s *UserRepoImpl) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.User, error) {
	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find users")
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	users := make([]*model.User, 0)
	if err = cursor.All(ctx, &users); err != nil {
		return nil, errors.Wrap(err, "decode users")
	}
	return users, nil
}
