package service

import (
	"Chatter/internal/api/dto"
	"Chatter/internal/model"
	"Chatter/internal/pkg/consts"
	"Chatter/internal/pkg/es"
	"Chatter/internal/pkg/util"
	"Chatter/internal/repository"
	"bytes"
	"context"
	"errors"
	"io"
	log "log/slog"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserIndexer 用户搜索索引, nil 时搜索走 Mongo
type UserIndexer = es.UserRepo

// ObjectStorage 对象存储, 返回公共访问 URL
type ObjectStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error)
}

type UserService interface {
	GetProfile(ctx context.Context, id primitive.ObjectID) (*dto.UserDTO, error)
	GetPublicProfile(ctx context.Context, id primitive.ObjectID) (*dto.UserDTO, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, dto *dto.UpdateProfileDTO) (*dto.UserDTO, error)
	UploadAvatar(ctx context.Context, id primitive.ObjectID, reader io.Reader) (*dto.UserDTO, error)
	ListUsers(ctx context.Context, currentID primitive.ObjectID) ([]*dto.UserDTO, error)
	SearchUsers(ctx context.Context, name string) ([]*dto.UserDTO, error)
	SetOnline(ctx context.Context, id primitive.ObjectID, online bool) error
	ResetPresence(ctx context.Context) (int64, error)
}

type UserServiceImpl struct {
	userRepo repository.UserRepo
	indexer  UserIndexer
	storage  ObjectStorage
}

func NewUserService(userRepo repository.UserRepo, indexer UserIndexer, storage ObjectStorage) UserService {
	return &UserServiceImpl{
		userRepo: userRepo,
		indexer:  indexer,
		storage:  storage,
	}
}

func (s *UserServiceImpl) GetProfile(ctx context.Context, id primitive.ObjectID) (*dto.UserDTO, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserDTO(user, true), nil
}

func (s *UserServiceImpl) GetPublicProfile(ctx context.Context, id primitive.ObjectID) (*dto.UserDTO, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserDTO(user, false), nil
}

func (s *UserServiceImpl) UpdateProfile(ctx context.Context, id primitive.ObjectID, in *dto.UpdateProfileDTO) (*dto.UserDTO, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	update := model.ProfileUpdate{}
	if in.Username != nil {
		username := util.NormalizeIdentity(*in.Username)
		if len(username) < 3 {
			return nil, ErrParamInvalid
		}
		if username != user.Username {
			exist, err := s.userRepo.GetUserByUsername(ctx, username)
			if err != nil {
				return nil, err
			}
			if exist != nil {
				return nil, ErrUsernameExist
			}
			update.Username = &username
		}
	}
	if in.Email != nil {
		email := util.NormalizeIdentity(*in.Email)
		if !util.ValidateEmail(email) {
			return nil, ErrParamInvalid
		}
		if email != user.Email {
			exist, err := s.userRepo.GetUserByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if exist != nil {
				return nil, ErrEmailExist
			}
			update.Email = &email
		}
	}
	if in.Avatar != nil {
		avatar := strings.TrimSpace(*in.Avatar)
		update.Avatar = &avatar
	}
	if update.IsEmpty() {
		return toUserDTO(user, true), nil
	}

	if err = s.userRepo.UpdateProfile(ctx, id, update); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrUserExist
		}
		return nil, err
	}
	return s.reload(ctx, id)
}

// UploadAvatar 图片居中裁剪为正方形后上传
func (s *UserServiceImpl) UploadAvatar(ctx context.Context, id primitive.ObjectID, reader io.Reader) (*dto.UserDTO, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}
	if _, err := s.getUser(ctx, id); err != nil {
		return nil, err
	}

	contentType, body, err := util.DetectContentType(reader)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(contentType, consts.MimePrefixImage) {
		return nil, ErrFileNotSupported
	}
	avatar, err := util.SquareAvatar(body, consts.AvatarSize)
	if err != nil {
		return nil, ErrFileNotSupported
	}

	objectName := util.ObjectName("avatars/"+id.Hex(), "avatar.jpg")
	avatarURL, err := s.storage.UploadFile(ctx, objectName, bytes.NewReader(avatar), int64(len(avatar)), "image/jpeg")
	if err != nil {
		return nil, err
	}

	if err = s.userRepo.UpdateProfile(ctx, id, model.ProfileUpdate{Avatar: &avatarURL}); err != nil {
		return nil, err
	}
	return s.reload(ctx, id)
}

func (s *UserServiceImpl) ListUsers(ctx context.Context, currentID primitive.ObjectID) ([]*dto.UserDTO, error) {
	users, err := s.userRepo.ListOthers(ctx, currentID, consts.UserListLimit)
	if err != nil {
		return nil, err
	}
	return toUserDTOs(users), nil
}

// SearchUsers 优先 ES, 未配置或查询失败时退回 Mongo 正则匹配
func (s *UserServiceImpl) SearchUsers(ctx context.Context, name string) ([]*dto.UserDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrParamInvalid
	}

	if s.indexer != nil {
		users, err := s.searchIndex(ctx, name)
		if err == nil {
			return toUserDTOs(users), nil
		}
		log.WarnContext(ctx, "es user search failed, falling back to mongo", "err", err)
	}

	users, err := s.userRepo.SearchByName(ctx, name, consts.UserSearchLimit)
	if err != nil {
		return nil, err
	}
	return toUserDTOs(users), nil
}

func (s *UserServiceImpl) searchIndex(ctx context.Context, name string) ([]*model.User, error) {
	hexIDs, err := s.indexer.SearchUsers(ctx, name, consts.UserSearchLimit)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(hexIDs))
	for _, h := range hexIDs {
		if id, ok := util.ParseObjectID(h); ok {
			ids = append(ids, id)
		}
	}
	users, err := s.userRepo.GetUserByIds(ctx, ids)
	if err != nil {
		return nil, err
	}

	// 保持 ES 返回顺序, 并过滤索引滞后的封禁用户
	byID := make(map[primitive.ObjectID]*model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	ordered := make([]*model.User, 0, len(users))
	for _, id := range ids {
		if u, ok := byID[id]; ok && !u.IsBlocked() {
			ordered = append(ordered, u)
		}
	}
	return ordered, nil
}

func (s *UserServiceImpl) SetOnline(ctx context.Context, id primitive.ObjectID, online bool) error {
	return s.userRepo.SetOnline(ctx, id, online, time.Now())
}

func (s *UserServiceImpl) ResetPresence(ctx context.Context) (int64, error) {
	return s.userRepo.ResetAllOnline(ctx, time.Now())
}

func (s *UserServiceImpl) getUser(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	user, err := s.userRepo.GetUserById(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *UserServiceImpl) reload(ctx context.Context, id primitive.ObjectID) (*dto.UserDTO, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	syncUserIndex(ctx, s.indexer, user)
	return toUserDTO(user, true), nil
}

// syncUserIndex 索引同步失败不影响主流程
func syncUserIndex(ctx context.Context, indexer UserIndexer, user *model.User) {
	if indexer == nil {
		return
	}
	doc := &es.UserES{
		ID:        user.ID.Hex(),
		Username:  user.Username,
		Avatar:    user.Avatar,
		Status:    string(user.Status),
		CreatedAt: user.CreatedAt,
	}
	if err := indexer.IndexUser(ctx, doc); err != nil {
		log.WarnContext(ctx, "sync user index failed", "user_id", doc.ID, "err", err)
	}
}

// toUserDTO withEmail 为 false 时用于公开资料
func toUserDTO(user *model.User, withEmail bool) *dto.UserDTO {
	out := &dto.UserDTO{}
	_ = copier.CopyWithOption(out, user, copier.Option{IgnoreEmpty: true})
	out.ID = user.ID.Hex()
	out.Status = string(user.Status)
	if !user.LastSeen.IsZero() {
		lastSeen := user.LastSeen
		out.LastSeen = &lastSeen
	}
	if !user.CreatedAt.IsZero() {
		createdAt := user.CreatedAt
		out.CreatedAt = &createdAt
	}
	if !withEmail {
		out.Email = ""
	}
	return out
}

func toUserDTOs(users []*model.User) []*dto.UserDTO {
	out := make([]*dto.UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, toUserDTO(u, false))
	}
	return out
}
