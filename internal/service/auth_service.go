package service

import (
	"Chatter/internal/api/dto"
	"Chatter/internal/model"
	"Chatter/internal/pkg/consts"
	"Chatter/internal/pkg/security"
	"Chatter/internal/pkg/util"
	"Chatter/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/url"
	"time"
)

// TokenBlacklist 注销令牌存储
type TokenBlacklist interface {
	Revoke(ctx context.Context, signature string, ttl time.Duration) error
	IsRevoked(ctx context.Context, signature string) (bool, error)
}

type AuthService interface {
	Register(ctx context.Context, dto *dto.RegisterDTO) (*dto.AuthResultDTO, error)
	Login(ctx context.Context, dto *dto.LoginDTO) (*dto.AuthResultDTO, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	// Authenticate 校验 access token, 检查黑名单并加载用户, 封禁用户返回 ErrUserBlocked
	Authenticate(ctx context.Context, token string) (*model.User, error)
	Logout(ctx context.Context, token string) error
	ForgotPassword(ctx context.Context, email string) (*dto.ForgotPasswordResultDTO, error)
	ResetPassword(ctx context.Context, dto *dto.ResetPasswordDTO) error
}

type authServiceImpl struct {
	userRepo  repository.UserRepo
	jwt       *security.JWTManager
	blacklist TokenBlacklist
	indexer   UserIndexer
	devMode   bool
}

func NewAuthService(userRepo repository.UserRepo, jwt *security.JWTManager, blacklist TokenBlacklist, indexer UserIndexer, devMode bool) AuthService {
	return &authServiceImpl{
		userRepo:  userRepo,
		jwt:       jwt,
		blacklist: blacklist,
		indexer:   indexer,
		devMode:   devMode,
	}
}

func (s *authServiceImpl) Register(ctx context.Context, regDTO *dto.RegisterDTO) (*dto.AuthResultDTO, error) {
	username := util.NormalizeIdentity(regDTO.Username)
	email := util.NormalizeIdentity(regDTO.Email)

	exist, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, ErrUsernameExist
	}
	exist, err = s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, ErrEmailExist
	}

	passwordHash, err := security.HashPassword(regDTO.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username: username,
		Email:    email,
		Password: passwordHash,
		Avatar:   fmt.Sprintf(consts.DefaultAvatarURL, url.QueryEscape(username)),
		Status:   model.UserStatusActive,
	}
	if err = s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrUserExist
		}
		return nil, err
	}
	syncUserIndex(ctx, s.indexer, user)

	log.InfoContext(ctx, "user registered", "user_id", user.ID.Hex())
	return s.issue(user)
}

func (s *authServiceImpl) Login(ctx context.Context, loginDTO *dto.LoginDTO) (*dto.AuthResultDTO, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, util.NormalizeIdentity(loginDTO.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	// 封禁状态优先于密码校验
	if user.IsBlocked() {
		return nil, ErrUserBlocked
	}

	now := time.Now()
	if err = security.CheckPasswordHash(loginDTO.Password, user.Password); err != nil {
		if recErr := s.userRepo.RecordLoginFailure(ctx, user.ID, now); recErr != nil {
			log.ErrorContext(ctx, "record login failure failed", "user_id", user.ID.Hex(), "err", recErr)
		}
		return nil, ErrInvalidCredentials
	}
	if err = s.userRepo.RecordLoginSuccess(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.FailedLoginAttempts = 0
	user.LastLogin = &now

	return s.issue(user)
}

func (s *authServiceImpl) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", ErrRefreshTokenMissing
	}
	claims, err := s.jwt.ValidateToken(refreshToken, security.KindRefresh)
	if err != nil {
		return "", tokenError(err)
	}

	user, err := s.loadActiveUser(ctx, claims.UserID)
	if err != nil {
		return "", err
	}
	return s.jwt.GenerateToken(user.ID.Hex(), security.KindAccess)
}

func (s *authServiceImpl) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}
	signature, err := security.ExtractSignature(token)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	revoked, err := s.blacklist.IsRevoked(ctx, signature)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	claims, err := s.jwt.ValidateToken(token, security.KindAccess)
	if err != nil {
		return nil, tokenError(err)
	}
	return s.loadActiveUser(ctx, claims.UserID)
}

// Logout 签名加入黑名单直到令牌自然过期
func (s *authServiceImpl) Logout(ctx context.Context, token string) error {
	claims, err := s.jwt.ValidateToken(token, security.KindAccess)
	if err != nil {
		return tokenError(err)
	}
	signature, err := security.ExtractSignature(token)
	if err != nil {
		return ErrTokenInvalid
	}
	return s.blacklist.Revoke(ctx, signature, security.RemainingTTL(claims))
}

// ForgotPassword 无论邮箱是否存在都返回相同结果
func (s *authServiceImpl) ForgotPassword(ctx context.Context, email string) (*dto.ForgotPasswordResultDTO, error) {
	result := &dto.ForgotPasswordResultDTO{}

	user, err := s.userRepo.GetUserByEmail(ctx, util.NormalizeIdentity(email))
	if err != nil {
		return nil, err
	}
	if user == nil || user.IsBlocked() {
		return result, nil
	}

	token, err := s.jwt.GenerateToken(user.ID.Hex(), security.KindPasswordReset)
	if err != nil {
		return nil, err
	}
	expires := time.Now().Add(s.jwt.TTL(security.KindPasswordReset))
	if err = s.userRepo.SetResetToken(ctx, user.ID, token, expires); err != nil {
		return nil, err
	}

	log.InfoContext(ctx, "password reset requested", "user_id", user.ID.Hex())
	if s.devMode {
		result.ResetToken = token
	}
	return result, nil
}

func (s *authServiceImpl) ResetPassword(ctx context.Context, resetDTO *dto.ResetPasswordDTO) error {
	claims, err := s.jwt.ValidateToken(resetDTO.Token, security.KindPasswordReset)
	if err != nil {
		return ErrResetTokenInvalid
	}
	uid, ok := util.ParseObjectID(claims.UserID)
	if !ok {
		return ErrResetTokenInvalid
	}

	user, err := s.userRepo.GetUserByResetToken(ctx, uid, resetDTO.Token, time.Now())
	if err != nil {
		return err
	}
	if user == nil {
		return ErrResetTokenInvalid
	}

	hash, err := security.HashPassword(resetDTO.NewPassword)
	if err != nil {
		return err
	}
	return s.userRepo.UpdatePassword(ctx, user.ID, hash)
}

func (s *authServiceImpl) issue(user *model.User) (*dto.AuthResultDTO, error) {
	access, err := s.jwt.GenerateToken(user.ID.Hex(), security.KindAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := s.jwt.GenerateToken(user.ID.Hex(), security.KindRefresh)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResultDTO{
		Token:        access,
		RefreshToken: refresh,
		User:         toUserDTO(user, true),
	}, nil
}

// loadActiveUser 令牌有效不代表账号状态正常, 每次都重新加载
func (s *authServiceImpl) loadActiveUser(ctx context.Context, hexID string) (*model.User, error) {
	uid, ok := util.ParseObjectID(hexID)
	if !ok {
		return nil, ErrTokenInvalid
	}
	user, err := s.userRepo.GetUserById(ctx, uid)
	if err != nil {
		return nil, err
	}
	// 账号已不存在的令牌按无效处理
	if user == nil {
		return nil, ErrTokenInvalid
	}
	if user.IsBlocked() {
		return nil, ErrUserBlocked
	}
	return user, nil
}

func tokenError(err error) error {
	if errors.Is(err, security.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return ErrTokenInvalid
}
