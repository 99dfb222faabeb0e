package security

import (
	"Chatter/internal/api/config"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenUnknown 签名校验失败或用途不匹配
	ErrTokenUnknown = errors.New("token invalid")
)

// JWTManager 负责签发与校验三类令牌
type JWTManager struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	ttl           map[TokenKind]time.Duration
}

func NewJWTManager(cfg config.JWTConfig) *JWTManager {
	return &JWTManager{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		issuer:        cfg.Issuer,
		ttl: map[TokenKind]time.Duration{
			KindAccess:        cfg.AccessTTL,
			KindRefresh:       cfg.RefreshTTL,
			KindPasswordReset: cfg.ResetTTL,
		},
	}
}

// secret refresh 令牌使用独立密钥, 重置令牌与 access 共用
func (m *JWTManager) secret(kind TokenKind) []byte {
	if kind == KindRefresh {
		return m.refreshSecret
	}
	return m.accessSecret
}

func (m *JWTManager) TTL(kind TokenKind) time.Duration {
	return m.ttl[kind]
}

// GenerateToken 生成一个新的 JWT Token
func (m *JWTManager) GenerateToken(userID string, kind TokenKind) (string, error) {
	now := time.Now()
	claims := &UserClaims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl[kind])),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret(kind))
	if err != nil {
		return "", fmt.Errorf("签名 Token 失败: %w", err)
	}
	return tokenString, nil
}

// ValidateToken 验证 Token 字符串并解析出 Claims, 过期与格式错误分别返回
func (m *JWTManager) ValidateToken(tokenString string, kind TokenKind) (*UserClaims, error) {
	claims := &UserClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非预期的签名方法: %v", token.Header["alg"])
		}
		return m.secret(kind), nil
	}, jwt.WithIssuer(m.issuer))

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrTokenMalformed
	default:
		return nil, ErrTokenUnknown
	}

	if !token.Valid || claims.Kind != kind || claims.UserID == "" {
		return nil, ErrTokenUnknown
	}
	return claims, nil
}

// ExtractSignature 从 Token 字符串中提取签名
func ExtractSignature(tokenString string) (string, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 || parts[2] == "" {
		return "", ErrTokenMalformed
	}
	return parts[2], nil
}

// RemainingTTL 令牌剩余有效期
func RemainingTTL(claims *UserClaims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	return time.Until(claims.ExpiresAt.Time)
}
