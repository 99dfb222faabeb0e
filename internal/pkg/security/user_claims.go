package security

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenKind 令牌用途, 不同用途互不通用
type TokenKind string

const (
	KindAccess        TokenKind = "access"
	KindRefresh       TokenKind = "refresh"
	KindPasswordReset TokenKind = "password-reset"
)

// UserClaims Token 中包含的业务信息
type UserClaims struct {
	UserID string    `json:"user_id"`
	Kind   TokenKind `json:"kind"`
	jwt.RegisteredClaims
}
