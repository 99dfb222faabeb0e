package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserStatus 账号状态
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusBlocked   UserStatus = "blocked"
	UserStatusSuspended UserStatus = "suspended"
)

// User users 集合文档
type User struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Username             string             `bson:"username" json:"username"`
	Email                string             `bson:"email" json:"email"`
	Password             string             `bson:"password" json:"-"`
	Avatar               string             `bson:"avatar" json:"avatar"`
	Online               bool               `bson:"online" json:"online"`
	LastSeen             time.Time          `bson:"last_seen" json:"lastSeen"`
	Status               UserStatus         `bson:"status" json:"status"`
	FailedLoginAttempts  int                `bson:"failed_login_attempts" json:"-"`
	LastFailedLogin      *time.Time         `bson:"last_failed_login,omitempty" json:"-"`
	LastLogin            *time.Time         `bson:"last_login,omitempty" json:"-"`
	ResetPasswordToken   *string            `bson:"reset_password_token,omitempty" json:"-"`
	ResetPasswordExpires *time.Time         `bson:"reset_password_expires,omitempty" json:"-"`
	CreatedAt            time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt            time.Time          `bson:"updated_at" json:"updatedAt"`
}

func (u *User) IsBlocked() bool {
	return u.Status == UserStatusBlocked
}

// ProfileUpdate 资料修改, nil 字段不修改
type ProfileUpdate struct {
	Username *string
	Email    *string
	Avatar   *string
}

func (p ProfileUpdate) IsEmpty() bool {
	return p.Username == nil && p.Email == nil && p.Avatar == nil
}
