package dto

import "time"

// UserDTO 用户
type UserDTO struct {
	ID        string     `json:"_id"`
	Username  string     `json:"username"`
	Email     string     `json:"email,omitempty"`
	Avatar    string     `json:"avatar"`
	Online    bool       `json:"online"`
	LastSeen  *time.Time `json:"lastSeen,omitempty"`
	Status    string     `json:"status,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// UpdateProfileDTO 修改资料, 缺省字段不修改
type UpdateProfileDTO struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=20"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Avatar   *string `json:"avatar" validate:"omitempty,url"`
}

// SearchUserDTO 按名称搜索
type SearchUserDTO struct {
	Name string `form:"name" binding:"required"`
}
