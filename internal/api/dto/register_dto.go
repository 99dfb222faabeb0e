package dto

// RegisterDTO 注册
type RegisterDTO struct {
	Username string `json:"username" binding:"required" validate:"username"`
	Email    string `json:"email" binding:"required" validate:"email"`
	Password string `json:"password" binding:"required" validate:"password"`
}

// LoginDTO 邮箱登录
type LoginDTO struct {
	Email    string `json:"email" binding:"required" validate:"email"`
	Password string `json:"password" binding:"required"`
}

// ForgotPasswordDTO 申请重置密码
type ForgotPasswordDTO struct {
	Email string `json:"email" binding:"required" validate:"email"`
}

// ResetPasswordDTO 凭重置令牌设置新密码
type ResetPasswordDTO struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required" validate:"password"`
}

// AuthResultDTO 登录/注册结果, refresh token 只写 cookie
type AuthResultDTO struct {
	Token        string   `json:"token"`
	User         *UserDTO `json:"user"`
	RefreshToken string   `json:"-"`
}

// ForgotPasswordResultDTO ResetToken 仅开发模式返回
type ForgotPasswordResultDTO struct {
	ResetToken string `json:"resetToken,omitempty"`
}

// VerifyResultDTO 校验 access token
type VerifyResultDTO struct {
	Valid bool     `json:"valid"`
	User  *UserDTO `json:"user"`
}
