package handler

import (
	"Chatter/internal/api/dto"
	"Chatter/internal/pkg/consts"
	"Chatter/internal/pkg/response"
	"Chatter/internal/pkg/util"
	"Chatter/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const refreshCookieName = "refreshToken"

type AuthHandler struct {
	authSvc    service.AuthService
	userSvc    service.UserService
	refreshTTL time.Duration
	secure     bool
}

func NewAuthHandler(authSvc service.AuthService, userSvc service.UserService, refreshTTL time.Duration, secure bool) *AuthHandler {
	return &AuthHandler{
		authSvc:    authSvc,
		userSvc:    userSvc,
		refreshTTL: refreshTTL,
		secure:     secure,
	}
}

func (s *AuthHandler) Register(c *gin.Context) {
	var registerDTO dto.RegisterDTO
	if err := c.ShouldBindJSON(&registerDTO); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&registerDTO); err != nil {
		response.Fail(c, service.BadRequest, err.Error())
		return
	}
	res, err := s.authSvc.Register(c.Request.Context(), &registerDTO)
	if err != nil {
		response.Error(c, err)
		return
	}
	s.setRefreshCookie(c, res.RefreshToken)
	response.SuccessWithMessage(c, response.Created, "注册成功", res)
}

func (s *AuthHandler) Login(c *gin.Context) {
	var loginDTO dto.LoginDTO
	if err := c.ShouldBindJSON(&loginDTO); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&loginDTO); err != nil {
		response.Fail(c, service.BadRequest, err.Error())
		return
	}
	res, err := s.authSvc.Login(c.Request.Context(), &loginDTO)
	if err != nil {
		response.Error(c, err)
		return
	}
	s.setRefreshCookie(c, res.RefreshToken)
	response.SuccessWithMessage(c, response.Ok, "登录成功", res)
}

func (s *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, _ := c.Cookie(refreshCookieName)
	token, err := s.authSvc.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, map[string]string{
		"token": token,
	})
}

func (s *AuthHandler) Verify(c *gin.Context) {
	user := currentUser(c)
	profile, err := s.userSvc.GetProfile(c.Request.Context(), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.VerifyResultDTO{Valid: true, User: profile})
}

func (s *AuthHandler) Logout(c *gin.Context) {
	if err := s.authSvc.Logout(c.Request.Context(), c.GetString(consts.ContextToken)); err != nil {
		response.Error(c, err)
		return
	}
	s.clearRefreshCookie(c)
	response.SuccessWithMessage(c, response.Ok, "已退出登录", nil)
}

func (s *AuthHandler) ForgotPassword(c *gin.Context) {
	var forgotDTO dto.ForgotPasswordDTO
	if err := c.ShouldBindJSON(&forgotDTO); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&forgotDTO); err != nil {
		response.Fail(c, service.BadRequest, err.Error())
		return
	}
	res, err := s.authSvc.ForgotPassword(c.Request.Context(), forgotDTO.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, response.Ok, "如果该邮箱已注册, 将收到重置密码的说明", res)
}

func (s *AuthHandler) ResetPassword(c *gin.Context) {
	var resetDTO dto.ResetPasswordDTO
	if err := c.ShouldBindJSON(&resetDTO); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&resetDTO); err != nil {
		response.Fail(c, service.BadRequest, err.Error())
		return
	}
	if err := s.authSvc.ResetPassword(c.Request.Context(), &resetDTO); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, response.Ok, "密码已重置", nil)
}

func (s *AuthHandler) Profile(c *gin.Context) {
	profile, err := s.userSvc.GetProfile(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, profile)
}

// setRefreshCookie httpOnly + SameSite=Strict, 生产环境加 Secure
func (s *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, token, int(s.refreshTTL.Seconds()), "/", "", s.secure, true)
}

func (s *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, "", -1, "/", "", s.secure, true)
}
