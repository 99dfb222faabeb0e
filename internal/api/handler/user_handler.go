package handler

import (
	"Chatter/internal/api/dto"
	"Chatter/internal/pkg/consts"
	"Chatter/internal/pkg/response"
	"Chatter/internal/pkg/util"
	"Chatter/internal/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userSvc service.UserService
}

func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{
		userSvc: userSvc,
	}
}

func (s *UserHandler) SearchUsers(c *gin.Context) {
	var searchDTO dto.SearchUserDTO
	if err := c.ShouldBindQuery(&searchDTO); err != nil {
		response.Error(c, err)
		return
	}
	users, err := s.userSvc.SearchUsers(c.Request.Context(), searchDTO.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, users)
}

func (s *UserHandler) GetProfile(c *gin.Context) {
	profile, err := s.userSvc.GetProfile(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, profile)
}

func (s *UserHandler) UpdateProfile(c *gin.Context) {
	var updateDTO dto.UpdateProfileDTO
	if err := c.ShouldBindJSON(&updateDTO); err != nil {
		response.Error(c, err)
		return
	}
	if updateDTO.Username == nil && updateDTO.Email == nil && updateDTO.Avatar == nil {
		response.Error(c, service.ErrNoProfileChanges)
		return
	}
	if err := util.ValidateDTO(&updateDTO); err != nil {
		response.Fail(c, service.BadRequest, err.Error())
		return
	}
	profile, err := s.userSvc.UpdateProfile(c.Request.Context(), currentUser(c).ID, &updateDTO)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, response.Ok, "资料已更新", profile)
}

func (s *UserHandler) UploadAvatar(c *gin.Context) {
	file, err := c.FormFile("avatar")
	if err != nil || file == nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if file.Size > consts.MaxUploadSize {
		response.Error(c, service.ErrFileTooLarge)
		return
	}

	reader, err := file.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer func() {
		_ = reader.Close()
	}()

	profile, err := s.userSvc.UploadAvatar(c.Request.Context(), currentUser(c).ID, reader)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, profile)
}

func (s *UserHandler) GetUser(c *gin.Context) {
	id, ok := util.ParseObjectID(c.Param("userId"))
	if !ok {
		response.Error(c, service.ErrUserNotFound)
		return
	}
	profile, err := s.userSvc.GetPublicProfile(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, profile)
}

func (s *UserHandler) ListUsers(c *gin.Context) {
	users, err := s.userSvc.ListUsers(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, users)
}
