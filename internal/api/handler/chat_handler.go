package handler

import (
	"Chatter/internal/api/dto"
	"Chatter/internal/pkg/response"
	"Chatter/internal/service"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatSvc service.ChatService
}

func NewChatHandler(chatSvc service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatSvc: chatSvc,
	}
}

func (s *ChatHandler) GetMessages(c *gin.Context) {
	var query dto.MessagePageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	page, err := s.chatSvc.GetMessages(c.Request.Context(), c.Param("chatType"), currentUser(c).ID, &query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

func (s *ChatHandler) GetUnreadCount(c *gin.Context) {
	res, err := s.chatSvc.UnreadCount(c.Request.Context(), c.Param("chatType"), currentUser(c).ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *ChatHandler) DeleteMessage(c *gin.Context) {
	messageID := c.Param("messageId")
	if err := s.chatSvc.DeleteMessage(c.Request.Context(), currentUser(c).ID, messageID); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, response.Ok, "消息已删除", dto.DeleteMessageResultDTO{MessageID: messageID})
}

func (s *ChatHandler) EditMessage(c *gin.Context) {
	var editDTO dto.EditMessageDTO
	if err := c.ShouldBindJSON(&editDTO); err != nil {
		response.Error(c, service.ErrContentEmpty)
		return
	}
	msg, err := s.chatSvc.EditMessage(c.Request.Context(), currentUser(c), c.Param("messageId"), editDTO.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, response.Ok, "消息已编辑", msg)
}

func (s *ChatHandler) ListConversations(c *gin.Context) {
	convs, err := s.chatSvc.ListConversations(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, convs)
}
