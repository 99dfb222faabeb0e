package handler

import (
	"Chatter/internal/api/dto"
	"Chatter/internal/pkg/consts"
	"Chatter/internal/pkg/response"
	"Chatter/internal/pkg/util"
	"Chatter/internal/service"
	log "log/slog"

	"github.com/gin-gonic/gin"
)

type MediaHandler struct {
	storage service.ObjectStorage
}

// NewMediaHandler storage 为 nil 时上传返回 503
func NewMediaHandler(storage service.ObjectStorage) *MediaHandler {
	return &MediaHandler{storage: storage}
}

func (s *MediaHandler) Upload(c *gin.Context) {
	if s.storage == nil {
		response.Error(c, service.ErrStorageUnavailable)
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if file.Size > consts.MaxUploadSize {
		response.Error(c, service.ErrFileTooLarge)
		return
	}

	reader, err := file.Open()
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	defer func() { _ = reader.Close() }()

	contentType, body, err := util.DetectContentType(reader)
	if err != nil {
		response.Error(c, err)
		return
	}
	msgType := util.MessageTypeFromMime(contentType)

	objectName := util.ObjectName("chat/"+msgType, file.Filename)
	url, err := s.storage.UploadFile(c.Request.Context(), objectName, body, file.Size, contentType)
	if err != nil {
		log.ErrorContext(c.Request.Context(), "MinIO upload failed", "err", err)
		response.Error(c, service.UnExpectedError)
		return
	}

	log.InfoContext(c.Request.Context(), "media upload success", "object", objectName, "type", contentType)
	response.Success(c, dto.MediaUploadDTO{
		URL:         url,
		Type:        msgType,
		ContentType: contentType,
		Size:        file.Size,
	})
}
