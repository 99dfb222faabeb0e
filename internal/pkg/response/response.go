package response

import (
	"Chatter/internal/api/config"
	"Chatter/internal/api/dto"
	"Chatter/internal/service"
	"errors"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	Ok      = http.StatusOK
	Created = http.StatusCreated
)

// Success 成功返回封装
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, dto.Response{
		Code:    Ok,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 自定义提示与状态码
func SuccessWithMessage(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, dto.Response{
		Code:    status,
		Message: message,
		Data:    data,
	})
}

// Fail 失败返回封装, HTTP 状态码与 code 一致
func Fail(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, dto.Response{
		Code:    code,
		Message: message,
	})
}

// Error 处理错误
func Error(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		Fail(c, service.BadRequest, service.ErrParamInvalid.Error())
		return
	}

	var unmarshalTypeError *json.UnmarshalTypeError
	var syntaxError *json.SyntaxError
	if errors.As(err, &unmarshalTypeError) || errors.As(err, &syntaxError) {
		Fail(c, service.BadRequest, "Json错误")
		return
	}

	known, code, ok := service.Classify(err)
	if !ok {
		log.ErrorContext(c.Request.Context(), "unexpected error", "path", c.FullPath(), "err", err)
		body := dto.Response{
			Code:    service.InternalServerError,
			Message: service.UnExpectedError.Error(),
		}
		if !isProduction() {
			body.Error = err.Error()
		}
		c.AbortWithStatusJSON(service.InternalServerError, body)
		return
	}

	c.AbortWithStatusJSON(code, dto.Response{
		Code:      code,
		Message:   known.Error(),
		ErrorCode: service.ErrorCodeMap[known],
	})
}

// ErrorMessage 实时通道用的错误文案, 生产环境不暴露内部细节
func ErrorMessage(err error) (message string, details string) {
	if known, _, ok := service.Classify(err); ok {
		return known.Error(), ""
	}
	if isProduction() {
		return service.UnExpectedError.Error(), ""
	}
	return service.UnExpectedError.Error(), err.Error()
}

func isProduction() bool {
	return config.Cfg != nil && config.Cfg.Server.IsProduction()
}
