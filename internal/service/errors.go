package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	TooManyRequests     = 429
	InternalServerError = 500
	ServiceUnavailable  = 503
)

// 令牌错误的机器可读码, 客户端据此决定刷新还是重新登录
const (
	ErrorCodeTokenExpired = "TOKEN_EXPIRED"
	ErrorCodeInvalidToken = "INVALID_TOKEN"
)

var (
	ErrParamInvalid        = errors.New("参数错误")
	ErrUserNotFound        = errors.New("用户不存在")
	ErrUserBlocked         = errors.New("账号已被封禁")
	ErrUserExist           = errors.New("用户已存在")
	ErrUsernameExist       = errors.New("用户名已存在")
	ErrEmailExist          = errors.New("邮箱已注册")
	ErrInvalidCredentials  = errors.New("邮箱或密码错误")
	ErrNoProfileChanges    = errors.New("没有需要更新的字段")
	ErrTokenMissing        = errors.New("Token 缺失或格式错误")
	ErrTokenExpired        = errors.New("Token 已过期")
	ErrTokenInvalid        = errors.New("Token 无效")
	ErrTokenRevoked        = errors.New("Token 已注销")
	ErrRefreshTokenMissing = errors.New("缺少 refresh token")
	ErrResetTokenInvalid   = errors.New("重置令牌无效或已过期")
	ErrChatTypeInvalid     = errors.New("chatType 无效, 可选 global, group, private")
	ErrChatTypeRequired    = errors.New("chatType 必填")
	ErrMessageTypeInvalid  = errors.New("消息类型无效")
	ErrContentEmpty        = errors.New("消息内容不能为空")
	ErrMessageNotFound     = errors.New("消息不存在")
	ErrNotMessageSender    = errors.New("只能操作自己发送的消息")
	ErrMessageNotEditable  = errors.New("只能编辑文本消息")
	ErrFileNotSupported    = errors.New("不支持的文件类型")
	ErrFileTooLarge        = errors.New("文件过大")
	ErrStorageUnavailable  = errors.New("文件存储未启用")
	ErrRateLimited         = errors.New("请求过于频繁, 请稍后重试")
	UnauthorizedError      = errors.New("权限不足")
	UnExpectedError        = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:        BadRequest,
	ErrUserNotFound:        NotFound,
	ErrUserBlocked:         Forbidden,
	ErrUserExist:           BadRequest,
	ErrUsernameExist:       BadRequest,
	ErrEmailExist:          BadRequest,
	ErrInvalidCredentials:  Unauthorized,
	ErrNoProfileChanges:    BadRequest,
	ErrTokenMissing:        Unauthorized,
	ErrTokenExpired:        Unauthorized,
	ErrTokenInvalid:        Unauthorized,
	ErrTokenRevoked:        Unauthorized,
	ErrRefreshTokenMissing: Unauthorized,
	ErrResetTokenInvalid:   BadRequest,
	ErrChatTypeInvalid:     BadRequest,
	ErrChatTypeRequired:    BadRequest,
	ErrMessageTypeInvalid:  BadRequest,
	ErrContentEmpty:        BadRequest,
	ErrMessageNotFound:     NotFound,
	ErrNotMessageSender:    Forbidden,
	ErrMessageNotEditable:  BadRequest,
	ErrFileNotSupported:    BadRequest,
	ErrFileTooLarge:        BadRequest,
	ErrStorageUnavailable:  ServiceUnavailable,
	ErrRateLimited:         TooManyRequests,
	UnauthorizedError:      Forbidden,
	UnExpectedError:        InternalServerError,
}

var ErrorCodeMap = map[error]string{
	ErrTokenMissing: ErrorCodeInvalidToken,
	ErrTokenExpired: ErrorCodeTokenExpired,
	ErrTokenInvalid: ErrorCodeInvalidToken,
	ErrTokenRevoked: ErrorCodeInvalidToken,
}

// Classify 返回 err 链上第一个已登记的业务错误
func Classify(err error) (error, int, bool) {
	for known, code := range ErrorMap {
		if errors.Is(err, known) {
			return known, code, true
		}
	}
	return nil, InternalServerError, false
}
