package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	NotFound            = 404
	InternalServerError = 500
)

var (
	ErrParamInvalid            = errors.New("参数错误")
	ErrReceiverRequired        = errors.New("接收者不能为空")
	ErrMessageEmpty            = errors.New("消息内容不能为空")
	ErrMessageToSelf           = errors.New("不能给自己发送消息")
	ErrUserNotFound            = errors.New("用户不存在")
	ErrUserExist               = errors.New("用户已存在")
	ErrUserUsernameExist       = errors.New("用户名已存在")
	ErrPasswordIncorrect       = errors.New("密码错误")
	ErrMissingLoginCredentials = errors.New("缺少登录凭据")
	ErrConversationNotFound    = errors.New("会话不存在")
	ErrNotConversationMember   = errors.New("不是会话成员")
	ErrMessageNotFound         = errors.New("消息不存在")
	ErrNotMessageReceiver      = errors.New("只有接收者可以标记已读")
	ErrNotMessageSender        = errors.New("只有发送者可以撤回消息")
	ErrFileNotSupported        = errors.New("不支持的文件类型")
	ErrFileNotExist            = errors.New("文件不存在")
	ErrMediaNotUploaded        = errors.New("附件未上传或已过期")
	UnauthorizedError          = errors.New("权限不足")
	UnExpectedError            = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:            BadRequest,
	ErrReceiverRequired:        BadRequest,
	ErrMessageEmpty:            BadRequest,
	ErrMessageToSelf:           BadRequest,
	ErrUserNotFound:            NotFound,
	ErrUserExist:               BadRequest,
	ErrUserUsernameExist:       BadRequest,
	ErrPasswordIncorrect:       Unauthorized,
	ErrMissingLoginCredentials: Unauthorized,
	ErrConversationNotFound:    NotFound,
	ErrNotConversationMember:   Unauthorized,
	ErrMessageNotFound:         NotFound,
	ErrNotMessageReceiver:      Unauthorized,
	ErrNotMessageSender:        Unauthorized,
	ErrFileNotSupported:        BadRequest,
	ErrFileNotExist:            NotFound,
	ErrMediaNotUploaded:        BadRequest,
	UnauthorizedError:          Unauthorized,
	UnExpectedError:            InternalServerError,
}
