/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-14 09:32:18
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-27 11:05:42
 * @FilePath: \go-imcore\models\errors.go
 * @Description: 即时通讯核心错误定义 - 基于errorx.BaseError模式
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package models

import (
	"github.com/kamalyes/go-toolbox/pkg/errorx"
)

// 错误类型定义，基于errorx.ErrorType
type ErrorType = errorx.ErrorType

// 即时通讯核心错误码常量定义
// 使用 82xxx 区间，避免与其他包冲突（IM = Instant Messaging）
const (
	// 连接和认证错误 (82000-82099)
	ErrTypeAuthFailed       ErrorType = 82001 // 认证失败 - 不可重试
	ErrTypeAlreadyConnected ErrorType = 82002 // 用户已存在连接 - 不可重试
	ErrTypeHeartbeatTimeout ErrorType = 82003 // 心跳超时 - 可重连
	ErrTypeSessionNotFound  ErrorType = 82004 // 会话未找到 - 不可重试
	ErrTypeSessionClosed    ErrorType = 82005 // 会话已关闭 - 不可重试
	ErrTypeCoreNotRunning   ErrorType = 82006 // 核心未运行 - 不可重试

	// 投递相关错误 (82100-82199)
	ErrTypeUnknownRecipient   ErrorType = 82101 // 接收方未注册 - 不可重试
	ErrTypeRateLimitExceeded  ErrorType = 82102 // 超过发送速率限制 - 可退避重试
	ErrTypeEmptyMessageBody   ErrorType = 82103 // 消息体为空 - 不可重试
	ErrTypeSendBufferFull     ErrorType = 82104 // 会话发送缓冲区已满 - 可重试
	ErrTypeInvalidMessageType ErrorType = 82105 // 无效的消息类型 - 不可重试

	// 订阅相关错误 (82200-82299)
	ErrTypeInvalidChannelKind ErrorType = 82201 // 无效的频道类型 - 不可重试
	ErrTypeAlreadySubscribed  ErrorType = 82202 // 重复订阅 - 不可重试

	// 仓库和存储错误 (82300-82399)
	ErrTypeRepositoryNotSet ErrorType = 82301 // 仓库未设置 - 不可重试
	ErrTypeMessageNotFound  ErrorType = 82302 // 消息未找到 - 不可重试
	ErrTypePersistFailed    ErrorType = 82303 // 消息持久化失败 - 可重试

	// 事件发布订阅错误 (82400-82499)
	ErrTypePubSubNotSet           ErrorType = 82401 // PubSub未设置 - 不可重试
	ErrTypePubSubPublishFailed    ErrorType = 82402 // 事件发布失败 - 可重试
	ErrTypeEventSerializeFailed   ErrorType = 82403 // 事件序列化失败 - 不可重试
	ErrTypeEventDeserializeFailed ErrorType = 82404 // 事件反序列化失败 - 不可重试

	// 客户端连接错误 (82500-82599)
	ErrTypeConnectionClosed  ErrorType = 82501 // 连接已关闭 - 可重连
	ErrTypeMessageBufferFull ErrorType = 82502 // 客户端发送缓冲区已满 - 可重试
	ErrTypeSendChannelFull   ErrorType = 82503 // 发送通道已满 - 可重试

	// 操作错误 (82900-82999)
	ErrTypeOperationTimeout ErrorType = 82901 // 操作超时 - 可重试
	ErrTypeShutdownTimeout  ErrorType = 82902 // 关闭超时 - 可重试
)

// init 初始化所有错误类型注册
// 注意：在运行多个测试包时，可能会看到 "ErrorType XXX is already registered" 的警告信息
// 这是正常现象，errorx包内部会忽略重复注册
func init() {
	// 注册连接和认证错误
	errorx.RegisterError(ErrTypeAuthFailed, "authentication failed")
	errorx.RegisterError(ErrTypeAlreadyConnected, "user already connected: %s")
	errorx.RegisterError(ErrTypeHeartbeatTimeout, "heartbeat timeout for session %s")
	errorx.RegisterError(ErrTypeSessionNotFound, "session not found: %s")
	errorx.RegisterError(ErrTypeSessionClosed, "session closed")
	errorx.RegisterError(ErrTypeCoreNotRunning, "core is not running")

	// 注册投递相关错误
	errorx.RegisterError(ErrTypeUnknownRecipient, "unknown recipient: %s")
	errorx.RegisterError(ErrTypeRateLimitExceeded, "rate limit exceeded")
	errorx.RegisterError(ErrTypeEmptyMessageBody, "message body is empty")
	errorx.RegisterError(ErrTypeSendBufferFull, "session send buffer is full")
	errorx.RegisterError(ErrTypeInvalidMessageType, "invalid message type: %s")

	// 注册订阅相关错误
	errorx.RegisterError(ErrTypeInvalidChannelKind, "invalid channel kind: %s")
	errorx.RegisterError(ErrTypeAlreadySubscribed, "already subscribed to channel %s")

	// 注册仓库和存储错误
	errorx.RegisterError(ErrTypeRepositoryNotSet, "repository is not set")
	errorx.RegisterError(ErrTypeMessageNotFound, "message not found: %s")
	errorx.RegisterError(ErrTypePersistFailed, "message persist failed")

	// 注册事件发布订阅错误
	errorx.RegisterError(ErrTypePubSubNotSet, "pubsub is not set")
	errorx.RegisterError(ErrTypePubSubPublishFailed, "pubsub publish failed")
	errorx.RegisterError(ErrTypeEventSerializeFailed, "event serialize failed")
	errorx.RegisterError(ErrTypeEventDeserializeFailed, "event deserialize failed")

	// 注册客户端连接错误
	errorx.RegisterError(ErrTypeConnectionClosed, "connection closed")
	errorx.RegisterError(ErrTypeMessageBufferFull, "message buffer is full")
	errorx.RegisterError(ErrTypeSendChannelFull, "send channel is full")

	// 注册操作错误
	errorx.RegisterError(ErrTypeOperationTimeout, "operation timeout")
	errorx.RegisterError(ErrTypeShutdownTimeout, "shutdown timeout")
}

// ============================================================================
// 错误变量定义
// ============================================================================

// 连接和认证错误变量
var (
	ErrAuthFailed       = errorx.NewError(ErrTypeAuthFailed)
	ErrSessionClosed    = errorx.NewError(ErrTypeSessionClosed)
	ErrCoreNotRunning   = errorx.NewError(ErrTypeCoreNotRunning)
	ErrShutdownTimeout  = errorx.NewError(ErrTypeShutdownTimeout)
	ErrOperationTimeout = errorx.NewError(ErrTypeOperationTimeout)
)

// 投递相关错误变量
var (
	ErrRateLimitExceeded = errorx.NewError(ErrTypeRateLimitExceeded)
	ErrEmptyMessageBody  = errorx.NewError(ErrTypeEmptyMessageBody)
	ErrSendBufferFull    = errorx.NewError(ErrTypeSendBufferFull)
	ErrRepositoryNotSet  = errorx.NewError(ErrTypeRepositoryNotSet)
	ErrPersistFailed     = errorx.NewError(ErrTypePersistFailed)
)

// 客户端连接错误变量
var (
	ErrConnectionClosed  = errorx.NewError(ErrTypeConnectionClosed)
	ErrMessageBufferFull = errorx.NewError(ErrTypeMessageBufferFull)
	ErrSendChannelFull   = errorx.NewError(ErrTypeSendChannelFull)
)

// 事件发布订阅错误变量
var (
	ErrPubSubNotSet           = errorx.NewError(ErrTypePubSubNotSet)
	ErrPubSubPublishFailed    = errorx.NewError(ErrTypePubSubPublishFailed)
	ErrEventSerializeFailed   = errorx.NewError(ErrTypeEventSerializeFailed)
	ErrEventDeserializeFailed = errorx.NewError(ErrTypeEventDeserializeFailed)
)

// IsRetryableError 判断错误是否可以重试
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errxErr, ok := err.(interface{ Type() ErrorType }); ok {
		return IsRetryableErrorType(errxErr.Type())
	}
	switch err {
	case ErrRateLimitExceeded, ErrSendBufferFull, ErrPersistFailed,
		ErrOperationTimeout, ErrShutdownTimeout:
		return true
	default:
		return false
	}
}

// IsRetryableErrorType 判断错误类型是否可以重试
func IsRetryableErrorType(errType ErrorType) bool {
	switch errType {
	case ErrTypeRateLimitExceeded, ErrTypeSendBufferFull,
		ErrTypePersistFailed, ErrTypeOperationTimeout,
		ErrTypeShutdownTimeout, ErrTypeHeartbeatTimeout:
		return true
	default:
		return false
	}
}

// ============================================================================
// 错误类型判断辅助函数
// ============================================================================

// hasErrorType 判断错误是否为指定的错误类型
func hasErrorType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}
	if errxErr, ok := err.(interface{ Type() ErrorType }); ok {
		return errxErr.Type() == errType
	}
	return false
}

// IsAuthError 判断是否为认证失败错误
func IsAuthError(err error) bool {
	return err == ErrAuthFailed || hasErrorType(err, ErrTypeAuthFailed)
}

// IsAlreadyConnectedError 判断是否为重复连接错误
func IsAlreadyConnectedError(err error) bool {
	return hasErrorType(err, ErrTypeAlreadyConnected)
}

// IsHeartbeatTimeoutError 判断是否为心跳超时错误
func IsHeartbeatTimeoutError(err error) bool {
	return hasErrorType(err, ErrTypeHeartbeatTimeout)
}

// IsUnknownRecipientError 判断是否为接收方未注册错误
func IsUnknownRecipientError(err error) bool {
	return hasErrorType(err, ErrTypeUnknownRecipient)
}

// IsInvalidMessageTypeError 判断是否为无效消息类型错误
func IsInvalidMessageTypeError(err error) bool {
	return hasErrorType(err, ErrTypeInvalidMessageType)
}

// IsRateLimitError 判断是否为速率限制错误
func IsRateLimitError(err error) bool {
	return err == ErrRateLimitExceeded || hasErrorType(err, ErrTypeRateLimitExceeded)
}

// IsSendBufferFullError 判断是否为发送缓冲区满错误
func IsSendBufferFullError(err error) bool {
	return err == ErrSendBufferFull || hasErrorType(err, ErrTypeSendBufferFull)
}
