/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-14 09:44:02
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-07-14 09:44:02
 * @FilePath: \go-imcore\models\validator.go
 * @Description: 枚举验证器集中管理
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package models

import (
	"github.com/kamalyes/go-toolbox/pkg/types"
)

// 全局枚举验证器实例
var (
	// MessageTypeValidator 消息类型验证器
	MessageTypeValidator = types.NewEnumValidator(
		MessageTypeText,
		MessageTypeImage,
		MessageTypeFile,
	)

	// PresenceStatusValidator 在线状态验证器
	PresenceStatusValidator = types.NewEnumValidator(
		PresenceStatusOnline,
		PresenceStatusOffline,
	)

	// ChannelKindValidator 频道类型验证器
	ChannelKindValidator = types.NewEnumValidator(
		ChannelKindMessages,
		ChannelKindPresence,
		ChannelKindUnread,
	)

	// MessageStatusValidator 消息状态验证器
	MessageStatusValidator = types.NewEnumValidator(
		MessageStatusPending,
		MessageStatusDelivered,
		MessageStatusRead,
	)

	// SessionPolicyValidator 会话策略验证器
	SessionPolicyValidator = types.NewEnumValidator(
		SessionPolicyMulti,
		SessionPolicyReject,
	)

	// ConnectionStatusValidator 客户端连接状态验证器
	ConnectionStatusValidator = types.NewEnumValidator(
		ConnectionStatusConnecting,
		ConnectionStatusConnected,
		ConnectionStatusDisconnected,
		ConnectionStatusReconnecting,
		ConnectionStatusError,
	)

	// DisconnectReasonValidator 断开原因验证器
	DisconnectReasonValidator = types.NewEnumValidator(
		DisconnectReasonReadError,
		DisconnectReasonWriteError,
		DisconnectReasonHeartbeatTimeout,
		DisconnectReasonClientRequest,
		DisconnectReasonServerShutdown,
		DisconnectReasonUnknown,
	)
)
