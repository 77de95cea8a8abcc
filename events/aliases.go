/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-16 09:10:22
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-07-16 09:10:22
 * @FilePath: \go-imcore\events\aliases.go
 * @Description: 事件类型定义
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */

package events

import (
	"github.com/kamalyes/go-imcore/models"
)

// 错误类型别名（从 models 包导入）
type ErrorType = models.ErrorType

const (
	ErrTypePubSubNotSet           = models.ErrTypePubSubNotSet
	ErrTypePubSubPublishFailed    = models.ErrTypePubSubPublishFailed
	ErrTypeEventSerializeFailed   = models.ErrTypeEventSerializeFailed
	ErrTypeEventDeserializeFailed = models.ErrTypeEventDeserializeFailed
)

// 错误变量别名（从 models 包导入）
var (
	ErrPubSubNotSet           = models.ErrPubSubNotSet
	ErrPubSubPublishFailed    = models.ErrPubSubPublishFailed
	ErrEventSerializeFailed   = models.ErrEventSerializeFailed
	ErrEventDeserializeFailed = models.ErrEventDeserializeFailed
)

// 事件类型常量
const (
	// EventPresenceChanged 在线状态变更事件
	EventPresenceChanged = models.EventPresenceChanged
	// EventMessageDelivered 私聊消息投递事件
	EventMessageDelivered = models.EventMessageDelivered
	// EventUnreadChanged 未读计数变更事件
	EventUnreadChanged = models.EventUnreadChanged
)

// PresenceStatus 在线状态
type PresenceStatus = models.PresenceStatus

const (
	// PresenceStatusOnline 在线
	PresenceStatusOnline = models.PresenceStatusOnline
	// PresenceStatusOffline 离线
	PresenceStatusOffline = models.PresenceStatusOffline
)

// PresenceEvent 在线状态事件
type PresenceEvent = models.PresenceEvent

// UnreadCountEvent 未读计数事件
type UnreadCountEvent = models.UnreadCountEvent

// MessageEvent 私聊消息事件
type MessageEvent = models.MessageEvent

// PresenceEventHandler 在线状态事件处理器
type PresenceEventHandler = models.PresenceEventHandler

// UnreadCountEventHandler 未读计数事件处理器
type UnreadCountEventHandler = models.UnreadCountEventHandler

// MessageEventHandler 私聊消息事件处理器
type MessageEventHandler = models.MessageEventHandler
