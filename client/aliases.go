/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-01-05 00:00:00
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-02-14 10:15:02
 * @FilePath: \go-imcore\client\aliases.go
 * @Description: Client 类型别名 - 为 models 和 protocol 包中的类型创建别名，便于在 client 层使用
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */

package client

import (
	"github.com/kamalyes/go-imcore/models"
	"github.com/kamalyes/go-imcore/protocol"
)

// ============================================================================
// 类型别名 - 从 models 和 protocol 包导入
// ============================================================================

type (
	ConnectionStatus = models.ConnectionStatus
	ChannelKind      = models.ChannelKind
	MessageType      = models.MessageType
	MessageEvent     = models.MessageEvent
	PresenceEvent    = models.PresenceEvent
	UnreadCountEvent = models.UnreadCountEvent
	EventFrame       = protocol.EventFrame
)

// 常量别名
const (
	ConnectionStatusConnecting   = models.ConnectionStatusConnecting
	ConnectionStatusConnected    = models.ConnectionStatusConnected
	ConnectionStatusDisconnected = models.ConnectionStatusDisconnected
	ConnectionStatusReconnecting = models.ConnectionStatusReconnecting
	ConnectionStatusError        = models.ConnectionStatusError

	ChannelKindMessages = models.ChannelKindMessages
	ChannelKindPresence = models.ChannelKindPresence
	ChannelKindUnread   = models.ChannelKindUnread
)

// 错误别名
var (
	ErrConnectionClosed  = models.ErrConnectionClosed
	ErrMessageBufferFull = models.ErrMessageBufferFull
	ErrSendChannelFull   = models.ErrSendChannelFull
)
