/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-15 14:08:31
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-07-15 14:08:31
 * @FilePath: \go-imcore\repository\aliases.go
 * @Description: 类型别名 - 为 models 包中的类型创建别名，便于在 repository 层使用
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package repository

import "github.com/kamalyes/go-imcore/models"

// 类型别名 - 消息与会话相关
type (
	// Session 会话连接信息
	Session = models.Session

	// Message 私聊消息
	Message = models.Message

	// MessageType 消息类型
	MessageType = models.MessageType

	// MessageStatus 消息投递状态
	MessageStatus = models.MessageStatus

	// PresenceStatus 在线状态
	PresenceStatus = models.PresenceStatus
)

// 常量别名 - 消息状态
const (
	MessageStatusPending   = models.MessageStatusPending
	MessageStatusDelivered = models.MessageStatusDelivered
	MessageStatusRead      = models.MessageStatusRead
)

// 常量别名 - 查询相关
const (
	QueryMessageIDWhere   = models.QueryMessageIDWhere
	QueryClientMsgIDWhere = models.QueryClientMsgIDWhere
	QueryPendingWhere     = models.QueryPendingWhere
	QueryUnreadFromWhere  = models.QueryUnreadFromWhere
	OrderByCreatedAtAsc   = models.OrderByCreatedAtAsc
	OrderByCreatedAtDesc  = models.OrderByCreatedAtDesc
)
