/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-14 09:30:15
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-21 10:12:48
 * @FilePath: \go-imcore\models\types.go
 * @Description: 基础类型定义
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package models

// IDGenerator ID生成器接口
// 用于生成消息ID、请求ID等唯一标识符
type IDGenerator interface {
	GenerateTraceID() string
	GenerateSpanID() string
	GenerateRequestID() string
	GenerateCorrelationID() string
}

// CoreStats 核心运行时统计信息
type CoreStats struct {
	// 会话统计
	TotalSessions int `json:"total_sessions"` // 当前会话总数
	OnlineUsers   int `json:"online_users"`   // 本节点在线用户数

	// 消息统计
	MessagesSent      int64 `json:"messages_sent"`      // 已受理消息数
	MessagesDelivered int64 `json:"messages_delivered"` // 已送达消息数

	// 其他统计
	Uptime int64 `json:"uptime"` // 运行时间(秒)
}
