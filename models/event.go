/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-14 10:52:40
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-28 10:04:17
 * @FilePath: \go-imcore\models\event.go
 * @Description: 频道事件载荷定义
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package models

import (
	"time"
)

// 事件类型常量
const (
	// EventPresenceChanged 在线状态变更事件（跨节点传播）
	EventPresenceChanged = "presence.changed"
	// EventMessageDelivered 私聊消息投递事件（跨节点传播）
	EventMessageDelivered = "message.delivered"
	// EventUnreadChanged 未读计数变更事件（跨节点传播）
	EventUnreadChanged = "unread.changed"
)

// PresenceEvent 在线状态事件，推送到 presence 频道
type PresenceEvent struct {
	UserID    string         `json:"userId"`
	Status    PresenceStatus `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	NodeID    string         `json:"nodeId,omitempty"`
}

// UnreadCountEvent 未读计数事件，推送到 unread 频道
// Count 为 owner 对 peer 会话的最新未读总数
type UnreadCountEvent struct {
	OwnerID   string    `json:"ownerId"`
	PeerID    string    `json:"peerId"`
	Count     int64     `json:"count"`
	Timestamp time.Time `json:"timestamp"`
	NodeID    string    `json:"nodeId,omitempty"`
}

// MessageEvent 私聊消息事件，推送到 messages 频道
// Echo 为真时表示发送方其他端的回显副本
type MessageEvent struct {
	Message *Message `json:"message"`
	Echo    bool     `json:"echo,omitempty"`
	NodeID  string   `json:"nodeId,omitempty"`
}

// PresenceEventHandler 在线状态事件处理器
type PresenceEventHandler func(event *PresenceEvent) error

// UnreadCountEventHandler 未读计数事件处理器
type UnreadCountEventHandler func(event *UnreadCountEvent) error

// MessageEventHandler 私聊消息事件处理器
type MessageEventHandler func(event *MessageEvent) error
