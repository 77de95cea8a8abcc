/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-14 09:40:31
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-25 16:12:09
 * @FilePath: \go-imcore\models\enums.go
 * @Description: 枚举类型定义
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package models

import "strings"

// MessageType 消息内容类型
type MessageType string

const (
	MessageTypeText  MessageType = "TEXT"  // 文本消息
	MessageTypeImage MessageType = "IMAGE" // 图片消息
	MessageTypeFile  MessageType = "FILE"  // 文件消息
)

// String 实现Stringer接口
func (t MessageType) String() string {
	return string(t)
}

// IsValid 检查消息类型是否有效
func (t MessageType) IsValid() bool {
	return MessageTypeValidator.IsValid(t)
}

// Normalize 将线上传入的消息类型统一为大写枚举值
// Web 端历史版本发送小写 "text"/"image"/"file"
func (t MessageType) Normalize() MessageType {
	return MessageType(strings.ToUpper(string(t)))
}

// PresenceStatus 在线状态
type PresenceStatus string

const (
	PresenceStatusOnline  PresenceStatus = "ONLINE"  // 在线
	PresenceStatusOffline PresenceStatus = "OFFLINE" // 离线
)

// String 实现Stringer接口
func (s PresenceStatus) String() string {
	return string(s)
}

// IsValid 检查在线状态是否有效
func (s PresenceStatus) IsValid() bool {
	return PresenceStatusValidator.IsValid(s)
}

// ChannelKind 订阅频道类型
type ChannelKind string

const (
	ChannelKindMessages ChannelKind = "messages" // 私聊消息频道
	ChannelKindPresence ChannelKind = "presence" // 好友在线状态频道
	ChannelKindUnread   ChannelKind = "unread"   // 未读计数频道
)

// String 实现Stringer接口
func (k ChannelKind) String() string {
	return string(k)
}

// IsValid 检查频道类型是否有效
func (k ChannelKind) IsValid() bool {
	return ChannelKindValidator.IsValid(k)
}

// AllChannelKinds 获取所有频道类型
func AllChannelKinds() []ChannelKind {
	return []ChannelKind{
		ChannelKindMessages,
		ChannelKindPresence,
		ChannelKindUnread,
	}
}

// MessageStatus 消息投递状态
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"   // 已持久化待投递
	MessageStatusDelivered MessageStatus = "delivered" // 已送达
	MessageStatusRead      MessageStatus = "read"      // 已读
)

// String 实现Stringer接口
func (s MessageStatus) String() string {
	return string(s)
}

// IsValid 检查消息状态是否有效
func (s MessageStatus) IsValid() bool {
	return MessageStatusValidator.IsValid(s)
}

// SessionPolicy 同一用户重复连接时的处理策略
type SessionPolicy string

const (
	SessionPolicyMulti  SessionPolicy = "multi"  // 允许多会话并存（多端登录）
	SessionPolicyReject SessionPolicy = "reject" // 拒绝新连接
)

// String 实现Stringer接口
func (p SessionPolicy) String() string {
	return string(p)
}

// IsValid 检查会话策略是否有效
func (p SessionPolicy) IsValid() bool {
	return SessionPolicyValidator.IsValid(p)
}

// DisconnectReason 断开连接原因
type DisconnectReason string

const (
	DisconnectReasonReadError        DisconnectReason = "read_error"        // 读取错误
	DisconnectReasonWriteError       DisconnectReason = "write_error"       // 写入错误
	DisconnectReasonHeartbeatTimeout DisconnectReason = "heartbeat_timeout" // 心跳超时
	DisconnectReasonClientRequest    DisconnectReason = "client_request"    // 客户端主动断开
	DisconnectReasonServerShutdown   DisconnectReason = "server_shutdown"   // 服务器关闭
	DisconnectReasonUnknown          DisconnectReason = "unknown"           // 未知原因
)

// String 实现Stringer接口
func (r DisconnectReason) String() string {
	return string(r)
}

// IsValid 检查断开原因是否有效
func (r DisconnectReason) IsValid() bool {
	return DisconnectReasonValidator.IsValid(r)
}

// ConnectionStatus 客户端连接状态
type ConnectionStatus string

const (
	ConnectionStatusConnecting   ConnectionStatus = "connecting"   // 连接中
	ConnectionStatusConnected    ConnectionStatus = "connected"    // 已连接
	ConnectionStatusDisconnected ConnectionStatus = "disconnected" // 已断开
	ConnectionStatusReconnecting ConnectionStatus = "reconnecting" // 重连中
	ConnectionStatusError        ConnectionStatus = "error"        // 连接错误
)

// String 实现Stringer接口
func (s ConnectionStatus) String() string {
	return string(s)
}

// IsValid 检查连接状态是否有效
func (s ConnectionStatus) IsValid() bool {
	return ConnectionStatusValidator.IsValid(s)
}
