/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-01-05 00:00:00
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-01-19 22:14:36
 * @FilePath: \go-imcore\protocol\command.go
 * @Description: 客户端上行指令协议
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */

package protocol

import (
	"encoding/json"

	"github.com/kamalyes/go-imcore/models"
)

// CommandAction 客户端指令类型
type CommandAction string

const (
	ActionSend        CommandAction = "send"        // 发送消息
	ActionHeartbeat   CommandAction = "heartbeat"   // 心跳
	ActionMarkRead    CommandAction = "mark_read"   // 标记会话已读
	ActionSetActive   CommandAction = "set_active"  // 设置当前查看的会话对端
	ActionSubscribe   CommandAction = "subscribe"   // 订阅频道
	ActionUnsubscribe CommandAction = "unsubscribe" // 取消订阅频道
)

// ClientCommand 客户端上行指令
type ClientCommand struct {
	Action      CommandAction      `json:"action"`                 // 指令类型
	RecipientID string             `json:"recipient_id,omitempty"` // send: 接收方用户ID
	ClientMsgID string             `json:"client_msg_id,omitempty"` // send: 客户端消息ID（幂等去重键）
	Body        string             `json:"body,omitempty"`         // send: 消息体
	Type        models.MessageType `json:"type,omitempty"`         // send: 消息类型
	PeerID      string             `json:"peer_id,omitempty"`      // mark_read/set_active: 会话对端用户ID
	Kind        models.ChannelKind `json:"kind,omitempty"`         // subscribe/unsubscribe: 频道类型
}

// DecodeClientCommand 解析客户端上行指令
// 消息类型统一归一为大写枚举值，兼容小写的历史线上格式
func DecodeClientCommand(data []byte) (*ClientCommand, error) {
	var cmd ClientCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, err
	}
	if cmd.Type != "" {
		cmd.Type = cmd.Type.Normalize()
	}
	return &cmd, nil
}

// Encode 序列化指令
func (c *ClientCommand) Encode() ([]byte, error) {
	return json.Marshal(c)
}
