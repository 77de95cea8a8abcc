/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-15 11:18:06
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-14 09:26:58
 * @FilePath: \go-imcore\protocol\envelope.go
 * @Description: 频道事件帧编解码
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package protocol

import (
	"encoding/json"
	"time"

	"github.com/kamalyes/go-imcore/models"
)

// EventFrame 推送到会话的统一事件帧
// Kind 标识所属频道，Payload 为该频道的事件载荷
type EventFrame struct {
	Kind      models.ChannelKind `json:"kind"`      // 频道类型
	Payload   json.RawMessage    `json:"payload"`   // 事件载荷
	Timestamp time.Time          `json:"timestamp"` // 帧生成时间
}

// NewEventFrame 构造事件帧，载荷序列化失败返回错误
func NewEventFrame(kind models.ChannelKind, payload interface{}) (*EventFrame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &EventFrame{
		Kind:      kind,
		Payload:   data,
		Timestamp: time.Now(),
	}, nil
}

// NewMessageFrame 构造私聊消息帧
func NewMessageFrame(event *models.MessageEvent) (*EventFrame, error) {
	return NewEventFrame(models.ChannelKindMessages, event)
}

// NewPresenceFrame 构造在线状态帧
func NewPresenceFrame(event *models.PresenceEvent) (*EventFrame, error) {
	return NewEventFrame(models.ChannelKindPresence, event)
}

// NewUnreadFrame 构造未读计数帧
func NewUnreadFrame(event *models.UnreadCountEvent) (*EventFrame, error) {
	return NewEventFrame(models.ChannelKindUnread, event)
}

// Encode 序列化事件帧
func (f *EventFrame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

// DecodeEventFrame 反序列化事件帧
func DecodeEventFrame(data []byte) (*EventFrame, error) {
	var frame EventFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, err
	}
	return &frame, nil
}

// DecodeMessageEvent 解出私聊消息载荷
func (f *EventFrame) DecodeMessageEvent() (*models.MessageEvent, error) {
	var event models.MessageEvent
	if err := json.Unmarshal(f.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// DecodePresenceEvent 解出在线状态载荷
func (f *EventFrame) DecodePresenceEvent() (*models.PresenceEvent, error) {
	var event models.PresenceEvent
	if err := json.Unmarshal(f.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// DecodeUnreadEvent 解出未读计数载荷
func (f *EventFrame) DecodeUnreadEvent() (*models.UnreadCountEvent, error) {
	var event models.UnreadCountEvent
	if err := json.Unmarshal(f.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
