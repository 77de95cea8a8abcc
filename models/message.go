/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-14 10:36:21
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-28 09:47:33
 * @FilePath: \go-imcore\models\message.go
 * @Description: 私聊消息持久化模型 - 使用 GORM 数据库持久化
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package models

import (
	"time"

	"github.com/kamalyes/go-sqlbuilder"
	"gorm.io/gorm"
)

// 数据库查询常量
const (
	QueryMessageIDWhere   = "id = ?"
	QueryClientMsgIDWhere = "sender_id = ? AND client_msg_id = ?"
	QueryPendingWhere     = "recipient_id = ? AND delivered_at IS NULL"
	QueryUnreadFromWhere  = "recipient_id = ? AND sender_id = ? AND read_at IS NULL"
	OrderByCreatedAtAsc   = "created_at ASC"
	OrderByCreatedAtDesc  = "created_at DESC"
)

// Message 一对一私聊消息（GORM 模型）
// ID 为雪花算法生成的字符串，(sender_id, client_msg_id) 唯一索引承担幂等去重
type Message struct {
	ID          string            `gorm:"primaryKey;size:64;comment:消息ID,雪花算法生成" json:"id"`                                                               // 消息ID
	SenderID    string            `gorm:"column:sender_id;size:255;not null;index;uniqueIndex:uk_sender_client_msg;comment:发送者ID" json:"senderId"`        // 发送者ID
	RecipientID string            `gorm:"column:recipient_id;size:255;not null;index;comment:接收者ID" json:"recipientId"`                                   // 接收者ID
	Body        string            `gorm:"type:text;not null;comment:消息内容" json:"body"`                                                                    // 消息内容
	Type        MessageType       `gorm:"size:20;not null;default:'TEXT';comment:消息类型" json:"type"`                                                       // 消息类型
	ClientMsgID string            `gorm:"column:client_msg_id;size:128;not null;uniqueIndex:uk_sender_client_msg;comment:客户端消息ID,幂等去重" json:"clientMsgId"` // 客户端消息ID
	DeliveredAt *time.Time        `gorm:"index;comment:送达时间,NULL表示待投递" json:"deliveredAt"`                                                                // 送达时间
	ReadAt      *time.Time        `gorm:"comment:已读时间" json:"readAt"`                                                                                     // 已读时间
	Metadata    sqlbuilder.MapAny `gorm:"type:json;comment:扩展元数据,类型为JSON" json:"metadata"`                                                                // 扩展元数据
	CreatedAt   time.Time         `gorm:"index;comment:创建时间" json:"createdAt"`                                                                            // 创建时间
	UpdatedAt   time.Time         `gorm:"comment:最后更新时间" json:"updatedAt"`                                                                                // 最后更新时间
}

// TableName 指定表名
func (Message) TableName() string {
	return "im_messages"
}

// TableComment 表注释
func (Message) TableComment() string {
	return "私聊消息表-存储消息内容与投递已读状态"
}

// BeforeCreate GORM 钩子：创建前
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if m.Type == "" {
		m.Type = MessageTypeText
	}
	if m.Metadata == nil {
		m.Metadata = make(sqlbuilder.MapAny)
	}
	return nil
}

// Status 根据时间戳推导消息投递状态
func (m *Message) Status() MessageStatus {
	switch {
	case m.ReadAt != nil:
		return MessageStatusRead
	case m.DeliveredAt != nil:
		return MessageStatusDelivered
	default:
		return MessageStatusPending
	}
}

// IsPending 判断消息是否待投递
func (m *Message) IsPending() bool {
	return m.DeliveredAt == nil
}
