/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-15 14:40:09
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-28 11:19:34
 * @FilePath: \go-imcore\repository\message_repository.go
 * @Description: 私聊消息仓库 - 使用 GORM 数据库持久化，附带内存实现
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
)

// MessageRepository 私聊消息仓库接口
type MessageRepository interface {
	// Create 持久化消息
	Create(ctx context.Context, msg *Message) error

	// FindByID 根据消息ID查找
	FindByID(ctx context.Context, id string) (*Message, error)

	// FindByClientMsgID 根据 (发送者, 客户端消息ID) 查找，幂等去重用
	// 未找到返回 (nil, nil)
	FindByClientMsgID(ctx context.Context, senderID, clientMsgID string) (*Message, error)

	// FindPending 查找某接收者的待投递消息，按创建时间升序
	FindPending(ctx context.Context, recipientID string, limit int) ([]*Message, error)

	// MarkDelivered 标记一批消息已送达
	MarkDelivered(ctx context.Context, ids []string, at time.Time) error

	// MarkConversationRead 标记 peer 发给 owner 的未读消息为已读，返回影响行数
	MarkConversationRead(ctx context.Context, ownerID, peerID string, at time.Time) (int64, error)

	// CountUnread 统计 peer 发给 owner 的未读消息数
	CountUnread(ctx context.Context, ownerID, peerID string) (int64, error)

	// DeleteOld 清理旧消息
	DeleteOld(ctx context.Context, before time.Time) (int64, error)
}

// ============================================================================
// GORM 实现
// ============================================================================

// MessageGormRepository GORM 实现
type MessageGormRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建私聊消息仓库
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &MessageGormRepository{db: db}
}

// GetDB 获取底层 GORM DB（用于复杂查询）
func (r *MessageGormRepository) GetDB() *gorm.DB {
	return r.db
}

// Create 持久化消息
func (r *MessageGormRepository) Create(ctx context.Context, msg *Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// FindByID 根据消息ID查找
func (r *MessageGormRepository) FindByID(ctx context.Context, id string) (*Message, error) {
	var msg Message
	err := r.db.WithContext(ctx).Where(QueryMessageIDWhere, id).First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindByClientMsgID 根据 (发送者, 客户端消息ID) 查找
func (r *MessageGormRepository) FindByClientMsgID(ctx context.Context, senderID, clientMsgID string) (*Message, error) {
	var msg Message
	err := r.db.WithContext(ctx).Where(QueryClientMsgIDWhere, senderID, clientMsgID).First(&msg).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindPending 查找某接收者的待投递消息
func (r *MessageGormRepository) FindPending(ctx context.Context, recipientID string, limit int) ([]*Message, error) {
	var msgs []*Message
	query := r.db.WithContext(ctx).
		Where(QueryPendingWhere, recipientID).
		Order(OrderByCreatedAtAsc)
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&msgs).Error
	return msgs, err
}

// MarkDelivered 标记一批消息已送达
func (r *MessageGormRepository) MarkDelivered(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&Message{}).
		Where("id IN ? AND delivered_at IS NULL", ids).
		Update("delivered_at", at).Error
}

// MarkConversationRead 标记 peer 发给 owner 的未读消息为已读
func (r *MessageGormRepository) MarkConversationRead(ctx context.Context, ownerID, peerID string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&Message{}).
		Where(QueryUnreadFromWhere, ownerID, peerID).
		Update("read_at", at)
	return result.RowsAffected, result.Error
}

// CountUnread 统计 peer 发给 owner 的未读消息数
func (r *MessageGormRepository) CountUnread(ctx context.Context, ownerID, peerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Message{}).
		Where(QueryUnreadFromWhere, ownerID, peerID).
		Count(&count).Error
	return count, err
}

// DeleteOld 清理旧消息
func (r *MessageGormRepository) DeleteOld(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&Message{})
	return result.RowsAffected, result.Error
}

// ============================================================================
// 内存实现（测试和单机场景）
// ============================================================================

// MemoryMessageRepository 内存实现
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages map[string]*Message // id -> message
}

// NewMemoryMessageRepository 创建内存消息仓库
func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{
		messages: make(map[string]*Message),
	}
}

// Create 持久化消息
func (r *MemoryMessageRepository) Create(ctx context.Context, msg *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	clone := *msg
	r.messages[msg.ID] = &clone
	return nil
}

// FindByID 根据消息ID查找
func (r *MemoryMessageRepository) FindByID(ctx context.Context, id string) (*Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msg, ok := r.messages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *msg
	return &clone, nil
}

// FindByClientMsgID 根据 (发送者, 客户端消息ID) 查找
func (r *MemoryMessageRepository) FindByClientMsgID(ctx context.Context, senderID, clientMsgID string) (*Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, msg := range r.messages {
		if msg.SenderID == senderID && msg.ClientMsgID == clientMsgID {
			clone := *msg
			return &clone, nil
		}
	}
	return nil, nil
}

// FindPending 查找某接收者的待投递消息
func (r *MemoryMessageRepository) FindPending(ctx context.Context, recipientID string, limit int) ([]*Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var msgs []*Message
	for _, msg := range r.messages {
		if msg.RecipientID == recipientID && msg.DeliveredAt == nil {
			clone := *msg
			msgs = append(msgs, &clone)
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

// MarkDelivered 标记一批消息已送达
func (r *MemoryMessageRepository) MarkDelivered(ctx context.Context, ids []string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if msg, ok := r.messages[id]; ok && msg.DeliveredAt == nil {
			t := at
			msg.DeliveredAt = &t
		}
	}
	return nil
}

// MarkConversationRead 标记 peer 发给 owner 的未读消息为已读
func (r *MemoryMessageRepository) MarkConversationRead(ctx context.Context, ownerID, peerID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var affected int64
	for _, msg := range r.messages {
		if msg.RecipientID == ownerID && msg.SenderID == peerID && msg.ReadAt == nil {
			t := at
			msg.ReadAt = &t
			affected++
		}
	}
	return affected, nil
}

// CountUnread 统计 peer 发给 owner 的未读消息数
func (r *MemoryMessageRepository) CountUnread(ctx context.Context, ownerID, peerID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, msg := range r.messages {
		if msg.RecipientID == ownerID && msg.SenderID == peerID && msg.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

// DeleteOld 清理旧消息
func (r *MemoryMessageRepository) DeleteOld(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, msg := range r.messages {
		if msg.CreatedAt.Before(before) {
			delete(r.messages, id)
			deleted++
		}
	}
	return deleted, nil
}
