/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-01-05 00:00:00
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-02-10 10:51:33
 * @FilePath: \go-imcore\core\unread.go
 * @Description: Core 未读计数与已读回执协调
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */

package core

import (
	"context"
	"time"

	"github.com/kamalyes/go-toolbox/pkg/errorx"

	"github.com/kamalyes/go-imcore/events"
	"github.com/kamalyes/go-imcore/models"
	"github.com/kamalyes/go-imcore/protocol"
)

// ============================================================================
// 未读计数查询
// ============================================================================

// GetUnreadCount 查询 owner 与 peer 会话的未读数
func (c *Core) GetUnreadCount(ctx context.Context, ownerID, peerID string) (int64, error) {
	if c.unreadRepo == nil {
		return 0, ErrRepositoryNotSet
	}
	return c.unreadRepo.Get(ctx, ownerID, peerID)
}

// GetAllUnreadCounts 查询 owner 全部会话的未读数
func (c *Core) GetAllUnreadCounts(ctx context.Context, ownerID string) (map[string]int64, error) {
	if c.unreadRepo == nil {
		return nil, ErrRepositoryNotSet
	}
	return c.unreadRepo.GetAll(ctx, ownerID)
}

// GetTotalUnreadCount 查询 owner 的未读总数（角标场景）
func (c *Core) GetTotalUnreadCount(ctx context.Context, ownerID string) (int64, error) {
	if c.unreadRepo == nil {
		return 0, ErrRepositoryNotSet
	}
	return c.unreadRepo.Total(ctx, ownerID)
}

// ============================================================================
// 已读回执
// ============================================================================

// MarkRead 将 owner 与 peer 的会话标记为已读
// 幂等操作：清零未读计数、为消息行补写 read_at、向 owner 全部会话推送清零帧
func (c *Core) MarkRead(ctx context.Context, ownerID, peerID string) error {
	if c.unreadRepo == nil {
		return ErrRepositoryNotSet
	}

	if err := c.unreadRepo.Clear(ctx, ownerID, peerID); err != nil {
		return errorx.WrapError("clear unread failed", err)
	}

	// 补写已读时间戳（owner 视角：peer 发来的未读消息）
	if c.messageRepo != nil {
		stamped, err := c.messageRepo.MarkConversationRead(ctx, ownerID, peerID, time.Now())
		if err != nil {
			c.logger.ErrorKV("已读时间戳补写失败",
				"owner_id", ownerID,
				"peer_id", peerID,
				"error", err,
			)
		} else if stamped > 0 {
			c.logger.DebugKV("已读时间戳补写完成",
				"owner_id", ownerID,
				"peer_id", peerID,
				"stamped", stamped,
			)
		}
	}

	c.publishUnreadCount(ownerID, peerID, 0)
	return nil
}

// SetActiveConversation 设置会话当前查看的对端，peerID 为空表示离开会话视图
// 进入会话视图时自动触发一次已读
func (c *Core) SetActiveConversation(ctx context.Context, sessionID, peerID string) error {
	session, ok := c.GetSession(sessionID)
	if !ok {
		return errorx.NewError(ErrTypeSessionNotFound, sessionID)
	}

	session.SetActivePeer(peerID)
	c.logger.DebugKV("设置活跃会话",
		"session_id", sessionID,
		"user_id", session.UserID,
		"peer_id", peerID,
	)

	if peerID == "" || c.unreadRepo == nil {
		return nil
	}
	return c.MarkRead(ctx, session.UserID, peerID)
}

// publishUnreadCount 推送未读计数：本节点 owner 会话帧 + 跨节点事件
func (c *Core) publishUnreadCount(ownerID, peerID string, count int64) {
	event := &models.UnreadCountEvent{
		OwnerID:   ownerID,
		PeerID:    peerID,
		Count:     count,
		Timestamp: time.Now(),
		NodeID:    c.nodeID,
	}
	frame, err := protocol.NewUnreadFrame(event)
	if err != nil {
		c.logger.ErrorKV("未读帧构建失败", "owner_id", ownerID, "error", err)
	} else {
		c.dispatchToUser(ownerID, ChannelKindUnread, frame)
	}

	// 📡 跨节点广播，其他节点向各自的 owner 会话分发
	go events.PublishUnreadChanged(c, ownerID, peerID, count)
}
