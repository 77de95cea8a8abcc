/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-01-05 00:00:00
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-01-22 14:27:09
 * @FilePath: \go-imcore\core\presence.go
 * @Description: Core 在线状态跟踪：上下线转换、宽限期与联系人广播
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */

package core

import (
	"context"
	"time"

	"github.com/kamalyes/go-toolbox/pkg/syncx"

	"github.com/kamalyes/go-imcore/events"
	"github.com/kamalyes/go-imcore/models"
	"github.com/kamalyes/go-imcore/protocol"
)

// ============================================================================
// 在线状态转换
// ============================================================================

// noteSessionAttached 会话接入后的在线状态处理
// 宽限期内重连：取消离线定时器，不产生任何状态事件
func (c *Core) noteSessionAttached(session *Session) {
	c.graceMutex.Lock()
	if timer, pending := c.graceTimers[session.UserID]; pending {
		timer.Stop()
		delete(c.graceTimers, session.UserID)
		c.graceMutex.Unlock()
		c.logger.DebugKV("宽限期内重连，抑制状态转换", "user_id", session.UserID)
		return
	}
	c.graceMutex.Unlock()

	// 仅用户首个会话触发上线转换
	if len(c.GetUserSessions(session.UserID)) == 1 {
		c.transitionPresence(session.UserID, PresenceStatusOnline)
	}
}

// noteSessionDetached 会话断开后的在线状态处理
// 最后一个会话断开时按宽限期延迟离线转换
func (c *Core) noteSessionDetached(session *Session) {
	if c.IsUserLocallyOnline(session.UserID) {
		return
	}

	grace := c.config.PresenceGraceWindow
	if grace <= 0 {
		c.transitionPresence(session.UserID, PresenceStatusOffline)
		return
	}

	userID := session.UserID
	c.graceMutex.Lock()
	// 已有待触发的定时器时不重复排期
	if _, pending := c.graceTimers[userID]; pending {
		c.graceMutex.Unlock()
		return
	}
	c.graceTimers[userID] = time.AfterFunc(grace, func() {
		c.graceMutex.Lock()
		delete(c.graceTimers, userID)
		c.graceMutex.Unlock()

		// 宽限期结束仍无存活会话才算真正离线
		if !c.IsUserLocallyOnline(userID) {
			c.transitionPresence(userID, PresenceStatusOffline)
		}
	})
	c.graceMutex.Unlock()

	c.logger.DebugKV("进入在线宽限期", "user_id", userID, "grace_window", grace)
}

// transitionPresence 执行状态转换：回调、联系人广播、跨节点事件
func (c *Core) transitionPresence(userID string, status PresenceStatus) {
	c.logger.InfoKV("在线状态转换", "user_id", userID, "status", status, "node_id", c.nodeID)

	if c.presenceChangeCallback != nil {
		c.presenceChangeCallback(userID, status)
	}

	// 向本节点的联系人会话广播状态帧
	go c.fanoutPresenceToContacts(userID, status, time.Now())

	// 📡 发布跨节点在线状态事件
	if status == PresenceStatusOnline {
		go events.PublishPresenceOnline(c, userID)
	} else {
		go events.PublishPresenceOffline(c, userID)
	}
}

// fanoutPresenceToContacts 向联系人在本节点的会话广播状态帧
func (c *Core) fanoutPresenceToContacts(userID string, status PresenceStatus, at time.Time) {
	defer syncx.RecoverWithHandler(func(r interface{}) {
		c.logger.ErrorKV("联系人状态广播panic", "user_id", userID, "panic", r)
	})

	contacts := c.resolveContacts(userID)
	if len(contacts) == 0 {
		return
	}

	event := &models.PresenceEvent{
		UserID:    userID,
		Status:    status,
		Timestamp: at,
		NodeID:    c.nodeID,
	}
	frame, err := protocol.NewPresenceFrame(event)
	if err != nil {
		c.logger.ErrorKV("状态帧构建失败", "user_id", userID, "error", err)
		return
	}

	for _, contactID := range contacts {
		c.dispatchToUser(contactID, ChannelKindPresence, frame)
	}
}

// resolveContacts 获取需要感知状态变化的联系人集合
// 未配置联系人提供者时退化为本节点所有在线用户
func (c *Core) resolveContacts(userID string) []string {
	if c.contactsProvider != nil {
		ctx, cancel := context.WithTimeout(c.ctx, 3*time.Second)
		defer cancel()
		contacts, err := c.contactsProvider.ContactsOf(ctx, userID)
		if err != nil {
			c.logger.ErrorKV("联系人查询失败", "user_id", userID, "error", err)
			return nil
		}
		return contacts
	}

	c.mutex.RLock()
	defer c.mutex.RUnlock()
	contacts := make([]string, 0, len(c.userToSessions))
	for online := range c.userToSessions {
		if online != userID {
			contacts = append(contacts, online)
		}
	}
	return contacts
}

// stopAllGraceTimers 停止全部宽限期定时器（关闭流程使用）
func (c *Core) stopAllGraceTimers() {
	c.graceMutex.Lock()
	defer c.graceMutex.Unlock()
	for userID, timer := range c.graceTimers {
		timer.Stop()
		delete(c.graceTimers, userID)
	}
}

// ============================================================================
// 在线状态查询
// ============================================================================

// IsUserOnline 查询用户是否在线（先查本节点，再查Redis覆盖全集群）
func (c *Core) IsUserOnline(ctx context.Context, userID string) (bool, error) {
	if c.IsUserLocallyOnline(userID) {
		return true, nil
	}
	if c.onlineStatusRepo == nil {
		return false, nil
	}
	return c.onlineStatusRepo.IsOnline(ctx, userID)
}

// GetOnlineUsers 获取全集群在线用户
func (c *Core) GetOnlineUsers(ctx context.Context) ([]string, error) {
	if c.onlineStatusRepo == nil {
		c.mutex.RLock()
		defer c.mutex.RUnlock()
		users := make([]string, 0, len(c.userToSessions))
		for userID := range c.userToSessions {
			users = append(users, userID)
		}
		return users, nil
	}
	return c.onlineStatusRepo.GetAllOnlineUsers(ctx)
}
