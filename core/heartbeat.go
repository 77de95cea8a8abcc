/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-01-05 00:00:00
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-01-12 16:05:40
 * @FilePath: \go-imcore\core\heartbeat.go
 * @Description: Core 心跳维护与超时检测
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */

package core

import (
	"context"
	"time"

	"github.com/kamalyes/go-toolbox/pkg/errorx"
	"github.com/kamalyes/go-toolbox/pkg/syncx"
)

// ============================================================================
// 心跳维护
// ============================================================================

// Heartbeat 刷新指定会话的心跳时间戳，同时续期Redis在线状态TTL
func (c *Core) Heartbeat(sessionID string) error {
	session, ok := c.GetSession(sessionID)
	if !ok {
		return errorx.NewError(ErrTypeSessionNotFound, sessionID)
	}

	c.mutex.Lock()
	session.Touch()
	c.mutex.Unlock()

	// 异步续期在线状态TTL
	if c.onlineStatusRepo != nil {
		syncx.Go(c.ctx).
			WithTimeout(2 * time.Second).
			OnError(func(err error) {
				c.logger.DebugKV("在线状态TTL续期失败",
					"user_id", session.UserID,
					"error", err,
				)
			}).
			ExecWithContext(func(ctx context.Context) error {
				return c.onlineStatusRepo.RefreshTTL(ctx, session.UserID)
			})
	}
	return nil
}

// checkHeartbeat 检查会话心跳
func (c *Core) checkHeartbeat() {
	allSessions := c.GetSessionsCopy()
	now := time.Now()
	timeoutSessions := c.checkSessionTimeout(now, allSessions)

	if timeoutSessions > 0 {
		c.logger.InfoKV("心跳检查完成",
			"timeout_sessions", timeoutSessions,
		)
	}
}

// checkSessionTimeout 检查会话超时
func (c *Core) checkSessionTimeout(now time.Time, sessions []*Session) int {
	timeoutCount := 0
	for _, session := range sessions {
		// 加锁读取时间戳以避免数据竞争
		c.mutex.RLock()
		lastActive := session.LastHeartbeatAt
		c.mutex.RUnlock()

		if now.Sub(lastActive) > c.config.SessionTimeout {
			c.Unregister(session, DisconnectReasonHeartbeatTimeout)
			timeoutCount++

			if c.heartbeatTimeoutCallback != nil {
				c.heartbeatTimeoutCallback(session.ID, session.UserID, lastActive)
			}
		}
	}
	return timeoutCount
}
