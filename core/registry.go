/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-01-05 00:00:00
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-01-13 09:48:22
 * @FilePath: \go-imcore\core\registry.go
 * @Description: Core 会话注册/注销管理
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */

package core

import (
	"context"
	"time"

	"github.com/kamalyes/go-toolbox/pkg/contextx"
	"github.com/kamalyes/go-toolbox/pkg/errorx"
	"github.com/kamalyes/go-toolbox/pkg/syncx"
)

// ============================================================================
// 会话建立/断开
// ============================================================================

// Connect 建立用户会话：鉴权、会话策略校验、注册到核心
// conn 可以为 nil（嵌入式使用场景，直接通过 SendChan 消费帧）
func (c *Core) Connect(ctx context.Context, userID, token string) (*Session, error) {
	if !c.IsRunning() {
		return nil, ErrCoreNotRunning
	}
	if c.tokenValidator != nil {
		if err := c.tokenValidator.Validate(userID, token); err != nil {
			c.logger.WarnKV("会话鉴权失败", "user_id", userID, "error", err)
			return nil, err
		}
	}

	session := NewSession(c.NextMessageID(), userID).
		WithNodeID(c.nodeID).
		WithSendChan(make(chan []byte, c.config.MessageBufferSize)).
		WithContext(ctx)

	if err := c.attachSession(session); err != nil {
		return nil, err
	}

	c.finalizeRegister(session)
	return session, nil
}

// Disconnect 断开指定会话
// 返回前同步完成订阅清理与在线状态转换，返回后该会话不再接收任何帧
func (c *Core) Disconnect(sessionID string, reason DisconnectReason) error {
	session, ok := c.GetSession(sessionID)
	if !ok {
		return errorx.NewError(ErrTypeSessionNotFound, sessionID)
	}
	c.detachSession(session, reason)
	return nil
}

// Unregister 注销会话（读写协程出错、心跳超时等内部路径使用）
func (c *Core) Unregister(session *Session, reason DisconnectReason) {
	c.detachSession(session, reason)
}

// attachSession 校验会话策略并写入内存映射（同步，策略拒绝时返回错误）
func (c *Core) attachSession(session *Session) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	existing := c.userToSessions[session.UserID]

	c.logger.DebugKV("处理会话策略",
		"user_id", session.UserID,
		"new_session_id", session.ID,
		"existing_sessions_count", len(existing),
		"session_policy", c.config.SessionPolicy,
		"max_sessions_per_user", c.config.MaxSessionsPerUser)

	if len(existing) > 0 {
		// 拒绝策略：已有存活会话时拒绝新连接
		if c.config.SessionPolicy == SessionPolicyReject {
			c.logger.InfoKV("会话策略拒绝新连接",
				"user_id", session.UserID,
				"existing_sessions", len(existing))
			return errorx.NewError(ErrTypeAlreadyConnected, session.UserID)
		}

		// 多端策略且有上限：踢掉最早建立的会话
		if c.config.MaxSessionsPerUser > 0 && len(existing) >= c.config.MaxSessionsPerUser {
			c.logger.InfoKV("达到会话数上限，踢掉最早的会话",
				"user_id", session.UserID,
				"current_count", len(existing),
				"max_allowed", c.config.MaxSessionsPerUser)
			c.kickOldestSessionUnsafe(existing)
		}
	}

	c.addSessionUnsafe(session)
	return nil
}

// addSessionUnsafe 添加会话到映射（需要外部加锁）
func (c *Core) addSessionUnsafe(session *Session) {
	c.sessions[session.ID] = session
	if c.userToSessions[session.UserID] == nil {
		c.userToSessions[session.UserID] = make(map[string]*Session)
	}
	c.userToSessions[session.UserID][session.ID] = session
	c.activeSessionsCount.Add(1)
}

// kickOldestSessionUnsafe 踢掉最早建立的会话（需要外部加锁）
func (c *Core) kickOldestSessionUnsafe(sessions map[string]*Session) {
	var oldest *Session
	for _, s := range sessions {
		if oldest == nil || s.ConnectedAt.Before(oldest.ConnectedAt) {
			oldest = s
		}
	}
	if oldest != nil {
		c.removeSessionUnsafe(oldest, DisconnectReasonServerShutdown)
	}
}

// finalizeRegister 完成会话注册：默认订阅、回调、在线状态转换与读写协程
// Connect/ConnectWithConn 返回前同步执行，返回后会话即可接收投递帧
func (c *Core) finalizeRegister(session *Session) {
	defer syncx.RecoverWithHandler(func(r interface{}) {
		c.logger.ErrorKV("finalizeRegister panic",
			"session_id", session.ID,
			"user_id", session.UserID,
			"panic", r,
		)
	})

	// 初始化会话时间戳（如果未设置）
	now := time.Now()
	if session.ConnectedAt.IsZero() {
		session.ConnectedAt = now
	}
	if session.LastHeartbeatAt.IsZero() {
		session.LastHeartbeatAt = now
	}

	// 新会话默认订阅全部通道
	c.subscribeAllKinds(session.ID)

	c.logger.InfoKV("会话建立",
		"session_id", session.ID,
		"user_id", session.UserID,
		"node_id", c.nodeID,
		"total_sessions", c.SessionCount(),
	)

	// 调用会话建立回调
	if c.sessionConnectCallback != nil {
		ctx := context.Background()
		if err := c.sessionConnectCallback(ctx, session); err != nil {
			c.logger.ErrorKV("会话建立回调执行失败",
				"session_id", session.ID,
				"user_id", session.UserID,
				"error", err,
			)
		}
	}

	// 在线状态转换（宽限期内重连不产生事件）
	c.noteSessionAttached(session)

	// 异步任务
	go c.syncOnlineStatus(session)
	go c.redeliverPendingOnConnect(session)

	if session.Conn != nil {
		c.wg.Add(2)
		go c.handleSessionWrite(session)
		go c.handleSessionRead(session)
	}
}

// detachSession 同步注销会话：移除映射、清理订阅、关闭通道、在线状态转换
func (c *Core) detachSession(session *Session, reason DisconnectReason) {
	c.mutex.Lock()
	c.removeSessionUnsafe(session, reason)
	c.mutex.Unlock()

	// 在线状态转换（锁外处理，可能触发宽限期定时器）
	c.noteSessionDetached(session)
}

// ============================================================================
// 踢人相关方法
// ============================================================================

// KickUser 踢出用户的所有会话
func (c *Core) KickUser(userID string, reason DisconnectReason) int {
	sessions := c.GetUserSessions(userID)
	if len(sessions) == 0 {
		c.logger.WarnKV("踢出用户失败：用户不在线", "user_id", userID)
		return 0
	}

	c.logger.InfoKV("开始踢出用户",
		"user_id", userID,
		"reason", reason,
		"session_count", len(sessions),
	)

	syncx.ParallelForEachSlice(sessions, func(i int, session *Session) {
		c.mutex.Lock()
		c.removeSessionUnsafe(session, reason)
		c.mutex.Unlock()
		c.noteSessionDetached(session)
	})

	return len(sessions)
}

// ============================================================================
// 内部辅助方法
// ============================================================================

// removeSessionUnsafe 移除会话（不加锁，需要外部加锁）
func (c *Core) removeSessionUnsafe(session *Session, reason DisconnectReason) {
	if _, exists := c.sessions[session.ID]; !exists {
		return
	}

	c.logger.InfoKV("会话断开",
		"session_id", session.ID,
		"user_id", session.UserID,
		"reason", reason,
		"remaining_sessions", len(c.sessions)-1,
	)

	c.removeSessionFromMaps(session)
	c.teardownSubscriptions(session.ID)
	c.syncSessionRemovalToRedis(session)
	c.closeSessionChannel(session)
	if session.Conn != nil {
		session.Conn.Close()
	}

	// 调用会话断开回调
	if c.sessionDisconnectCallback != nil {
		syncx.Go().
			OnError(func(err error) {
				c.logger.ErrorKV("会话断开回调执行失败",
					"session_id", session.ID,
					"user_id", session.UserID,
					"error", err,
				)
			}).
			ExecWithContext(func(execCtx context.Context) error {
				return c.sessionDisconnectCallback(execCtx, session, reason)
			})
	}
}

// removeSessionFromMaps 从内存映射中移除会话
func (c *Core) removeSessionFromMaps(session *Session) {
	delete(c.sessions, session.ID)
	c.activeSessionsCount.Add(-1)

	if sessionMap, exists := c.userToSessions[session.UserID]; exists {
		delete(sessionMap, session.ID)
		// 该用户没有其他会话时删除整个 map
		if len(sessionMap) == 0 {
			delete(c.userToSessions, session.UserID)
		}
	}
}

// syncSessionRemovalToRedis 同步会话移除到Redis
// 只有当用户的所有会话都断开后才设置为离线
func (c *Core) syncSessionRemovalToRedis(session *Session) {
	if c.onlineStatusRepo == nil {
		return
	}
	sessionMap, exists := c.userToSessions[session.UserID]
	if exists && len(sessionMap) > 0 {
		return
	}

	syncx.Go(contextx.OrBackground(c.ctx)).
		WithTimeout(3 * time.Second).
		OnError(func(err error) {
			c.logger.ErrorKV("从Redis移除在线状态失败",
				"user_id", session.UserID,
				"error", err,
			)
		}).
		ExecWithContext(func(ctx context.Context) error {
			return c.onlineStatusRepo.SetOffline(ctx, session.UserID)
		})
}

// closeSessionChannel 关闭会话发送通道
func (c *Core) closeSessionChannel(session *Session) {
	session.CloseMu.Lock()
	defer session.CloseMu.Unlock()

	if session.IsClosed() {
		return
	}
	session.MarkClosed()

	if session.SendChan != nil {
		close(session.SendChan)
	}
}

// syncOnlineStatus 同步在线状态到Redis
func (c *Core) syncOnlineStatus(session *Session) {
	if c.onlineStatusRepo == nil {
		return
	}
	syncx.Go(contextx.OrBackground(c.ctx)).
		WithTimeout(3 * time.Second).
		OnError(func(err error) {
			c.logger.ErrorKV("同步在线状态到Redis失败",
				"user_id", session.UserID,
				"error", err,
			)
		}).
		ExecWithContext(func(ctx context.Context) error {
			return c.onlineStatusRepo.SetOnline(ctx, session)
		})
}
