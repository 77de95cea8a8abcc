/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-01-05 00:00:00
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-01-18 11:32:54
 * @FilePath: \go-imcore\core\router.go
 * @Description: Core 订阅路由：频道订阅与帧分发
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */

package core

import (
	"github.com/kamalyes/go-toolbox/pkg/errorx"

	"github.com/kamalyes/go-imcore/models"
	"github.com/kamalyes/go-imcore/protocol"
)

// ============================================================================
// 频道订阅管理
// ============================================================================

// Subscribe 订阅会话到指定频道
// 会话断开后订阅自动失效，重复订阅返回错误
func (c *Core) Subscribe(sessionID string, kind ChannelKind) error {
	if !kind.IsValid() {
		return errorx.NewError(ErrTypeInvalidChannelKind, string(kind))
	}
	if _, ok := c.GetSession(sessionID); !ok {
		return errorx.NewError(ErrTypeSessionNotFound, sessionID)
	}

	c.subMutex.Lock()
	defer c.subMutex.Unlock()

	kinds := c.subscriptions[sessionID]
	if kinds == nil {
		kinds = make(map[ChannelKind]struct{})
		c.subscriptions[sessionID] = kinds
	}
	if _, dup := kinds[kind]; dup {
		return errorx.NewError(ErrTypeAlreadySubscribed, string(kind))
	}
	kinds[kind] = struct{}{}

	c.logger.DebugKV("频道订阅", "session_id", sessionID, "kind", kind)
	return nil
}

// Unsubscribe 取消会话对指定频道的订阅
func (c *Core) Unsubscribe(sessionID string, kind ChannelKind) {
	c.subMutex.Lock()
	defer c.subMutex.Unlock()

	if kinds, ok := c.subscriptions[sessionID]; ok {
		delete(kinds, kind)
		if len(kinds) == 0 {
			delete(c.subscriptions, sessionID)
		}
	}
}

// IsSubscribed 查询会话是否订阅了指定频道
func (c *Core) IsSubscribed(sessionID string, kind ChannelKind) bool {
	c.subMutex.RLock()
	defer c.subMutex.RUnlock()

	kinds, ok := c.subscriptions[sessionID]
	if !ok {
		return false
	}
	_, subscribed := kinds[kind]
	return subscribed
}

// subscribeAllKinds 新会话默认订阅全部频道
func (c *Core) subscribeAllKinds(sessionID string) {
	c.subMutex.Lock()
	defer c.subMutex.Unlock()

	kinds := make(map[ChannelKind]struct{}, len(models.AllChannelKinds()))
	for _, kind := range models.AllChannelKinds() {
		kinds[kind] = struct{}{}
	}
	c.subscriptions[sessionID] = kinds
}

// teardownSubscriptions 会话断开时原子清理其全部订阅
func (c *Core) teardownSubscriptions(sessionID string) {
	c.subMutex.Lock()
	delete(c.subscriptions, sessionID)
	c.subMutex.Unlock()
}

// ============================================================================
// 帧分发
// ============================================================================

// dispatchToUser 向用户订阅了指定频道的所有会话投递帧
// 返回成功投递的会话数，缓冲区满的会话按慢消费者丢弃该帧
func (c *Core) dispatchToUser(userID string, kind ChannelKind, frame *protocol.EventFrame) int {
	data, err := frame.Encode()
	if err != nil {
		c.logger.ErrorKV("帧编码失败", "kind", kind, "error", err)
		return 0
	}
	return c.dispatchRawToUser(userID, kind, data)
}

// dispatchToUserExcept 同 dispatchToUser，但跳过指定会话（发送方回显场景）
func (c *Core) dispatchToUserExcept(userID string, kind ChannelKind, frame *protocol.EventFrame, exceptSessionID string) int {
	data, err := frame.Encode()
	if err != nil {
		c.logger.ErrorKV("帧编码失败", "kind", kind, "error", err)
		return 0
	}

	delivered := 0
	for _, session := range c.GetUserSessions(userID) {
		if session.ID == exceptSessionID {
			continue
		}
		if c.trySendToSubscriber(session, kind, data) {
			delivered++
		}
	}
	return delivered
}

// dispatchRawToUser 投递已编码帧
func (c *Core) dispatchRawToUser(userID string, kind ChannelKind, data []byte) int {
	delivered := 0
	for _, session := range c.GetUserSessions(userID) {
		if c.trySendToSubscriber(session, kind, data) {
			delivered++
		}
	}
	return delivered
}

// trySendToSubscriber 非阻塞投递，未订阅或缓冲区满时返回 false
func (c *Core) trySendToSubscriber(session *Session, kind ChannelKind, data []byte) bool {
	if !c.IsSubscribed(session.ID, kind) {
		return false
	}
	if !session.TrySend(data) {
		c.logger.WarnKV("会话发送缓冲区已满，丢弃帧",
			"session_id", session.ID,
			"user_id", session.UserID,
			"kind", kind,
		)
		return false
	}
	return true
}
