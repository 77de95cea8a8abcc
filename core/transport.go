/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-01-05 00:00:00
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-02-12 17:08:50
 * @FilePath: \go-imcore\core\transport.go
 * @Description: Core WebSocket 接入层：升级、读写协程与指令分发
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */

package core

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kamalyes/go-toolbox/pkg/metadata"

	"github.com/kamalyes/go-imcore/protocol"
)

// ============================================================================
// WebSocket 升级
// ============================================================================

// ConfigureUpgrader 构建 WebSocket 升级器
func (c *Core) ConfigureUpgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// HandleWebSocketUpgrade 处理 WebSocket 升级请求并接入会话
// user_id 取自查询参数，令牌取自 Authorization Bearer 头或 token 查询参数
func (c *Core) HandleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	userID := r.URL.Query().Get("user_id")
	token := extractBearerToken(r)

	c.logger.InfoContextKV(ctx, "[WebSocket] 升级请求",
		"method", r.Method,
		"path", r.URL.Path,
		"user_id", userID,
		"remote_addr", r.RemoteAddr,
		"user_agent", r.Header.Get("User-Agent"),
		"origin", r.Header.Get("Origin"),
	)

	upgrader := c.ConfigureUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WithError(err).ErrorContextKV(ctx, "[WebSocket] 升级失败",
			"user_id", userID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}

	requestMeta := metadata.ExtractRequestMetadata(r)
	session, err := c.ConnectWithConn(context.Background(), userID, token, conn, requestMeta.ClientIP)
	if err != nil {
		c.logger.WithError(err).WarnContextKV(ctx, "[WebSocket] 会话接入失败",
			"user_id", userID,
		)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
		conn.Close()
		return
	}

	c.logger.InfoContextKV(ctx, "[WebSocket] 会话接入成功",
		"session_id", session.ID,
		"user_id", session.UserID,
		"remote_addr", conn.RemoteAddr().String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// ConnectWithConn 使用已建立的 WebSocket 连接接入会话
func (c *Core) ConnectWithConn(ctx context.Context, userID, token string, conn *websocket.Conn, clientIP string) (*Session, error) {
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
		WithClientIP(clientIP).
		WithWebSocketConn(conn).
		WithSendChan(make(chan []byte, c.config.MessageBufferSize)).
		WithContext(ctx)

	if err := c.attachSession(session); err != nil {
		return nil, err
	}

	c.finalizeRegister(session)
	return session, nil
}

// extractBearerToken 提取令牌：Authorization Bearer 头优先，其次 token 查询参数
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// ============================================================================
// 会话读写协程
// ============================================================================

// handleSessionWrite 处理会话消息写入
// wg.Add 由 finalizeRegister 在启动协程前完成
func (c *Core) handleSessionWrite(session *Session) {
	defer c.wg.Done()
	defer func() {
		c.logger.DebugKV("会话写入协程结束",
			"session_id", session.ID,
			"user_id", session.UserID,
		)
	}()

	for {
		select {
		case message, ok := <-session.SendChan:
			if !ok {
				c.logger.DebugKV("会话发送通道关闭", "session_id", session.ID)
				return
			}

			if session.Conn != nil {
				session.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := session.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
					c.logger.ErrorKV("会话消息写入失败",
						"session_id", session.ID,
						"error", err,
					)
					c.Unregister(session, DisconnectReasonWriteError)
					return
				}
			}
		case <-c.ctx.Done():
			c.logger.DebugKV("会话写入协程因核心关闭而结束", "session_id", session.ID)
			return
		}
	}
}

// handleSessionRead 处理会话消息读取
func (c *Core) handleSessionRead(session *Session) {
	defer c.wg.Done()
	defer c.Unregister(session, DisconnectReasonReadError)
	defer func() {
		c.logger.DebugKV("会话读取协程结束", "session_id", session.ID)
	}()

	for {
		messageType, data, err := session.Conn.ReadMessage()
		if err != nil {
			c.logger.InfoKV("会话连接读取错误",
				"session_id", session.ID,
				"error", err,
			)
			return
		}

		switch messageType {
		case websocket.TextMessage:
			c.handleClientCommand(session, data)
		case websocket.CloseMessage:
			return
		case websocket.PingMessage:
			_ = session.Conn.WriteMessage(websocket.PongMessage, nil)
		}
	}
}

// handleClientCommand 分发客户端上行指令
func (c *Core) handleClientCommand(session *Session, data []byte) {
	cmd, err := protocol.DecodeClientCommand(data)
	if err != nil {
		c.logger.WarnKV("指令解析失败",
			"session_id", session.ID,
			"error", err,
		)
		return
	}

	ctx := context.Background()
	switch cmd.Action {
	case protocol.ActionHeartbeat:
		if err := c.Heartbeat(session.ID); err != nil {
			c.logger.DebugKV("心跳处理失败", "session_id", session.ID, "error", err)
		}

	case protocol.ActionSend:
		_, err := c.Send(ctx, &SendRequest{
			SenderSessionID: session.ID,
			RecipientID:     cmd.RecipientID,
			ClientMsgID:     cmd.ClientMsgID,
			Body:            cmd.Body,
			Type:            cmd.Type,
		})
		if err != nil {
			c.logger.WarnKV("消息发送失败",
				"session_id", session.ID,
				"recipient_id", cmd.RecipientID,
				"error", err,
			)
		}

	case protocol.ActionMarkRead:
		if err := c.MarkRead(ctx, session.UserID, cmd.PeerID); err != nil {
			c.logger.WarnKV("标记已读失败",
				"session_id", session.ID,
				"peer_id", cmd.PeerID,
				"error", err,
			)
		}

	case protocol.ActionSetActive:
		if err := c.SetActiveConversation(ctx, session.ID, cmd.PeerID); err != nil {
			c.logger.WarnKV("设置活跃会话失败",
				"session_id", session.ID,
				"error", err,
			)
		}

	case protocol.ActionSubscribe:
		if err := c.Subscribe(session.ID, cmd.Kind); err != nil {
			c.logger.DebugKV("订阅失败", "session_id", session.ID, "kind", cmd.Kind, "error", err)
		}

	case protocol.ActionUnsubscribe:
		c.Unsubscribe(session.ID, cmd.Kind)

	default:
		c.logger.DebugKV("未知指令",
			"session_id", session.ID,
			"action", cmd.Action,
		)
	}
}
