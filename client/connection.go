/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-01-05 00:00:00
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-02-15 09:41:56
 * @FilePath: \go-imcore\client\connection.go
 * @Description: 连接管理逻辑：重连退避、心跳协程与事件帧分发
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package client

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"

	"github.com/kamalyes/go-imcore/protocol"
)

// Closed 返回连接状态
func (c *IMClient) Closed() bool {
	return c.stateMachine.CurrentState() == ConnectionStatusDisconnected
}

// Connect 发起连接
// 连接失败时按退避策略持续重试，直到连接成功
func (c *IMClient) Connect() {
	// 转换到连接中状态
	if err := c.stateMachine.TransitionTo(ConnectionStatusConnecting); err != nil {
		c.handleConnectError(err)
		return
	}

	c.initSendChannel()
	b := c.createBackoff()
	for {
		nextRec := b.Duration()
		if err := c.attemptConnection(); err != nil {
			// 转换到错误状态
			_ = c.stateMachine.TransitionTo(ConnectionStatusError)
			c.handleConnectError(err)
			time.Sleep(nextRec)
			// 转换到重连中状态
			_ = c.stateMachine.TransitionTo(ConnectionStatusReconnecting)
			continue
		}
		c.onConnectionSuccess()
		return
	}
}

// initSendChannel 初始化/重置发送通道以及其关闭控制结构（支持断线重连后的再次关闭）
func (c *IMClient) initSendChannel() {
	c.WebSocket.sendChanMu.Lock()
	// 创建新的缓冲通道(替换旧引用)
	c.WebSocket.sendChan = make(chan *outboundMessage, c.Config.MessageBufferSize)
	// 重置 sync.Once，允许重新关闭通道
	c.WebSocket.sendChanOnce = sync.Once{}
	// 重置关闭标志
	atomic.StoreInt32(&c.WebSocket.sendChanClosed, 0)
	c.WebSocket.sendChanMu.Unlock()
}

// createBackoff 创建退避策略
func (c *IMClient) createBackoff() *backoff.Backoff {
	return &backoff.Backoff{
		Min:    c.Config.MinRecTime,
		Max:    c.Config.MaxRecTime,
		Factor: c.Config.RecFactor,
		Jitter: true,
	}
}

// attemptConnection 尝试建立连接
func (c *IMClient) attemptConnection() error {
	var err error
	c.WebSocket.Conn, c.WebSocket.HttpResponse, err =
		c.WebSocket.Dialer.Dial(c.WebSocket.Url, c.WebSocket.RequestHeader)
	return err
}

// handleConnectError 处理连接错误
func (c *IMClient) handleConnectError(err error) {
	if f := c.onConnectError.Load(); f != nil {
		f.(func(error))(err)
	}
}

// onConnectionSuccess 连接成功后的处理
func (c *IMClient) onConnectionSuccess() {
	// 变更连接状态
	c.setConnectedState()
	// 连接成功回调
	c.notifyConnected()
	// 设置支持接受的消息最大长度
	c.WebSocket.Conn.SetReadLimit(c.Config.MaxMessageSize)
	// 设置关闭、ping 和 pong 处理
	c.setupHandlers()
	// 启动读写协程与心跳协程
	go c.readMessages()
	go c.writeMessages()
	c.startHeartbeat()
}

// setConnectedState 设置连接状态为已连接
func (c *IMClient) setConnectedState() {
	c.WebSocket.connMu.Lock()
	c.WebSocket.isConnected = true
	c.WebSocket.connMu.Unlock()
	_ = c.stateMachine.TransitionTo(ConnectionStatusConnected)
}

// notifyConnected 通知连接成功
func (c *IMClient) notifyConnected() {
	if f := c.onConnected.Load(); f != nil {
		f.(func())()
	}
}

// setupHandlers 设置关闭处理函数
func (c *IMClient) setupHandlers() {
	defaultCloseHandler := c.WebSocket.Conn.CloseHandler()
	c.WebSocket.Conn.SetCloseHandler(func(code int, text string) error {
		result := defaultCloseHandler(code, text)
		c.clean()
		if f := c.onClose.Load(); f != nil {
			f.(func(int, string))(code, text)
		}
		return result
	})
}

// startHeartbeat 启动心跳协程，按配置间隔发送心跳指令
func (c *IMClient) startHeartbeat() {
	if c.Config.HeartbeatInterval <= 0 {
		return
	}

	stopCh := make(chan struct{})
	c.mu.Lock()
	c.heartbeatCh = stopCh
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(c.Config.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if !c.IsConnected() {
					return
				}
				_ = c.SendHeartbeat()
			case <-stopCh:
				return
			}
		}
	}()
}

// stopHeartbeat 停止心跳协程
func (c *IMClient) stopHeartbeat() {
	if c.heartbeatCh != nil {
		close(c.heartbeatCh)
		c.heartbeatCh = nil
	}
}

// readMessages 启动读消息的协程
func (c *IMClient) readMessages() {
	for {
		messageType, message, err := c.WebSocket.Conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}
		c.processReceivedMessage(messageType, message)
	}
}

// handleReadError 处理读取消息时的错误
func (c *IMClient) handleReadError(err error) {
	// 异常断线，通知断线回调
	c.notifyDisconnected(err)
	// 根据配置决定是否重连
	c.handleReconnectOrClean()
}

// notifyDisconnected 通知断线
func (c *IMClient) notifyDisconnected(err error) {
	if f := c.onDisconnected.Load(); f != nil {
		f.(func(error))(err)
	}
}

// handleReconnectOrClean 根据配置决定是否重连
func (c *IMClient) handleReconnectOrClean() {
	if c.Config == nil || c.Config.AutoReconnect {
		c.closeAndRecConn()
	} else {
		c.clean()
	}
}

// processReceivedMessage 处理接收到的消息
func (c *IMClient) processReceivedMessage(messageType int, message []byte) {
	if messageType != websocket.TextMessage {
		return
	}

	// 处理消息时加锁
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatchFrame(message)
}

// dispatchFrame 解析事件帧并路由到对应的回调
func (c *IMClient) dispatchFrame(data []byte) {
	frame, err := protocol.DecodeEventFrame(data)
	if err != nil {
		return
	}

	if f := c.onFrame.Load(); f != nil {
		f.(func(*EventFrame))(frame)
	}

	switch frame.Kind {
	case ChannelKindMessages:
		if f := c.onMessageEvent.Load(); f != nil {
			if event, err := frame.DecodeMessageEvent(); err == nil {
				f.(func(*MessageEvent))(event)
			}
		}
	case ChannelKindPresence:
		if f := c.onPresenceEvent.Load(); f != nil {
			if event, err := frame.DecodePresenceEvent(); err == nil {
				f.(func(*PresenceEvent))(event)
			}
		}
	case ChannelKindUnread:
		if f := c.onUnreadEvent.Load(); f != nil {
			if event, err := frame.DecodeUnreadEvent(); err == nil {
				f.(func(*UnreadCountEvent))(event)
			}
		}
	}
}

// writeMessages 启动写消息的协程
// 该方法不断从发送消息的通道中读取消息，并将其发送到 WebSocket 连接中
func (c *IMClient) writeMessages() {
	// 捕获当前的 sendChan 引用（读锁保护期间读取）
	c.WebSocket.sendChanMu.RLock()
	sendChan := c.WebSocket.sendChan
	c.WebSocket.sendChanMu.RUnlock()
	for msg := range sendChan {
		if err := c.send(msg.T, msg.Msg); err != nil {
			// 如果发送出错，调用错误回调（如果已设置）
			if f := c.onSentError.Load(); f != nil {
				f.(func(error))(err)
			}
			continue
		}
	}
}

// CloseAndReconnect 处理断线重连
func (c *IMClient) CloseAndReconnect() {
	if c.Closed() {
		return
	}
	c.clean()
	go c.Connect()
}

// closeAndRecConn 内部方法，调用公有方法
func (c *IMClient) closeAndRecConn() {
	c.CloseAndReconnect()
}

// Close 主动关闭连接
func (c *IMClient) Close() {
	c.CloseWithMsg("")
}

// CloseWithMsg 主动关闭连接并附带消息
func (c *IMClient) CloseWithMsg(msg string) {
	if c.Closed() {
		return
	}
	_ = c.send(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, msg))
	c.clean()
	if f := c.onClose.Load(); f != nil {
		f.(func(int, string))(websocket.CloseNormalClosure, msg)
	}
}

// clean 清理资源
func (c *IMClient) clean() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 先转换状态为Disconnected,确保Closed()立即返回true
	_ = c.stateMachine.TransitionTo(ConnectionStatusDisconnected)

	c.stopHeartbeat()

	if c.WebSocket == nil {
		return
	}

	c.WebSocket.connMu.Lock()
	c.WebSocket.isConnected = false
	if c.WebSocket.Conn != nil {
		_ = c.WebSocket.Conn.Close()
	}
	// 原子关闭 sendChan（写锁保护）
	c.WebSocket.sendChanMu.Lock()
	c.WebSocket.sendChanOnce.Do(func() {
		atomic.StoreInt32(&c.WebSocket.sendChanClosed, 1)
		close(c.WebSocket.sendChan)
	})
	c.WebSocket.sendChanMu.Unlock()
	c.WebSocket.connMu.Unlock()
}
