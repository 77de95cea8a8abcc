/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-01-05 00:00:00
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-02-15 09:33:18
 * @FilePath: \go-imcore\client\client.go
 * @Description: IMClient 结构体及其方法：IM 指令发送与事件帧回调
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package client

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kamalyes/go-toolbox/pkg/syncx"

	"github.com/kamalyes/go-imcore/models"
	"github.com/kamalyes/go-imcore/protocol"
)

// IMClient 结构体表示 IM WebSocket 客户端
// 封装了连接管理、自动重连、心跳维护以及 IM 指令的发送
type IMClient struct {
	mu           sync.Mutex                            // 互斥锁，用于保护并发访问
	Config       *Config                               // 配置信息
	WebSocket    *WebSocket                            // 底层 WebSocket 连接，负责实际的网络通信
	stateMachine *syncx.StateMachine[ConnectionStatus] // 连接状态机
	heartbeatCh  chan struct{}                         // 心跳协程停止信号

	// 连接相关的回调函数
	onConnected    atomic.Value // 连接成功回调 func()
	onConnectError atomic.Value // 连接错误回调 func(error)
	onDisconnected atomic.Value // 连接断开回调 func(error)
	onClose        atomic.Value // 连接关闭回调 func(int, string)

	// 事件帧相关的回调函数
	onFrame         atomic.Value // 收到任意事件帧回调 func(*EventFrame)
	onMessageEvent  atomic.Value // 收到消息帧回调 func(*MessageEvent)
	onPresenceEvent atomic.Value // 收到在线状态帧回调 func(*PresenceEvent)
	onUnreadEvent   atomic.Value // 收到未读计数帧回调 func(*UnreadCountEvent)
	onSentError     atomic.Value // 指令发送错误回调 func(error)
}

// New 创建一个新的 IMClient 客户端
// 参数 url: 服务端地址，形如 ws://host:port/ws?user_id=xxx
func New(url string) *IMClient {
	// 初始化状态机，配置允许的状态转换
	sm := syncx.NewStateMachine(ConnectionStatusDisconnected)
	sm.AllowTransitions(ConnectionStatusDisconnected, ConnectionStatusConnecting, ConnectionStatusReconnecting)
	sm.AllowTransitions(ConnectionStatusConnecting, ConnectionStatusConnected, ConnectionStatusDisconnected, ConnectionStatusError)
	sm.AllowTransitions(ConnectionStatusConnected, ConnectionStatusDisconnected, ConnectionStatusError)
	sm.AllowTransitions(ConnectionStatusReconnecting, ConnectionStatusConnected, ConnectionStatusDisconnected, ConnectionStatusError)
	sm.AllowTransitions(ConnectionStatusError, ConnectionStatusDisconnected, ConnectionStatusReconnecting)

	return &IMClient{
		Config:       DefaultConfig(),
		WebSocket:    NewWebSocket(url),
		stateMachine: sm,
	}
}

// SetConfig 设置客户端配置
func (c *IMClient) SetConfig(config *Config) {
	if config != nil {
		c.Config = config
	}
}

// WithToken 设置鉴权令牌
func (c *IMClient) WithToken(token string) *IMClient {
	c.WebSocket.WithBearerToken(token)
	return c
}

// ============================================================================
// 回调注册
// ============================================================================

// OnConnected 设置连接成功的回调
func (c *IMClient) OnConnected(f func()) {
	c.onConnected.Store(f)
}

// OnConnectError 设置连接出错的回调
func (c *IMClient) OnConnectError(f func(err error)) {
	c.onConnectError.Store(f)
}

// OnDisconnected 设置连接断开的回调
func (c *IMClient) OnDisconnected(f func(err error)) {
	c.onDisconnected.Store(f)
}

// OnClose 设置连接关闭的回调
func (c *IMClient) OnClose(f func(code int, text string)) {
	c.onClose.Store(f)
}

// OnFrame 设置收到任意事件帧的回调
func (c *IMClient) OnFrame(f func(frame *EventFrame)) {
	c.onFrame.Store(f)
}

// OnMessageEvent 设置收到消息帧的回调
func (c *IMClient) OnMessageEvent(f func(event *MessageEvent)) {
	c.onMessageEvent.Store(f)
}

// OnPresenceEvent 设置收到在线状态帧的回调
func (c *IMClient) OnPresenceEvent(f func(event *PresenceEvent)) {
	c.onPresenceEvent.Store(f)
}

// OnUnreadEvent 设置收到未读计数帧的回调
func (c *IMClient) OnUnreadEvent(f func(event *UnreadCountEvent)) {
	c.onUnreadEvent.Store(f)
}

// OnSentError 设置指令发送出错的回调
func (c *IMClient) OnSentError(f func(err error)) {
	c.onSentError.Store(f)
}

// ============================================================================
// 状态查询
// ============================================================================

// GetConnectionStatus 获取当前连接状态
func (c *IMClient) GetConnectionStatus() ConnectionStatus {
	return c.stateMachine.CurrentState()
}

// IsConnected 检查是否已连接
func (c *IMClient) IsConnected() bool {
	return c.stateMachine.CurrentState() == ConnectionStatusConnected
}

// IsConnecting 检查是否正在连接
func (c *IMClient) IsConnecting() bool {
	state := c.stateMachine.CurrentState()
	return state == ConnectionStatusConnecting || state == ConnectionStatusReconnecting
}

// IsNormalClose 检查WebSocket关闭是否为正常关闭
// 按 models.WsCloseCodeMap 的关闭码分类判定，未收录的关闭码视为异常
func IsNormalClose(err error) bool {
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		return false
	}
	if info, ok := models.WsCloseCodeMap[closeErr.Code]; ok {
		return info.IsNormal
	}
	return false
}

// CloseCodeDesc 返回WebSocket关闭码的可读描述
func CloseCodeDesc(code int) string {
	if info, ok := models.WsCloseCodeMap[code]; ok {
		return info.Desc
	}
	return "未知关闭码"
}

// ============================================================================
// IM 指令发送
// ============================================================================

// SendMessage 发送私聊消息
// clientMsgID 为幂等去重键，重连重发时服务端不会产生重复消息
func (c *IMClient) SendMessage(recipientID, clientMsgID, body string, msgType MessageType) error {
	return c.sendCommand(&protocol.ClientCommand{
		Action:      protocol.ActionSend,
		RecipientID: recipientID,
		ClientMsgID: clientMsgID,
		Body:        body,
		Type:        msgType,
	})
}

// SendHeartbeat 发送一次心跳
func (c *IMClient) SendHeartbeat() error {
	return c.sendCommand(&protocol.ClientCommand{Action: protocol.ActionHeartbeat})
}

// MarkRead 标记与 peer 的会话为已读
func (c *IMClient) MarkRead(peerID string) error {
	return c.sendCommand(&protocol.ClientCommand{
		Action: protocol.ActionMarkRead,
		PeerID: peerID,
	})
}

// SetActiveConversation 设置当前查看的会话对端，空字符串表示离开会话视图
func (c *IMClient) SetActiveConversation(peerID string) error {
	return c.sendCommand(&protocol.ClientCommand{
		Action: protocol.ActionSetActive,
		PeerID: peerID,
	})
}

// Subscribe 订阅频道
func (c *IMClient) Subscribe(kind ChannelKind) error {
	return c.sendCommand(&protocol.ClientCommand{
		Action: protocol.ActionSubscribe,
		Kind:   kind,
	})
}

// Unsubscribe 取消订阅频道
func (c *IMClient) Unsubscribe(kind ChannelKind) error {
	return c.sendCommand(&protocol.ClientCommand{
		Action: protocol.ActionUnsubscribe,
		Kind:   kind,
	})
}

// sendCommand 序列化指令并投入发送缓冲
func (c *IMClient) sendCommand(cmd *protocol.ClientCommand) error {
	data, err := cmd.Encode()
	if err != nil {
		return err
	}
	return c.enqueue(websocket.TextMessage, data)
}

// enqueue 将消息放入发送缓冲，缓冲满时立即返回错误
func (c *IMClient) enqueue(messageType int, data []byte) error {
	if c.Closed() {
		return ErrConnectionClosed
	}
	// 读锁保护 sendChan 指针与关闭标志一致性
	c.WebSocket.sendChanMu.RLock()
	defer c.WebSocket.sendChanMu.RUnlock()
	if atomic.LoadInt32(&c.WebSocket.sendChanClosed) == 1 {
		return ErrConnectionClosed
	}
	select {
	case c.WebSocket.sendChan <- &outboundMessage{T: messageType, Msg: data}:
		return nil
	default:
		return ErrMessageBufferFull
	}
}

// send 发送消息到连接端
func (c *IMClient) send(messageType int, data []byte) error {
	c.WebSocket.sendMu.Lock()
	defer c.WebSocket.sendMu.Unlock()

	// 使用读锁保护连接状态和 Conn 的访问
	c.WebSocket.connMu.RLock()
	if !c.WebSocket.isConnected {
		c.WebSocket.connMu.RUnlock()
		return ErrConnectionClosed
	}
	conn := c.WebSocket.Conn
	c.WebSocket.connMu.RUnlock()

	_ = conn.SetWriteDeadline(time.Now().Add(c.Config.WriteTimeout))
	return conn.WriteMessage(messageType, data)
}
