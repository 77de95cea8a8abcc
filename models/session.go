/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-14 10:20:36
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-27 15:02:11
 * @FilePath: \go-imcore\models\session.go
 * @Description: 会话结构体定义
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package models

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Session 已认证的逻辑连接
// 一次成功的 connect 产生一个 Session，同一用户可能并存多个
type Session struct {
	ID              string                 `json:"id"`                // 会话ID
	UserID          string                 `json:"user_id"`           // 用户ID
	ClientIP        string                 `json:"client_ip"`         // 客户端IP
	Conn            *websocket.Conn        `json:"-"`                 // WebSocket连接（不序列化，可为空）
	ConnectedAt     time.Time              `json:"connected_at"`      // 连接时间
	LastHeartbeatAt time.Time              `json:"last_heartbeat_at"` // 最后心跳时间
	NodeID          string                 `json:"node_id"`           // 所在节点ID
	Metadata        map[string]interface{} `json:"metadata"`          // 元数据
	SendChan        chan []byte            `json:"-"`                 // 发送通道（不序列化）
	Context         context.Context        `json:"-"`                 // 上下文（不序列化）
	closed          atomic.Bool            `json:"-"`                 // channel关闭标志（不序列化）
	CloseMu         sync.Mutex             `json:"-"`                 // 保护channel关闭的互斥锁（不序列化）

	// activePeer 记录会话当前正在查看的对端会话，投递时据此跳过未读递增
	activePeer atomic.Value `json:"-"`
}

// NewSession 创建新的会话实例
func NewSession(id, userID string) *Session {
	now := time.Now()
	return &Session{
		ID:              id,
		UserID:          userID,
		ConnectedAt:     now,
		LastHeartbeatAt: now,
		Metadata:        make(map[string]interface{}),
		Context:         context.Background(),
	}
}

// WithClientIP 设置客户端IP
func (s *Session) WithClientIP(ip string) *Session {
	s.ClientIP = ip
	return s
}

// WithWebSocketConn 设置WebSocket连接
func (s *Session) WithWebSocketConn(conn *websocket.Conn) *Session {
	s.Conn = conn
	return s
}

// WithNodeID 设置节点ID
func (s *Session) WithNodeID(nodeID string) *Session {
	s.NodeID = nodeID
	return s
}

// WithSendChan 设置发送通道
func (s *Session) WithSendChan(ch chan []byte) *Session {
	s.SendChan = ch
	return s
}

// WithContext 设置上下文
func (s *Session) WithContext(ctx context.Context) *Session {
	s.Context = ctx
	return s
}

// WithMetadata 设置元数据
func (s *Session) WithMetadata(key string, value interface{}) *Session {
	if s.Metadata == nil {
		s.Metadata = make(map[string]interface{})
	}
	s.Metadata[key] = value
	return s
}

// GetClientIP 获取客户端IP地址
func (s *Session) GetClientIP() string {
	if s.ClientIP != "" {
		return s.ClientIP
	}
	if s.Conn != nil {
		if remoteAddr := s.Conn.RemoteAddr(); remoteAddr != nil {
			if host, _, err := net.SplitHostPort(remoteAddr.String()); err == nil {
				return host
			}
			return remoteAddr.String()
		}
	}
	return "unknown"
}

// Touch 刷新最后心跳时间
func (s *Session) Touch() {
	s.LastHeartbeatAt = time.Now()
}

// SetActivePeer 标记会话当前正在查看的对端，空串表示未查看任何会话
func (s *Session) SetActivePeer(peerID string) {
	s.activePeer.Store(peerID)
}

// ActivePeer 获取会话当前正在查看的对端
func (s *Session) ActivePeer() string {
	if v := s.activePeer.Load(); v != nil {
		return v.(string)
	}
	return ""
}

// IsClosed 检查会话channel是否已关闭
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// MarkClosed 标记会话channel为已关闭
func (s *Session) MarkClosed() {
	s.closed.Store(true)
}

// TrySend 尝试向会话发送数据，已关闭或缓冲区满则返回false
func (s *Session) TrySend(data []byte) bool {
	s.CloseMu.Lock()
	defer s.CloseMu.Unlock()

	if s.IsClosed() || s.SendChan == nil {
		return false
	}

	select {
	case s.SendChan <- data:
		return true
	default:
		return false
	}
}

// ============================================================================
// WebSocket Close Code 配置
// ============================================================================

// WsCloseCodeMap WebSocket 关闭码映射表 (RFC 6455, section 11.7)
var WsCloseCodeMap = map[int]struct {
	IsNormal bool   // 是否正常关闭
	Desc     string // 描述
}{
	websocket.CloseNormalClosure: {IsNormal: true, Desc: "正常关闭"},
	websocket.CloseGoingAway:     {IsNormal: true, Desc: "客户端离开（关闭标签页/浏览器）"},

	websocket.CloseProtocolError:           {IsNormal: false, Desc: "协议错误"},
	websocket.CloseUnsupportedData:         {IsNormal: false, Desc: "不支持的数据类型"},
	websocket.CloseNoStatusReceived:        {IsNormal: false, Desc: "未收到状态码"},
	websocket.CloseInvalidFramePayloadData: {IsNormal: false, Desc: "无效的帧数据"},

	websocket.ClosePolicyViolation: {IsNormal: false, Desc: "策略违规"},
	websocket.CloseMessageTooBig:   {IsNormal: false, Desc: "消息过大"},

	websocket.CloseInternalServerErr: {IsNormal: false, Desc: "服务器内部错误"},
	websocket.CloseServiceRestart:    {IsNormal: false, Desc: "服务重启"},
	websocket.CloseTryAgainLater:     {IsNormal: false, Desc: "稍后重试"},

	websocket.CloseAbnormalClosure: {IsNormal: false, Desc: "异常关闭（网络中断/连接丢失）"},
	websocket.CloseTLSHandshake:    {IsNormal: false, Desc: "TLS握手失败"},
}
