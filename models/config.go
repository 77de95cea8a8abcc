/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-14 10:02:47
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-27 14:31:50
 * @FilePath: \go-imcore\models\config.go
 * @Description: 核心配置结构体
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package models

import (
	"fmt"
	"time"

	"github.com/kamalyes/go-toolbox/pkg/osx"
	"github.com/kamalyes/go-toolbox/pkg/safe"
)

// RetryPolicy 离线消息补推的退避策略
type RetryPolicy struct {
	BaseDelay     time.Duration // 初始延迟
	MaxDelay      time.Duration // 最大延迟
	BackoffFactor float64       // 退避因子
	Jitter        bool          // 是否启用抖动
}

// CoreConfig 即时通讯核心配置
type CoreConfig struct {
	NodeIP               string        // 节点IP，用于生成节点标识
	NodePort             int           // 节点端口
	HeartbeatInterval    time.Duration // 心跳间隔，客户端按此周期上报
	SessionTimeout       time.Duration // 会话超时，超过该时长未收到心跳则强制断开（默认两个心跳间隔）
	SessionPolicy        SessionPolicy // 同用户重复连接策略
	MaxSessionsPerUser   int           // 每用户最大会话数（multi策略下生效，0表示不限制）
	PresenceGraceWindow  time.Duration // 最后一个会话断开后的离线宽限期，0表示立即离线
	PresenceTTL          time.Duration // 在线状态记录的存活时间，防止节点崩溃泄漏在线状态
	SendRatePerSecond    int           // 每发送方每秒消息配额，0表示不限制
	MessageBufferSize    int           // 每会话发送缓冲区大小
	RedeliveryBatchSize  int           // 重连补推时每批消息数
	RedeliveryRetry      RetryPolicy   // 补推批次间的退避策略
	ShutdownTimeout      time.Duration // 优雅关闭超时
}

// DefaultCoreConfig 创建默认配置
func DefaultCoreConfig() *CoreConfig {
	return &CoreConfig{
		NodeIP:              "127.0.0.1",
		NodePort:            8080,
		HeartbeatInterval:   10 * time.Second,
		SessionTimeout:      20 * time.Second,
		SessionPolicy:       SessionPolicyMulti,
		MaxSessionsPerUser:  0,
		PresenceGraceWindow: 0,
		PresenceTTL:         5 * time.Minute,
		SendRatePerSecond:   0,
		MessageBufferSize:   256,
		RedeliveryBatchSize: 50,
		RedeliveryRetry: RetryPolicy{
			BaseDelay:     100 * time.Millisecond,
			MaxDelay:      2 * time.Second,
			BackoffFactor: 2.0,
			Jitter:        true,
		},
		ShutdownTimeout: 10 * time.Second,
	}
}

// WithNodeInfo 设置节点信息并返回当前配置对象
func (c *CoreConfig) WithNodeInfo(ip string, port int) *CoreConfig {
	c.NodeIP = ip
	c.NodePort = port
	return c
}

// WithHeartbeatInterval 设置心跳间隔，会话超时同步调整为两个心跳间隔
func (c *CoreConfig) WithHeartbeatInterval(d time.Duration) *CoreConfig {
	c.HeartbeatInterval = d
	c.SessionTimeout = 2 * d
	return c
}

// WithSessionTimeout 设置会话超时并返回当前配置对象
func (c *CoreConfig) WithSessionTimeout(d time.Duration) *CoreConfig {
	c.SessionTimeout = d
	return c
}

// WithSessionPolicy 设置会话策略并返回当前配置对象
func (c *CoreConfig) WithSessionPolicy(p SessionPolicy) *CoreConfig {
	c.SessionPolicy = p
	return c
}

// WithMaxSessionsPerUser 设置每用户最大会话数并返回当前配置对象
func (c *CoreConfig) WithMaxSessionsPerUser(n int) *CoreConfig {
	c.MaxSessionsPerUser = n
	return c
}

// WithPresenceGraceWindow 设置离线宽限期并返回当前配置对象
func (c *CoreConfig) WithPresenceGraceWindow(d time.Duration) *CoreConfig {
	c.PresenceGraceWindow = d
	return c
}

// WithPresenceTTL 设置在线状态存活时间并返回当前配置对象
func (c *CoreConfig) WithPresenceTTL(d time.Duration) *CoreConfig {
	c.PresenceTTL = d
	return c
}

// WithSendRatePerSecond 设置发送速率配额并返回当前配置对象
func (c *CoreConfig) WithSendRatePerSecond(n int) *CoreConfig {
	c.SendRatePerSecond = n
	return c
}

// WithMessageBufferSize 设置会话发送缓冲区大小并返回当前配置对象
func (c *CoreConfig) WithMessageBufferSize(size int) *CoreConfig {
	c.MessageBufferSize = size
	return c
}

// WithRedeliveryBatchSize 设置补推批大小并返回当前配置对象
func (c *CoreConfig) WithRedeliveryBatchSize(n int) *CoreConfig {
	c.RedeliveryBatchSize = n
	return c
}

// WithRedeliveryRetry 设置补推退避策略并返回当前配置对象
func (c *CoreConfig) WithRedeliveryRetry(p RetryPolicy) *CoreConfig {
	c.RedeliveryRetry = p
	return c
}

// WithShutdownTimeout 设置优雅关闭超时并返回当前配置对象
func (c *CoreConfig) WithShutdownTimeout(d time.Duration) *CoreConfig {
	c.ShutdownTimeout = d
	return c
}

// NodeID 生成节点标识，统一使用短哈希格式
// 优先级：
// 1. 环境变量 POD_NAME（K8s推荐）
// 2. 环境变量 HOSTNAME（容器环境）
// 3. 环境变量 NODE_ID（自定义）
// 4. IP-Port（传统方式）
func (c *CoreConfig) NodeID() string {
	raw := osx.Getenv("POD_NAME", "")
	if raw == "" {
		raw = osx.Getenv("HOSTNAME", "")
	}
	if raw == "" {
		raw = osx.Getenv("NODE_ID", "")
	}
	if raw == "" {
		raw = fmt.Sprintf("%s-%d", c.NodeIP, c.NodePort)
	}
	return safe.ShortHash(raw)
}
