/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-01-05 00:00:00
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-01-30 21:40:18
 * @FilePath: \go-imcore\core\lifecycle.go
 * @Description: Core 生命周期管理
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */

package core

import (
	"context"
	"time"

	"github.com/kamalyes/go-toolbox/pkg/mathx"
	"github.com/kamalyes/go-toolbox/pkg/syncx"
)

// Run 启动消息核心
func (c *Core) Run() {
	c.wg.Add(1)
	defer c.wg.Done()

	// 使用 Console 分组记录启动日志
	cg := c.logger.NewConsoleGroup()
	cg.Group("🚀 IM Core 启动")

	startTimer := cg.Time("Core 启动耗时")

	// 显示启动配置
	config := map[string]interface{}{
		"节点ID":    c.nodeID,
		"节点IP":    c.config.NodeIP,
		"节点端口":    c.config.NodePort,
		"消息缓冲大小":  c.config.MessageBufferSize,
		"心跳间隔":    c.config.HeartbeatInterval,
		"会话超时":    c.config.SessionTimeout,
		"会话策略":    c.config.SessionPolicy,
		"在线宽限期":   c.config.PresenceGraceWindow,
		"发送速率上限":  c.config.SendRatePerSecond,
	}
	cg.Table(config)

	// 设置已启动标志并通知等待的goroutine
	if c.started.CompareAndSwap(false, true) {
		startTimer.End()
		cg.Info("✅ Core 启动成功")
		cg.GroupEnd()
		close(c.startCh)
	}

	// 🌐 启动跨节点事件订阅（如果启用了 PubSub）
	if c.pubsub != nil {
		go c.startDistributedSubscriptions()
		c.logger.InfoKV("🌐 跨节点事件订阅已启动", "node_id", c.nodeID)
	}

	// 使用 EventLoop 管理定时任务
	// 会话注册/注销在 Connect/Disconnect 调用方协程内同步完成
	syncx.NewEventLoop(c.ctx).
		// 心跳检查定时器：定期检查会话心跳，清理超时会话
		OnTicker(c.config.HeartbeatInterval, c.checkHeartbeat).
		// 在线状态TTL续期定时器：有在线状态仓储时按心跳间隔刷新
		IfTicker(c.onlineStatusRepo != nil,
			mathx.IfNotZero(c.config.HeartbeatInterval, 10*time.Second),
			c.refreshOnlineTTL).
		// Panic处理：捕获事件处理过程中的panic，防止整个核心崩溃
		OnPanic(func(r interface{}) {
			c.logger.ErrorKV("Core事件循环panic", "panic", r, "node_id", c.nodeID)
		}).
		// 优雅关闭：事件循环停止时记录日志
		OnShutdown(func() {
			c.logger.InfoKV("Core事件循环已停止", "node_id", c.nodeID)
		}).
		// 运行事件循环（阻塞），直到context被取消
		Run()
}

// WaitForStart 阻塞等待核心启动完成
func (c *Core) WaitForStart() {
	<-c.startCh
}

// WaitForStartWithTimeout 带超时的等待核心启动
func (c *Core) WaitForStartWithTimeout(timeout time.Duration) error {
	select {
	case <-c.startCh:
		return nil
	case <-time.After(timeout):
		return ErrOperationTimeout
	}
}

// SafeShutdown 安全关闭核心，确保所有操作完成
func (c *Core) SafeShutdown() error {
	if c.shutdown.Load() {
		c.logger.Debug("Core已经关闭，跳过重复关闭操作")
		return nil
	}

	// 设置关闭标志（先标记避免新操作进入）
	if !c.shutdown.CompareAndSwap(false, true) {
		return nil
	}

	// 使用 Console 分组记录关闭流程
	cg := c.logger.NewConsoleGroup()
	cg.Group("🛑 IM Core 安全关闭流程")
	shutdownTimer := cg.Time("Core 关闭耗时")

	cg.Info("开始安全关闭 Core [节点: %s]", c.nodeID)

	// 停止所有在线宽限期定时器
	cg.Info("→ 停止在线宽限期定时器...")
	c.stopAllGraceTimers()

	// 关闭所有会话
	cg.Info("→ 关闭所有会话...")
	c.mutex.Lock()
	for _, session := range c.sessions {
		c.removeSessionUnsafe(session, DisconnectReasonServerShutdown)
	}
	c.mutex.Unlock()

	// 取消context（通知所有 goroutine 停止）
	cg.Info("→ 取消所有上下文...")
	c.cancel()

	// 等待一小段时间让goroutine有机会响应取消信号
	time.Sleep(10 * time.Millisecond)

	// 动态计算超时：基础超时 + (会话数 * 10ms)，上限60秒
	baseTimeout := mathx.IfNotZero(c.config.ShutdownTimeout, 5*time.Second)
	maxTimeout := 60 * time.Second

	totalSessions := c.activeSessionsCount.Load()
	calculatedTimeout := baseTimeout + time.Duration(totalSessions)*10*time.Millisecond
	if calculatedTimeout > maxTimeout {
		calculatedTimeout = maxTimeout
	}

	// 等待所有goroutine完成，带超时保护
	cg.Info("→ 等待所有协程完成...")
	done := make(chan struct{})
	syncx.Go(c.ctx).
		OnPanic(func(r any) {
			c.logger.ErrorKV("WaitGroup等待崩溃", "panic", r)
		}).
		Exec(func() {
			c.wg.Wait()
			close(done)
		})

	select {
	case <-done:
		shutdownTimer.End()
		cg.Info("✅ Core 安全关闭成功")
		cg.GroupEnd()
		return nil

	case <-time.After(calculatedTimeout):
		shutdownTimer.End()
		cg.Info("⚠️ Core 关闭超时（超时时间: %v）", calculatedTimeout)
		cg.GroupEnd()
		return ErrShutdownTimeout
	}
}

// refreshOnlineTTL 为本节点所有在线用户刷新Redis在线状态TTL
func (c *Core) refreshOnlineTTL() {
	if c.onlineStatusRepo == nil {
		return
	}

	c.mutex.RLock()
	userIDs := make([]string, 0, len(c.userToSessions))
	for userID := range c.userToSessions {
		userIDs = append(userIDs, userID)
	}
	c.mutex.RUnlock()

	if len(userIDs) == 0 {
		return
	}

	syncx.Go(c.ctx).
		WithTimeout(5 * time.Second).
		OnError(func(err error) {
			c.logger.ErrorKV("刷新在线状态TTL失败", "error", err)
		}).
		ExecWithContext(func(ctx context.Context) error {
			for _, userID := range userIDs {
				if err := c.onlineStatusRepo.RefreshTTL(ctx, userID); err != nil {
					return err
				}
			}
			return nil
		})
}
