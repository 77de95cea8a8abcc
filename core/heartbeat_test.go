/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-02-17 15:02:11
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-02-17 16:44:05
 * @FilePath: \go-imcore\core\heartbeat_test.go
 * @Description: Core 心跳维护与超时检测测试
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamalyes/go-imcore/models"
)

func TestHeartbeatRefreshesTimestamp(t *testing.T) {
	c := newTestCore(t)
	session := mustConnect(t, c, "alice")

	c.mutex.RLock()
	before := session.LastHeartbeatAt
	c.mutex.RUnlock()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, c.Heartbeat(session.ID))

	c.mutex.RLock()
	after := session.LastHeartbeatAt
	c.mutex.RUnlock()
	assert.True(t, after.After(before), "心跳应刷新时间戳")
}

func TestHeartbeatUnknownSession(t *testing.T) {
	c := newTestCore(t)
	assert.Error(t, c.Heartbeat("no-such-session"))
}

func TestHeartbeatTimeoutForcesDisconnect(t *testing.T) {
	timeoutCh := make(chan string, 1)

	c := newTestCore(t, func(cfg *models.CoreConfig) {
		cfg.HeartbeatInterval = 30 * time.Millisecond
		cfg.SessionTimeout = 60 * time.Millisecond
	})
	c.OnHeartbeatTimeout(func(sessionID, userID string, lastHeartbeat time.Time) {
		select {
		case timeoutCh <- sessionID:
		default:
		}
	})

	session := mustConnect(t, c, "alice")

	select {
	case sessionID := <-timeoutCh:
		assert.Equal(t, session.ID, sessionID)
	case <-time.After(2 * time.Second):
		t.Fatal("心跳超时未触发")
	}

	require.Eventually(t, func() bool {
		_, ok := c.GetSession(session.ID)
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestHeartbeatSweepEvictsBeyondBufferSize(t *testing.T) {
	c := newTestCore(t, func(cfg *models.CoreConfig) {
		cfg.MessageBufferSize = 1
		cfg.HeartbeatInterval = 30 * time.Millisecond
		cfg.SessionTimeout = 60 * time.Millisecond
	})

	// 单次扫描需清理的会话数远超缓冲区大小
	for i := 0; i < 4; i++ {
		mustConnect(t, c, "alice")
	}

	require.Eventually(t, func() bool {
		return c.SessionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)

	// 清理完成后核心必须仍能接入新会话
	session, err := c.Connect(context.Background(), "bob", "")
	require.NoError(t, err)
	assert.True(t, c.IsSubscribed(session.ID, ChannelKindMessages))
}

func TestHeartbeatKeepsSessionAlive(t *testing.T) {
	c := newTestCore(t, func(cfg *models.CoreConfig) {
		cfg.HeartbeatInterval = 30 * time.Millisecond
		cfg.SessionTimeout = 90 * time.Millisecond
	})

	session := mustConnect(t, c, "alice")

	// 持续心跳，会话应存活
	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		require.NoError(t, c.Heartbeat(session.ID))
		time.Sleep(20 * time.Millisecond)
	}

	_, ok := c.GetSession(session.ID)
	assert.True(t, ok, "持续心跳的会话不应被清理")
}
