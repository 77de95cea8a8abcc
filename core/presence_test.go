/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-02-17 11:08:52
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-02-17 14:36:20
 * @FilePath: \go-imcore\core\presence_test.go
 * @Description: Core 在线状态与宽限期测试
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamalyes/go-imcore/models"
)

func TestPresenceOnlineOnFirstSession(t *testing.T) {
	transitions := make(chan models.PresenceStatus, 10)

	c := newTestCore(t)
	c.OnPresenceChange(func(userID string, status PresenceStatus) {
		transitions <- status
	})

	mustConnect(t, c, "alice")

	select {
	case status := <-transitions:
		assert.Equal(t, PresenceStatusOnline, status)
	case <-time.After(time.Second):
		t.Fatal("上线转换未触发")
	}

	// 同一用户的第二个会话不再触发上线转换
	mustConnect(t, c, "alice")
	select {
	case status := <-transitions:
		t.Fatalf("第二个会话不应触发状态转换，收到: %s", status)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestPresenceOfflineOnlyAfterLastSession(t *testing.T) {
	transitions := make(chan models.PresenceStatus, 10)

	c := newTestCore(t)
	c.OnPresenceChange(func(userID string, status PresenceStatus) {
		transitions <- status
	})

	s1 := mustConnect(t, c, "alice")
	s2 := mustConnect(t, c, "alice")
	<-transitions // 上线

	// 还有存活会话时不触发离线
	require.NoError(t, c.Disconnect(s1.ID, DisconnectReasonClientRequest))
	select {
	case status := <-transitions:
		t.Fatalf("仍有存活会话时不应触发状态转换，收到: %s", status)
	case <-time.After(200 * time.Millisecond):
	}

	// 最后一个会话断开后立即离线（宽限期为0）
	require.NoError(t, c.Disconnect(s2.ID, DisconnectReasonClientRequest))
	select {
	case status := <-transitions:
		assert.Equal(t, PresenceStatusOffline, status)
	case <-time.After(time.Second):
		t.Fatal("离线转换未触发")
	}
}

func TestPresenceGraceWindowSuppressesOfflineFlap(t *testing.T) {
	transitions := make(chan models.PresenceStatus, 10)

	c := newTestCore(t, func(cfg *models.CoreConfig) {
		cfg.PresenceGraceWindow = 200 * time.Millisecond
	})
	c.OnPresenceChange(func(userID string, status PresenceStatus) {
		transitions <- status
	})

	s1 := mustConnect(t, c, "alice")

	select {
	case status := <-transitions:
		assert.Equal(t, PresenceStatusOnline, status)
	case <-time.After(time.Second):
		t.Fatal("上线转换未触发")
	}

	// 断开后在宽限期内重连：不应产生离线/上线转换
	require.NoError(t, c.Disconnect(s1.ID, DisconnectReasonClientRequest))
	require.Eventually(t, func() bool {
		return !c.IsUserLocallyOnline("alice")
	}, time.Second, 5*time.Millisecond)

	mustConnect(t, c, "alice")

	select {
	case status := <-transitions:
		t.Fatalf("宽限期内重连不应产生状态转换，收到: %s", status)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestPresenceOfflineAfterGraceExpiry(t *testing.T) {
	transitions := make(chan models.PresenceStatus, 10)

	c := newTestCore(t, func(cfg *models.CoreConfig) {
		cfg.PresenceGraceWindow = 100 * time.Millisecond
	})
	c.OnPresenceChange(func(userID string, status PresenceStatus) {
		transitions <- status
	})

	s1 := mustConnect(t, c, "alice")
	<-transitions // 上线

	require.NoError(t, c.Disconnect(s1.ID, DisconnectReasonClientRequest))

	select {
	case status := <-transitions:
		assert.Equal(t, PresenceStatusOffline, status)
	case <-time.After(time.Second):
		t.Fatal("宽限期过后应触发离线转换")
	}
}

func TestPresenceFanoutToContacts(t *testing.T) {
	c := newTestCore(t)

	// bob 先在线，作为 alice 的联系人接收状态帧
	bob := mustConnect(t, c, "bob")

	mustConnect(t, c, "alice")

	frame := drainFrame(t, bob, time.Second)
	require.Equal(t, ChannelKindPresence, frame.Kind)

	event, err := frame.DecodePresenceEvent()
	require.NoError(t, err)
	assert.Equal(t, "alice", event.UserID)
	assert.Equal(t, PresenceStatusOnline, event.Status)
}
