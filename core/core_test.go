/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-02-16 09:10:22
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-02-18 11:47:35
 * @FilePath: \go-imcore\core\core_test.go
 * @Description: Core 会话注册与订阅路由测试
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

	"github.com/kamalyes/go-imcore/middleware"
	"github.com/kamalyes/go-imcore/models"
	"github.com/kamalyes/go-imcore/repository"
)

// newTestCore 创建测试核心：内存仓储、空日志器、快速心跳
func newTestCore(t *testing.T, opts ...func(*models.CoreConfig)) *Core {
	t.Helper()

	config := models.DefaultCoreConfig().
		WithNodeInfo("127.0.0.1", 18080).
		WithHeartbeatInterval(50 * time.Millisecond).
		WithSessionTimeout(time.Minute)
	for _, opt := range opts {
		opt(config)
	}

	c := NewCore(config).
		WithLogger(middleware.NewNoOpLogger()).
		WithMessageRepository(repository.NewMemoryMessageRepository()).
		WithUnreadRepository(repository.NewMemoryUnreadRepository())

	go c.Run()
	c.WaitForStart()
	t.Cleanup(func() {
		_ = c.SafeShutdown()
	})
	return c
}

// mustConnect 建立会话，Connect 返回时注册已同步完成
func mustConnect(t *testing.T, c *Core, userID string) *Session {
	t.Helper()

	session, err := c.Connect(context.Background(), userID, "")
	require.NoError(t, err)
	require.NotNil(t, session)
	require.True(t, c.IsSubscribed(session.ID, ChannelKindMessages))

	// 留给异步补投协程完成空集排空，避免与后续发送交错
	time.Sleep(20 * time.Millisecond)
	return session
}

func TestNewCoreDefaults(t *testing.T) {
	c := NewCore(nil)
	defer c.cancel()

	assert.NotEmpty(t, c.GetNodeID())
	assert.NotNil(t, c.GetConfig())
	assert.NotNil(t, c.GetIDGenerator())
	assert.Equal(t, int64(0), c.SessionCount())
	assert.False(t, c.IsRunning())
}

func TestConnectRejectedBeforeRun(t *testing.T) {
	c := NewCore(models.DefaultCoreConfig()).
		WithLogger(middleware.NewNoOpLogger())
	defer c.cancel()

	_, err := c.Connect(context.Background(), "user1", "")
	assert.ErrorIs(t, err, ErrCoreNotRunning)
}

func TestConnectRegistersSession(t *testing.T) {
	c := newTestCore(t)

	session := mustConnect(t, c, "user1")

	assert.Equal(t, "user1", session.UserID)
	assert.Equal(t, c.GetNodeID(), session.NodeID)
	assert.Equal(t, int64(1), c.SessionCount())
	assert.True(t, c.IsUserLocallyOnline("user1"))

	got, ok := c.GetSession(session.ID)
	require.True(t, ok)
	assert.Same(t, session, got)
}

func TestConnectAuthFailure(t *testing.T) {
	c := newTestCore(t)
	c.WithTokenValidator(middleware.NewJWTValidator([]byte("secret")))

	_, err := c.Connect(context.Background(), "user1", "not-a-jwt")
	require.Error(t, err)
	assert.True(t, models.IsAuthError(err))
	assert.Equal(t, int64(0), c.SessionCount())
}

func TestMultiSessionPolicy(t *testing.T) {
	c := newTestCore(t)

	s1 := mustConnect(t, c, "user1")
	s2 := mustConnect(t, c, "user1")

	assert.NotEqual(t, s1.ID, s2.ID)
	assert.Len(t, c.GetUserSessions("user1"), 2)
}

func TestRejectSessionPolicy(t *testing.T) {
	c := newTestCore(t, func(cfg *models.CoreConfig) {
		cfg.SessionPolicy = models.SessionPolicyReject
	})

	mustConnect(t, c, "user1")

	_, err := c.Connect(context.Background(), "user1", "")
	require.Error(t, err)
	assert.True(t, models.IsAlreadyConnectedError(err))
	assert.Len(t, c.GetUserSessions("user1"), 1)
}

func TestMaxSessionsPerUserKicksOldest(t *testing.T) {
	c := newTestCore(t, func(cfg *models.CoreConfig) {
		cfg.MaxSessionsPerUser = 2
	})

	s1 := mustConnect(t, c, "user1")
	mustConnect(t, c, "user1")
	mustConnect(t, c, "user1")

	assert.Len(t, c.GetUserSessions("user1"), 2)
	_, ok := c.GetSession(s1.ID)
	assert.False(t, ok, "最早的会话应被踢出")
}

func TestDisconnectRemovesSession(t *testing.T) {
	c := newTestCore(t)

	session := mustConnect(t, c, "user1")
	require.NoError(t, c.Disconnect(session.ID, DisconnectReasonClientRequest))

	_, ok := c.GetSession(session.ID)
	assert.False(t, ok)
	assert.False(t, c.IsUserLocallyOnline("user1"))
	assert.True(t, session.IsClosed())
	assert.False(t, c.IsSubscribed(session.ID, ChannelKindMessages))
}

func TestDisconnectTearsDownBeforeReturn(t *testing.T) {
	c := newTestCore(t)

	sender := mustConnect(t, c, "alice")
	recipient := mustConnect(t, c, "bob")

	require.NoError(t, c.Disconnect(recipient.ID, DisconnectReasonClientRequest))

	// Disconnect 返回后立即检查，不允许依赖后台清理
	assert.False(t, c.IsSubscribed(recipient.ID, ChannelKindMessages))
	assert.False(t, c.IsSubscribed(recipient.ID, ChannelKindPresence))
	assert.False(t, c.IsSubscribed(recipient.ID, ChannelKindUnread))
	_, ok := c.GetSession(recipient.ID)
	assert.False(t, ok)

	// 断开后的发送不得再投递到该会话
	_, err := c.Send(context.Background(), &SendRequest{
		SenderSessionID: sender.ID,
		RecipientID:     "bob",
		Body:            "after disconnect",
	})
	require.NoError(t, err)

	select {
	case data, open := <-recipient.SendChan:
		require.False(t, open, "已断开的会话不应再收到帧: %s", string(data))
	default:
	}
}

func TestDisconnectUnknownSession(t *testing.T) {
	c := newTestCore(t)

	err := c.Disconnect("no-such-session", DisconnectReasonClientRequest)
	assert.Error(t, err)
}

func TestKickUserClosesAllSessions(t *testing.T) {
	c := newTestCore(t)

	mustConnect(t, c, "user1")
	mustConnect(t, c, "user1")

	kicked := c.KickUser("user1", DisconnectReasonServerShutdown)
	assert.Equal(t, 2, kicked)
	assert.False(t, c.IsUserLocallyOnline("user1"))
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	c := newTestCore(t)
	session := mustConnect(t, c, "user1")

	// 默认订阅全部频道
	assert.True(t, c.IsSubscribed(session.ID, ChannelKindMessages))
	assert.True(t, c.IsSubscribed(session.ID, ChannelKindPresence))
	assert.True(t, c.IsSubscribed(session.ID, ChannelKindUnread))

	// 重复订阅返回错误
	err := c.Subscribe(session.ID, ChannelKindMessages)
	assert.Error(t, err)

	// 取消后可重新订阅
	c.Unsubscribe(session.ID, ChannelKindPresence)
	assert.False(t, c.IsSubscribed(session.ID, ChannelKindPresence))
	assert.NoError(t, c.Subscribe(session.ID, ChannelKindPresence))
}

func TestSubscribeInvalidKind(t *testing.T) {
	c := newTestCore(t)
	session := mustConnect(t, c, "user1")

	err := c.Subscribe(session.ID, ChannelKind("bogus"))
	assert.Error(t, err)
}

func TestSubscribeUnknownSession(t *testing.T) {
	c := newTestCore(t)

	err := c.Subscribe("no-such-session", ChannelKindMessages)
	assert.Error(t, err)
}

func TestSessionConnectCallback(t *testing.T) {
	connected := make(chan string, 1)

	c := newTestCore(t)
	c.OnSessionConnect(func(ctx context.Context, session *Session) error {
		connected <- session.UserID
		return nil
	})

	mustConnect(t, c, "user1")

	select {
	case userID := <-connected:
		assert.Equal(t, "user1", userID)
	case <-time.After(time.Second):
		t.Fatal("连接回调未触发")
	}
}

func TestGetStats(t *testing.T) {
	c := newTestCore(t)

	sender := mustConnect(t, c, "alice")
	mustConnect(t, c, "bob")

	_, err := c.Send(context.Background(), &SendRequest{
		SenderSessionID: sender.ID,
		RecipientID:     "bob",
		Body:            "hello",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return c.GetStats().MessagesDelivered == 1
	}, time.Second, 10*time.Millisecond)

	stats := c.GetStats()
	assert.Equal(t, 2, stats.TotalSessions)
	assert.Equal(t, 2, stats.OnlineUsers)
	assert.Equal(t, int64(1), stats.MessagesSent)
	assert.GreaterOrEqual(t, stats.Uptime, int64(0))
}

func TestSafeShutdownIdempotent(t *testing.T) {
	config := models.DefaultCoreConfig()
	c := NewCore(config).WithLogger(middleware.NewNoOpLogger())

	go c.Run()
	c.WaitForStart()

	assert.NoError(t, c.SafeShutdown())
	assert.NoError(t, c.SafeShutdown())
	assert.False(t, c.IsRunning())
}
