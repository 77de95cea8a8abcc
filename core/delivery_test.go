/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-02-16 09:42:10
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-02-19 15:28:51
 * @FilePath: \go-imcore\core\delivery_test.go
 * @Description: Core 消息投递引擎测试
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamalyes/go-imcore/models"
	"github.com/kamalyes/go-imcore/protocol"
)

// drainFrame 从会话发送通道取出一帧并解码
func drainFrame(t *testing.T, session *Session, timeout time.Duration) *protocol.EventFrame {
	t.Helper()
	select {
	case data, ok := <-session.SendChan:
		require.True(t, ok, "发送通道不应关闭")
		frame, err := protocol.DecodeEventFrame(data)
		require.NoError(t, err)
		return frame
	case <-time.After(timeout):
		t.Fatal("等待帧超时")
		return nil
	}
}

func TestSendDeliversToOnlineRecipient(t *testing.T) {
	c := newTestCore(t)

	sender := mustConnect(t, c, "alice")
	recipient := mustConnect(t, c, "bob")

	msg, err := c.Send(context.Background(), &SendRequest{
		SenderSessionID: sender.ID,
		RecipientID:     "bob",
		ClientMsgID:     "cmsg-1",
		Body:            "hello",
	})
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "alice", msg.SenderID)
	assert.Equal(t, models.MessageTypeText, msg.Type)

	frame := drainFrame(t, recipient, time.Second)
	assert.Equal(t, ChannelKindMessages, frame.Kind)

	event, err := frame.DecodeMessageEvent()
	require.NoError(t, err)
	assert.Equal(t, "hello", event.Message.Body)
	assert.False(t, event.Echo)

	// 投递成功后消息应异步标记为已投递
	require.Eventually(t, func() bool {
		stored, err := c.messageRepo.FindByID(context.Background(), msg.ID)
		return err == nil && stored.DeliveredAt != nil
	}, time.Second, 10*time.Millisecond)
}

func TestSendEmptyBody(t *testing.T) {
	c := newTestCore(t)
	sender := mustConnect(t, c, "alice")

	_, err := c.Send(context.Background(), &SendRequest{
		SenderSessionID: sender.ID,
		RecipientID:     "bob",
		Body:            "",
	})
	assert.ErrorIs(t, err, ErrEmptyMessageBody)
}

func TestSendUnknownSenderSession(t *testing.T) {
	c := newTestCore(t)

	_, err := c.Send(context.Background(), &SendRequest{
		SenderSessionID: "no-such-session",
		RecipientID:     "bob",
		Body:            "hello",
	})
	assert.Error(t, err)
}

func TestSendUnknownRecipient(t *testing.T) {
	c := newTestCore(t)
	c.WithRecipientDirectory(RecipientDirectoryFunc(func(ctx context.Context, userID string) (bool, error) {
		return userID == "bob", nil
	}))

	sender := mustConnect(t, c, "alice")

	_, err := c.Send(context.Background(), &SendRequest{
		SenderSessionID: sender.ID,
		RecipientID:     "mallory",
		Body:            "hello",
	})
	require.Error(t, err)
	assert.True(t, models.IsUnknownRecipientError(err))
}

func TestSendDeduplicatesByClientMsgID(t *testing.T) {
	c := newTestCore(t)
	sender := mustConnect(t, c, "alice")

	first, err := c.Send(context.Background(), &SendRequest{
		SenderSessionID: sender.ID,
		RecipientID:     "bob",
		ClientMsgID:     "dup-1",
		Body:            "hello",
	})
	require.NoError(t, err)

	second, err := c.Send(context.Background(), &SendRequest{
		SenderSessionID: sender.ID,
		RecipientID:     "bob",
		ClientMsgID:     "dup-1",
		Body:            "hello again",
	})
	require.NoError(t, err)

	// 返回首次持久化的消息，不产生新消息
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "hello", second.Body)

	// 未读计数只递增一次
	count, err := c.GetUnreadCount(context.Background(), "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSendRateLimit(t *testing.T) {
	c := newTestCore(t, func(cfg *models.CoreConfig) {
		cfg.SendRatePerSecond = 2
	})
	sender := mustConnect(t, c, "alice")

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := c.Send(ctx, &SendRequest{
			SenderSessionID: sender.ID,
			RecipientID:     "bob",
			Body:            "hello",
		})
		require.NoError(t, err)
	}

	_, err := c.Send(ctx, &SendRequest{
		SenderSessionID: sender.ID,
		RecipientID:     "bob",
		Body:            "hello",
	})
	require.Error(t, err)
	assert.True(t, models.IsRateLimitError(err))
}

func TestSendEchoesToOtherSenderSessions(t *testing.T) {
	c := newTestCore(t)

	origin := mustConnect(t, c, "alice")
	other := mustConnect(t, c, "alice")

	_, err := c.Send(context.Background(), &SendRequest{
		SenderSessionID: origin.ID,
		RecipientID:     "bob",
		Body:            "hello",
	})
	require.NoError(t, err)

	// 其他会话收到回显帧
	frame := drainFrame(t, other, time.Second)
	event, err := frame.DecodeMessageEvent()
	require.NoError(t, err)
	assert.True(t, event.Echo)
	assert.Equal(t, "hello", event.Message.Body)

	// 发起会话不收到回显
	select {
	case data := <-origin.SendChan:
		frame, err := protocol.DecodeEventFrame(data)
		require.NoError(t, err)
		event, err := frame.DecodeMessageEvent()
		require.NoError(t, err)
		assert.False(t, event.Echo, "发起会话不应收到回显帧")
	case <-time.After(100 * time.Millisecond):
		// 没有帧是预期行为
	}
}

func TestUnreadIncrementsWhenRecipientOffline(t *testing.T) {
	c := newTestCore(t)
	sender := mustConnect(t, c, "alice")

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := c.Send(ctx, &SendRequest{
			SenderSessionID: sender.ID,
			RecipientID:     "bob",
			Body:            "hello",
		})
		require.NoError(t, err)
	}

	count, err := c.GetUnreadCount(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	total, err := c.GetTotalUnreadCount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestUnreadSuppressedWhenViewingConversation(t *testing.T) {
	c := newTestCore(t)

	sender := mustConnect(t, c, "alice")
	recipient := mustConnect(t, c, "bob")

	// bob 正在查看与 alice 的会话
	require.NoError(t, c.SetActiveConversation(context.Background(), recipient.ID, "alice"))

	_, err := c.Send(context.Background(), &SendRequest{
		SenderSessionID: sender.ID,
		RecipientID:     "bob",
		Body:            "hello",
	})
	require.NoError(t, err)

	count, err := c.GetUnreadCount(context.Background(), "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestMarkReadClearsUnreadAndStampsMessages(t *testing.T) {
	c := newTestCore(t)
	sender := mustConnect(t, c, "alice")

	ctx := context.Background()
	msg, err := c.Send(ctx, &SendRequest{
		SenderSessionID: sender.ID,
		RecipientID:     "bob",
		Body:            "hello",
	})
	require.NoError(t, err)

	require.NoError(t, c.MarkRead(ctx, "bob", "alice"))

	count, err := c.GetUnreadCount(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	stored, err := c.messageRepo.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.ReadAt)
	assert.Equal(t, models.MessageStatusRead, stored.Status())

	// 幂等：重复标记不报错
	assert.NoError(t, c.MarkRead(ctx, "bob", "alice"))
}

func TestMarkReadFansZeroCountToOwnerSessions(t *testing.T) {
	c := newTestCore(t)

	sender := mustConnect(t, c, "alice")
	b1 := mustConnect(t, c, "bob")
	b2 := mustConnect(t, c, "bob")

	_, err := c.Send(context.Background(), &SendRequest{
		SenderSessionID: sender.ID,
		RecipientID:     "bob",
		Body:            "hello",
	})
	require.NoError(t, err)

	// 每个接收方会话依次收到消息帧与未读计数帧
	for _, session := range []*Session{b1, b2} {
		msgFrame := drainFrame(t, session, time.Second)
		require.Equal(t, ChannelKindMessages, msgFrame.Kind)

		unreadFrame := drainFrame(t, session, time.Second)
		require.Equal(t, ChannelKindUnread, unreadFrame.Kind)
		event, err := unreadFrame.DecodeUnreadEvent()
		require.NoError(t, err)
		assert.Equal(t, int64(1), event.Count)
	}

	require.NoError(t, c.MarkRead(context.Background(), "bob", "alice"))

	// 已读后所有会话收到计数为0的帧（多端角标同步清零）
	for _, session := range []*Session{b1, b2} {
		frame := drainFrame(t, session, time.Second)
		require.Equal(t, ChannelKindUnread, frame.Kind)
		event, err := frame.DecodeUnreadEvent()
		require.NoError(t, err)
		assert.Equal(t, "alice", event.PeerID)
		assert.Zero(t, event.Count)
	}
}

func TestPendingRedeliveredOnConnect(t *testing.T) {
	c := newTestCore(t)
	sender := mustConnect(t, c, "alice")

	ctx := context.Background()
	msg, err := c.Send(ctx, &SendRequest{
		SenderSessionID: sender.ID,
		RecipientID:     "bob",
		Body:            "offline message",
	})
	require.NoError(t, err)

	stored, err := c.messageRepo.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	require.True(t, stored.IsPending(), "接收方离线时消息应保持pending")

	// bob 上线后收到补投帧
	recipient := mustConnect(t, c, "bob")
	frame := drainFrame(t, recipient, 2*time.Second)
	event, err := frame.DecodeMessageEvent()
	require.NoError(t, err)
	assert.Equal(t, "offline message", event.Message.Body)

	require.Eventually(t, func() bool {
		stored, err := c.messageRepo.FindByID(ctx, msg.ID)
		return err == nil && stored.DeliveredAt != nil
	}, time.Second, 10*time.Millisecond)
}

func TestRedeliveryBatchesWithoutDuplicates(t *testing.T) {
	c := newTestCore(t, func(cfg *models.CoreConfig) {
		cfg.RedeliveryBatchSize = 2
		cfg.RedeliveryRetry.BaseDelay = 10 * time.Millisecond
		cfg.RedeliveryRetry.MaxDelay = 20 * time.Millisecond
	})
	sender := mustConnect(t, c, "alice")

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := c.Send(ctx, &SendRequest{
			SenderSessionID: sender.ID,
			RecipientID:     "bob",
			ClientMsgID:     fmt.Sprintf("pend-%d", i),
			Body:            fmt.Sprintf("pending %d", i),
		})
		require.NoError(t, err)
	}

	// 补投分两批，批次间已投递状态先落库，同一消息只出现一次
	recipient := mustConnect(t, c, "bob")
	seen := make(map[string]bool)
	for i := 0; i < 4; i++ {
		frame := drainFrame(t, recipient, 2*time.Second)
		require.Equal(t, ChannelKindMessages, frame.Kind)
		event, err := frame.DecodeMessageEvent()
		require.NoError(t, err)
		require.False(t, seen[event.Message.ID], "消息重复补投: %s", event.Message.ID)
		seen[event.Message.ID] = true
	}

	// 追平后不得再出现消息帧
	select {
	case data, open := <-recipient.SendChan:
		require.True(t, open)
		frame, err := protocol.DecodeEventFrame(data)
		require.NoError(t, err)
		require.NotEqual(t, ChannelKindMessages, frame.Kind, "补投完成后仍收到消息帧")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestSendNormalizesLowercaseType(t *testing.T) {
	c := newTestCore(t)
	sender := mustConnect(t, c, "alice")

	msg, err := c.Send(context.Background(), &SendRequest{
		SenderSessionID: sender.ID,
		RecipientID:     "bob",
		Body:            "legacy client",
		Type:            MessageType("text"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.MessageTypeText, msg.Type)
}

func TestSendRejectsInvalidType(t *testing.T) {
	c := newTestCore(t)
	sender := mustConnect(t, c, "alice")

	_, err := c.Send(context.Background(), &SendRequest{
		SenderSessionID: sender.ID,
		RecipientID:     "bob",
		Body:            "hello",
		Type:            MessageType("voice"),
	})
	require.Error(t, err)
	assert.True(t, models.IsInvalidMessageTypeError(err))
}

