/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-01-05 00:00:00
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-02-06 18:43:27
 * @FilePath: \go-imcore\core\delivery.go
 * @Description: Core 消息投递引擎：发送管线、回显与离线补投
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */

package core

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
	"github.com/kamalyes/go-sqlbuilder"
	"github.com/kamalyes/go-toolbox/pkg/errorx"
	"github.com/kamalyes/go-toolbox/pkg/mathx"
	"github.com/kamalyes/go-toolbox/pkg/syncx"

	"github.com/kamalyes/go-imcore/events"
	"github.com/kamalyes/go-imcore/models"
	"github.com/kamalyes/go-imcore/protocol"
)

// ============================================================================
// 发送管线
// ============================================================================

// SendRequest 发送请求参数
type SendRequest struct {
	SenderSessionID string                 // 发起发送的会话ID
	RecipientID     string                 // 接收方用户ID
	ClientMsgID     string                 // 客户端消息ID（幂等去重键）
	Body            string                 // 消息体
	Type            MessageType            // 消息类型，空值时默认TEXT
	Metadata        map[string]interface{} // 附加元数据
}

// Send 执行完整发送管线：限流、收件人校验、幂等去重、持久化、投递、回显、未读计数
// 重复的 (sender, client_msg_id) 返回首次持久化的消息且不产生任何副作用
func (c *Core) Send(ctx context.Context, req *SendRequest) (*Message, error) {
	if !c.IsRunning() {
		return nil, ErrCoreNotRunning
	}
	if c.messageRepo == nil {
		return nil, ErrRepositoryNotSet
	}

	senderSession, ok := c.GetSession(req.SenderSessionID)
	if !ok {
		return nil, errorx.NewError(ErrTypeSessionNotFound, req.SenderSessionID)
	}
	senderID := senderSession.UserID

	if req.Body == "" {
		return nil, ErrEmptyMessageBody
	}

	// 消息类型归一并校验，空值默认TEXT
	msgType := mathx.IfEmpty(req.Type, models.MessageTypeText).Normalize()
	if !msgType.IsValid() {
		return nil, errorx.NewError(ErrTypeInvalidMessageType, string(req.Type))
	}

	// 发送速率限制
	if err := c.rateLimiter.Allow(ctx, senderID); err != nil {
		return nil, err
	}

	// 收件人必须是系统已知用户
	if err := c.ensureRecipientKnown(ctx, req.RecipientID); err != nil {
		return nil, err
	}

	// 幂等去重：同一发送方的相同 client_msg_id 直接返回已持久化的消息
	if req.ClientMsgID != "" {
		existing, err := c.messageRepo.FindByClientMsgID(ctx, senderID, req.ClientMsgID)
		if err != nil {
			return nil, errorx.WrapError("dedup lookup failed", err)
		}
		if existing != nil {
			c.logger.DebugKV("重复消息去重",
				"sender_id", senderID,
				"client_msg_id", req.ClientMsgID,
				"message_id", existing.ID,
			)
			return existing, nil
		}
	}

	msg := &Message{
		ID:          c.NextMessageID(),
		SenderID:    senderID,
		RecipientID: req.RecipientID,
		Body:        req.Body,
		Type:        msgType,
		ClientMsgID: req.ClientMsgID,
		Metadata:    sqlbuilder.MapAny(req.Metadata),
		CreatedAt:   time.Now(),
	}

	// 先持久化再投递，保证至少一次语义
	if err := c.messageRepo.Create(ctx, msg); err != nil {
		c.logger.ErrorKV("消息持久化失败",
			"message_id", msg.ID,
			"sender_id", senderID,
			"recipient_id", req.RecipientID,
			"error", err,
		)
		return nil, ErrPersistFailed
	}
	c.messagesSent.Add(1)

	// 本节点投递（接收方不在线时消息保持 pending，等待重连补投）
	delivered := c.deliverToLocalSessions(ctx, msg)

	// 回显到发送方的其他会话
	c.echoToSenderSessions(msg, req.SenderSessionID)

	// 未读计数：接收方没有会话正在查看该发送方时递增
	c.bumpUnreadOnSend(ctx, msg)

	// 📡 发布跨节点投递事件（其他节点向各自的本地会话分发）
	go events.PublishMessageDelivered(c, msg, false)

	c.logger.InfoKV("消息发送完成",
		"message_id", msg.ID,
		"sender_id", senderID,
		"recipient_id", req.RecipientID,
		"local_delivered", delivered,
	)
	return msg, nil
}

// ensureRecipientKnown 校验收件人是否为系统已知用户
func (c *Core) ensureRecipientKnown(ctx context.Context, recipientID string) error {
	if recipientID == "" {
		return errorx.NewError(ErrTypeUnknownRecipient, recipientID)
	}
	if c.recipientDirectory == nil {
		return nil
	}
	known, err := c.recipientDirectory.Exists(ctx, recipientID)
	if err != nil {
		return errorx.WrapError("recipient lookup failed", err)
	}
	if !known {
		return errorx.NewError(ErrTypeUnknownRecipient, recipientID)
	}
	return nil
}

// deliverToLocalSessions 向接收方本节点会话投递消息帧，成功时标记已投递
func (c *Core) deliverToLocalSessions(ctx context.Context, msg *Message) int {
	frame, err := protocol.NewMessageFrame(&models.MessageEvent{
		Message: msg,
		Echo:    false,
		NodeID:  c.nodeID,
	})
	if err != nil {
		c.logger.ErrorKV("消息帧构建失败", "message_id", msg.ID, "error", err)
		return 0
	}

	delivered := c.dispatchToUser(msg.RecipientID, ChannelKindMessages, frame)
	if delivered > 0 {
		c.markDeliveredAsync(msg.ID)
	}
	return delivered
}

// echoToSenderSessions 将消息回显到发送方除发起会话外的其他会话
func (c *Core) echoToSenderSessions(msg *Message, originSessionID string) {
	frame, err := protocol.NewMessageFrame(&models.MessageEvent{
		Message: msg,
		Echo:    true,
		NodeID:  c.nodeID,
	})
	if err != nil {
		c.logger.ErrorKV("回显帧构建失败", "message_id", msg.ID, "error", err)
		return
	}
	c.dispatchToUserExcept(msg.SenderID, ChannelKindMessages, frame, originSessionID)
}

// bumpUnreadOnSend 发送后的未读计数处理
// 接收方任一会话正在查看该发送方的会话时抑制递增
func (c *Core) bumpUnreadOnSend(ctx context.Context, msg *Message) {
	if c.unreadRepo == nil {
		return
	}
	if c.isRecipientViewingSender(msg.RecipientID, msg.SenderID) {
		c.logger.DebugKV("接收方正在查看会话，抑制未读递增",
			"recipient_id", msg.RecipientID,
			"sender_id", msg.SenderID,
		)
		return
	}

	count, err := c.unreadRepo.Increment(ctx, msg.RecipientID, msg.SenderID)
	if err != nil {
		c.logger.ErrorKV("未读计数递增失败",
			"owner_id", msg.RecipientID,
			"peer_id", msg.SenderID,
			"error", err,
		)
		return
	}

	c.publishUnreadCount(msg.RecipientID, msg.SenderID, count)
}

// isRecipientViewingSender 接收方是否有会话正在查看发送方的会话
func (c *Core) isRecipientViewingSender(recipientID, senderID string) bool {
	for _, session := range c.GetUserSessions(recipientID) {
		if session.ActivePeer() == senderID {
			return true
		}
	}
	return false
}

// markDelivered 标记消息已投递并累加投递计数
func (c *Core) markDelivered(ctx context.Context, messageIDs []string) error {
	if err := c.messageRepo.MarkDelivered(ctx, messageIDs, time.Now()); err != nil {
		return err
	}
	c.messagesDelivered.Add(int64(len(messageIDs)))
	return nil
}

// markDeliveredAsync 异步标记消息已投递（在线投递热路径使用）
func (c *Core) markDeliveredAsync(messageIDs ...string) {
	syncx.Go(c.ctx).
		WithTimeout(3 * time.Second).
		OnError(func(err error) {
			c.logger.ErrorKV("标记消息已投递失败", "message_ids", messageIDs, "error", err)
		}).
		ExecWithContext(func(ctx context.Context) error {
			return c.markDelivered(ctx, messageIDs)
		})
}

// ============================================================================
// 离线补投
// ============================================================================

// redeliverPendingOnConnect 会话接入后补投 pending 消息
// 按批次拉取，批次之间按重试策略退避，避免重连风暴下的数据库压力
func (c *Core) redeliverPendingOnConnect(session *Session) {
	if c.messageRepo == nil {
		return
	}

	defer syncx.RecoverWithHandler(func(r interface{}) {
		c.logger.ErrorKV("离线补投panic",
			"session_id", session.ID,
			"user_id", session.UserID,
			"panic", r,
		)
	})

	retry := c.config.RedeliveryRetry
	b := &backoff.Backoff{
		Min:    retry.BaseDelay,
		Max:    retry.MaxDelay,
		Factor: retry.BackoffFactor,
		Jitter: retry.Jitter,
	}

	totalRedelivered := 0
	for {
		if session.IsClosed() || c.shutdown.Load() {
			return
		}

		ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
		pending, err := c.messageRepo.FindPending(ctx, session.UserID, c.config.RedeliveryBatchSize)
		cancel()
		if err != nil {
			c.logger.ErrorKV("拉取pending消息失败",
				"user_id", session.UserID,
				"error", err,
			)
			return
		}
		if len(pending) == 0 {
			break
		}

		deliveredIDs := make([]string, 0, len(pending))
		for _, msg := range pending {
			frame, err := protocol.NewMessageFrame(&models.MessageEvent{
				Message: msg,
				Echo:    false,
				NodeID:  c.nodeID,
			})
			if err != nil {
				continue
			}
			data, err := frame.Encode()
			if err != nil {
				continue
			}
			if session.TrySend(data) {
				deliveredIDs = append(deliveredIDs, msg.ID)
				totalRedelivered++
			}
		}

		// 同步落库后再拉下一批，否则下一次 FindPending 会重复取到本批消息
		if len(deliveredIDs) > 0 {
			markCtx, markCancel := context.WithTimeout(c.ctx, 5*time.Second)
			err := c.markDelivered(markCtx, deliveredIDs)
			markCancel()
			if err != nil {
				c.logger.ErrorKV("补投批次标记已投递失败",
					"user_id", session.UserID,
					"message_ids", deliveredIDs,
					"error", err,
				)
				return
			}
		}

		// 不足一批说明已经追平
		if len(pending) < c.config.RedeliveryBatchSize {
			break
		}

		select {
		case <-time.After(b.Duration()):
		case <-c.ctx.Done():
			return
		}
	}

	if totalRedelivered > 0 {
		c.logger.InfoKV("离线补投完成",
			"session_id", session.ID,
			"user_id", session.UserID,
			"redelivered", totalRedelivered,
		)
	}
}
