/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-01-05 00:00:00
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-02-11 09:17:46
 * @FilePath: \go-imcore\core\distributed.go
 * @Description: Core 跨节点事件分发
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */

package core

import (
	"time"

	"github.com/kamalyes/go-imcore/events"
	"github.com/kamalyes/go-imcore/models"
	"github.com/kamalyes/go-imcore/protocol"
)

// ============================================================================
// 跨节点事件订阅
// ============================================================================

// startDistributedSubscriptions 订阅跨节点事件并向本地会话分发
// 发自本节点的事件已在本地处理过，直接跳过
func (c *Core) startDistributedSubscriptions() {
	if _, err := events.SubscribeMessageDelivered(c, c.handleRemoteMessageEvent); err != nil {
		c.logger.ErrorKV("订阅跨节点消息事件失败", "error", err)
	}
	if _, err := events.SubscribePresenceChanged(c, c.handleRemotePresenceEvent); err != nil {
		c.logger.ErrorKV("订阅跨节点状态事件失败", "error", err)
	}
	if _, err := events.SubscribeUnreadChanged(c, c.handleRemoteUnreadEvent); err != nil {
		c.logger.ErrorKV("订阅跨节点未读事件失败", "error", err)
	}
}

// handleRemoteMessageEvent 其他节点的消息投递事件：向本地接收方会话补发
func (c *Core) handleRemoteMessageEvent(event *models.MessageEvent) error {
	if event.NodeID == c.nodeID || event.Message == nil {
		return nil
	}

	msg := event.Message
	frame, err := protocol.NewMessageFrame(&models.MessageEvent{
		Message: msg,
		Echo:    event.Echo,
		NodeID:  event.NodeID,
	})
	if err != nil {
		return err
	}

	// 接收方本地会话投递
	if delivered := c.dispatchToUser(msg.RecipientID, ChannelKindMessages, frame); delivered > 0 {
		c.markDeliveredAsync(msg.ID)
	}

	// 发送方在本节点的会话收到回显
	if !event.Echo {
		echoFrame, err := protocol.NewMessageFrame(&models.MessageEvent{
			Message: msg,
			Echo:    true,
			NodeID:  event.NodeID,
		})
		if err == nil {
			c.dispatchToUser(msg.SenderID, ChannelKindMessages, echoFrame)
		}
	}
	return nil
}

// handleRemotePresenceEvent 其他节点的在线状态事件：广播给本地联系人会话
func (c *Core) handleRemotePresenceEvent(event *models.PresenceEvent) error {
	if event.NodeID == c.nodeID {
		return nil
	}
	at := event.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	c.fanoutPresenceToContacts(event.UserID, event.Status, at)
	return nil
}

// handleRemoteUnreadEvent 其他节点的未读计数事件：推送给本地 owner 会话
func (c *Core) handleRemoteUnreadEvent(event *models.UnreadCountEvent) error {
	if event.NodeID == c.nodeID {
		return nil
	}
	frame, err := protocol.NewUnreadFrame(event)
	if err != nil {
		return err
	}
	c.dispatchToUser(event.OwnerID, ChannelKindUnread, frame)
	return nil
}
