/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-16 09:42:17
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-11 16:30:05
 * @FilePath: \go-imcore\events\message_events.go
 * @Description: 私聊消息事件发布和订阅 - 跨节点投递
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */

package events

import (
	"github.com/kamalyes/go-imcore/models"
)

// PublishMessageDelivered 发布私聊消息投递事件
// 接收方在其他节点时，由目标节点的订阅回调完成本地投递
func PublishMessageDelivered(p Publisher, msg *models.Message, echo bool) {
	event := MessageEvent{
		Message: msg,
		Echo:    echo,
		NodeID:  p.GetNodeID(),
	}

	publishEventHelper(p, EventMessageDelivered, event, map[string]interface{}{
		"message_id":   msg.ID,
		"sender_id":    msg.SenderID,
		"recipient_id": msg.RecipientID,
		"echo":         echo,
	})
}

// SubscribeMessageDelivered 订阅私聊消息投递事件
// 返回取消订阅函数，调用后将停止接收该事件
func SubscribeMessageDelivered(p Publisher, handler MessageEventHandler) (func() error, error) {
	return subscribeEventHelper(p, []string{EventMessageDelivered}, handler, "私聊消息投递事件")
}
