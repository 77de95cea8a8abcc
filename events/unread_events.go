/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-16 09:47:02
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-11 16:33:28
 * @FilePath: \go-imcore\events\unread_events.go
 * @Description: 未读计数事件发布和订阅
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */

package events

import (
	"time"
)

// PublishUnreadChanged 发布未读计数变更事件
// count 为 owner 对 peer 会话的最新计数，清零时为 0
func PublishUnreadChanged(p Publisher, ownerID, peerID string, count int64) {
	event := UnreadCountEvent{
		OwnerID:   ownerID,
		PeerID:    peerID,
		Count:     count,
		Timestamp: time.Now(),
		NodeID:    p.GetNodeID(),
	}

	publishEventHelper(p, EventUnreadChanged, event, map[string]interface{}{
		"owner_id": ownerID,
		"peer_id":  peerID,
		"count":    count,
	})
}

// SubscribeUnreadChanged 订阅未读计数变更事件
// 返回取消订阅函数，调用后将停止接收该事件
func SubscribeUnreadChanged(p Publisher, handler UnreadCountEventHandler) (func() error, error) {
	return subscribeEventHelper(p, []string{EventUnreadChanged}, handler, "未读计数变更事件")
}
