/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-16 09:36:51
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-11 16:22:48
 * @FilePath: \go-imcore\events\presence_events.go
 * @Description: 在线状态事件发布和订阅
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */

package events

import (
	"time"
)

// PublishPresenceOnline 发布用户上线事件
func PublishPresenceOnline(p Publisher, userID string) {
	publishPresence(p, userID, PresenceStatusOnline)
}

// PublishPresenceOffline 发布用户下线事件
func PublishPresenceOffline(p Publisher, userID string) {
	publishPresence(p, userID, PresenceStatusOffline)
}

func publishPresence(p Publisher, userID string, status PresenceStatus) {
	event := PresenceEvent{
		UserID:    userID,
		Status:    status,
		Timestamp: time.Now(),
		NodeID:    p.GetNodeID(),
	}

	publishEventHelper(p, EventPresenceChanged, event, map[string]interface{}{
		"user_id": userID,
		"status":  status,
	})
}

// SubscribePresenceChanged 订阅在线状态变更事件
// 返回取消订阅函数，调用后将停止接收该事件
func SubscribePresenceChanged(p Publisher, handler PresenceEventHandler) (func() error, error) {
	return subscribeEventHelper(p, []string{EventPresenceChanged}, handler, "在线状态变更事件")
}
