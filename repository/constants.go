/**
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-15 14:15:20
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-07-15 14:15:20
 * @FilePath: \go-imcore\repository\constants.go
 * @Description: Repository 层常量定义 - 统一管理 Redis key 前缀
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package repository

const (
	// ============================================================================
	// Redis Key 前缀常量 - 各模块默认前缀
	// ============================================================================

	// DefaultOnlineKeyPrefix 在线状态默认 key 前缀
	DefaultOnlineKeyPrefix = "imcore:online:"

	// DefaultUnreadKeyPrefix 未读计数默认 key 前缀
	// 完整 key 形如 imcore:unread:{ownerId}:{peerId}
	DefaultUnreadKeyPrefix = "imcore:unread:"

	// DefaultRateLimitKeyPrefix 频率限制默认 key 前缀
	DefaultRateLimitKeyPrefix = "imcore:rate_limit:"
)
