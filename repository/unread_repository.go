/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-15 15:22:47
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-28 11:40:02
 * @FilePath: \go-imcore\repository\unread_repository.go
 * @Description: 未读计数仓库 - 支持 Redis 分布式存储，附带内存实现
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/kamalyes/go-toolbox/pkg/mathx"
	"github.com/redis/go-redis/v9"
)

// UnreadRepository 未读计数仓库接口
// 以 (ownerID, peerID) 为键维护非负计数，owner 为查看方，peer 为发送方
type UnreadRepository interface {
	// Increment 原子递增计数，返回递增后的值
	Increment(ctx context.Context, ownerID, peerID string) (int64, error)

	// Get 获取计数，无记录返回 0
	Get(ctx context.Context, ownerID, peerID string) (int64, error)

	// Clear 清零计数（删除键），幂等
	Clear(ctx context.Context, ownerID, peerID string) error

	// GetAll 获取 owner 对所有 peer 的计数
	GetAll(ctx context.Context, ownerID string) (map[string]int64, error)

	// Total 获取 owner 的未读总数
	Total(ctx context.Context, ownerID string) (int64, error)
}

// ============================================================================
// Redis 实现
// ============================================================================

// RedisUnreadRepository Redis 实现
// key 形如 imcore:unread:{ownerId}:{peerId}，值为计数，INCR/DEL 保证每键原子性
type RedisUnreadRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisUnreadRepository 创建 Redis 未读计数仓库
func NewRedisUnreadRepository(client *redis.Client, keyPrefix string) UnreadRepository {
	return &RedisUnreadRepository{
		client:    client,
		keyPrefix: mathx.IF(keyPrefix == "", DefaultUnreadKeyPrefix, keyPrefix),
	}
}

// GetKey 获取计数键
func (r *RedisUnreadRepository) GetKey(ownerID, peerID string) string {
	return fmt.Sprintf("%s%s:%s", r.keyPrefix, ownerID, peerID)
}

// Increment 原子递增计数
func (r *RedisUnreadRepository) Increment(ctx context.Context, ownerID, peerID string) (int64, error) {
	return r.client.Incr(ctx, r.GetKey(ownerID, peerID)).Result()
}

// Get 获取计数
func (r *RedisUnreadRepository) Get(ctx context.Context, ownerID, peerID string) (int64, error) {
	val, err := r.client.Get(ctx, r.GetKey(ownerID, peerID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// Clear 清零计数
func (r *RedisUnreadRepository) Clear(ctx context.Context, ownerID, peerID string) error {
	return r.client.Del(ctx, r.GetKey(ownerID, peerID)).Err()
}

// GetAll 获取 owner 对所有 peer 的计数
func (r *RedisUnreadRepository) GetAll(ctx context.Context, ownerID string) (map[string]int64, error) {
	pattern := fmt.Sprintf("%s%s:*", r.keyPrefix, ownerID)
	counts := make(map[string]int64)

	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := r.client.Get(ctx, key).Result()
		if err != nil {
			continue
		}
		count, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			continue
		}
		// key 格式: imcore:unread:owner:peer
		parts := strings.Split(key, ":")
		if len(parts) >= 2 {
			peerID := parts[len(parts)-1]
			counts[peerID] = count
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// Total 获取 owner 的未读总数
func (r *RedisUnreadRepository) Total(ctx context.Context, ownerID string) (int64, error) {
	counts, err := r.GetAll(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, count := range counts {
		total += count
	}
	return total, nil
}

// ============================================================================
// 内存实现（测试和单机场景）
// ============================================================================

// MemoryUnreadRepository 内存实现，按键加锁保证原子性
type MemoryUnreadRepository struct {
	mu     sync.RWMutex
	counts map[string]map[string]int64 // ownerID -> peerID -> count
}

// NewMemoryUnreadRepository 创建内存未读计数仓库
func NewMemoryUnreadRepository() *MemoryUnreadRepository {
	return &MemoryUnreadRepository{
		counts: make(map[string]map[string]int64),
	}
}

// Increment 原子递增计数
func (r *MemoryUnreadRepository) Increment(ctx context.Context, ownerID, peerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts[ownerID] == nil {
		r.counts[ownerID] = make(map[string]int64)
	}
	r.counts[ownerID][peerID]++
	return r.counts[ownerID][peerID], nil
}

// Get 获取计数
func (r *MemoryUnreadRepository) Get(ctx context.Context, ownerID, peerID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counts[ownerID][peerID], nil
}

// Clear 清零计数
func (r *MemoryUnreadRepository) Clear(ctx context.Context, ownerID, peerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if peers, ok := r.counts[ownerID]; ok {
		delete(peers, peerID)
	}
	return nil
}

// GetAll 获取 owner 对所有 peer 的计数
func (r *MemoryUnreadRepository) GetAll(ctx context.Context, ownerID string) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]int64, len(r.counts[ownerID]))
	for peerID, count := range r.counts[ownerID] {
		result[peerID] = count
	}
	return result, nil
}

// Total 获取 owner 的未读总数
func (r *MemoryUnreadRepository) Total(ctx context.Context, ownerID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total int64
	for _, count := range r.counts[ownerID] {
		total += count
	}
	return total, nil
}
