/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-15 16:03:29
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-28 14:11:56
 * @FilePath: \go-imcore\repository\online_status_repository.go
 * @Description: 用户在线状态管理 - 支持 Redis 分布式存储，附带内存实现
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kamalyes/go-toolbox/pkg/errorx"
	"github.com/kamalyes/go-toolbox/pkg/json"
	"github.com/kamalyes/go-toolbox/pkg/mathx"
	"github.com/redis/go-redis/v9"
)

// OnlineStatusRepository 在线状态仓库接口
// 状态记录带 TTL，节点崩溃后由过期机制兜底
type OnlineStatusRepository interface {
	// SetOnline 设置用户在线（直接传入 Session 指针）
	SetOnline(ctx context.Context, session *Session) error

	// SetOffline 设置用户离线
	SetOffline(ctx context.Context, userID string) error

	// IsOnline 检查用户是否在线
	IsOnline(ctx context.Context, userID string) (bool, error)

	// GetOnlineInfo 获取在线会话信息
	GetOnlineInfo(ctx context.Context, userID string) (*Session, error)

	// GetAllOnlineUsers 获取所有在线用户ID列表
	GetAllOnlineUsers(ctx context.Context) ([]string, error)

	// GetOnlineCount 获取在线用户总数
	GetOnlineCount(ctx context.Context) (int64, error)

	// RefreshTTL 心跳时刷新在线状态存活时间
	RefreshTTL(ctx context.Context, userID string) error

	// GetUserNode 获取用户所在节点
	GetUserNode(ctx context.Context, userID string) (string, error)
}

// ============================================================================
// Redis 实现
// ============================================================================

// RedisOnlineStatusRepository Redis 实现
type RedisOnlineStatusRepository struct {
	client    *redis.Client
	keyPrefix string        // key 前缀
	ttl       time.Duration // 过期时间
}

// NewRedisOnlineStatusRepository 创建 Redis 在线状态仓库
// 参数:
//   - client: Redis 客户端 (github.com/redis/go-redis/v9)
//   - keyPrefix: key 前缀，空串使用默认
//   - ttl: 在线状态存活时间，0 使用默认 5 分钟
func NewRedisOnlineStatusRepository(client *redis.Client, keyPrefix string, ttl time.Duration) OnlineStatusRepository {
	return &RedisOnlineStatusRepository{
		client:    client,
		keyPrefix: mathx.IF(keyPrefix == "", DefaultOnlineKeyPrefix, keyPrefix),
		ttl:       mathx.IF(ttl == 0, 5*time.Minute, ttl),
	}
}

// GetUserKey 获取用户在线状态的 key
func (r *RedisOnlineStatusRepository) GetUserKey(userID string) string {
	return fmt.Sprintf("%suser:%s", r.keyPrefix, userID)
}

// GetAllUsersSetKey 获取所有在线用户集合的 key
func (r *RedisOnlineStatusRepository) GetAllUsersSetKey() string {
	return fmt.Sprintf("%sall", r.keyPrefix)
}

// SetOnline 设置用户在线
func (r *RedisOnlineStatusRepository) SetOnline(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return errorx.WrapError("failed to marshal session info", err)
	}

	// 使用 pipeline 批量执行
	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.GetUserKey(session.UserID), data, r.ttl)
	pipe.SAdd(ctx, r.GetAllUsersSetKey(), session.UserID)
	_, err = pipe.Exec(ctx)
	return err
}

// SetOffline 设置用户离线
func (r *RedisOnlineStatusRepository) SetOffline(ctx context.Context, userID string) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.GetUserKey(userID))
	pipe.SRem(ctx, r.GetAllUsersSetKey(), userID)
	_, err := pipe.Exec(ctx)
	return err
}

// IsOnline 检查用户是否在线
func (r *RedisOnlineStatusRepository) IsOnline(ctx context.Context, userID string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.GetUserKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// GetOnlineInfo 获取在线会话信息
func (r *RedisOnlineStatusRepository) GetOnlineInfo(ctx context.Context, userID string) (*Session, error) {
	data, err := r.client.Get(ctx, r.GetUserKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, errorx.WrapError("failed to unmarshal session info", err)
	}
	return &session, nil
}

// GetAllOnlineUsers 获取所有在线用户ID列表
func (r *RedisOnlineStatusRepository) GetAllOnlineUsers(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, r.GetAllUsersSetKey()).Result()
}

// GetOnlineCount 获取在线用户总数
func (r *RedisOnlineStatusRepository) GetOnlineCount(ctx context.Context) (int64, error) {
	return r.client.SCard(ctx, r.GetAllUsersSetKey()).Result()
}

// RefreshTTL 心跳时刷新在线状态存活时间
func (r *RedisOnlineStatusRepository) RefreshTTL(ctx context.Context, userID string) error {
	return r.client.Expire(ctx, r.GetUserKey(userID), r.ttl).Err()
}

// GetUserNode 获取用户所在节点
func (r *RedisOnlineStatusRepository) GetUserNode(ctx context.Context, userID string) (string, error) {
	session, err := r.GetOnlineInfo(ctx, userID)
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return session.NodeID, nil
}

// ============================================================================
// 内存实现（测试和单机场景）
// ============================================================================

// MemoryOnlineStatusRepository 内存实现
type MemoryOnlineStatusRepository struct {
	mu       sync.RWMutex
	sessions map[string]*Session // userID -> session
}

// NewMemoryOnlineStatusRepository 创建内存在线状态仓库
func NewMemoryOnlineStatusRepository() *MemoryOnlineStatusRepository {
	return &MemoryOnlineStatusRepository{
		sessions: make(map[string]*Session),
	}
}

// SetOnline 设置用户在线
func (r *MemoryOnlineStatusRepository) SetOnline(ctx context.Context, session *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.UserID] = session
	return nil
}

// SetOffline 设置用户离线
func (r *MemoryOnlineStatusRepository) SetOffline(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
	return nil
}

// IsOnline 检查用户是否在线
func (r *MemoryOnlineStatusRepository) IsOnline(ctx context.Context, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[userID]
	return ok, nil
}

// GetOnlineInfo 获取在线会话信息
func (r *MemoryOnlineStatusRepository) GetOnlineInfo(ctx context.Context, userID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[userID]
	if !ok {
		return nil, redis.Nil
	}
	return session, nil
}

// GetAllOnlineUsers 获取所有在线用户ID列表
func (r *MemoryOnlineStatusRepository) GetAllOnlineUsers(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]string, 0, len(r.sessions))
	for userID := range r.sessions {
		users = append(users, userID)
	}
	return users, nil
}

// GetOnlineCount 获取在线用户总数
func (r *MemoryOnlineStatusRepository) GetOnlineCount(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.sessions)), nil
}

// RefreshTTL 心跳时刷新在线状态存活时间（内存实现为空操作）
func (r *MemoryOnlineStatusRepository) RefreshTTL(ctx context.Context, userID string) error {
	return nil
}

// GetUserNode 获取用户所在节点
func (r *MemoryOnlineStatusRepository) GetUserNode(ctx context.Context, userID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if session, ok := r.sessions[userID]; ok {
		return session.NodeID, nil
	}
	return "", nil
}
