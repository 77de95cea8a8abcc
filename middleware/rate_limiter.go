/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-15 10:01:12
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-20 17:25:41
 * @FilePath: \go-imcore\middleware\rate_limiter.go
 * @Description: 消息发送频率限制器 - 每发送方每秒配额
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kamalyes/go-imcore/models"
)

// RateLimiterConfig 频率限制配置
type RateLimiterConfig struct {
	MaxMessagesPerSecond int // 每秒最大消息数，0表示不限制

	// OnLimit 超限回调
	OnLimit func(ctx context.Context, userID string, count int64)

	// Redis相关（可选，不提供则使用内存计数）
	RedisEnabled bool
	RedisClient  RedisClient                // Redis客户端接口
	RedisKeyFunc func(userID string) string // Redis键生成函数
}

// RedisClient Redis客户端接口
type RedisClient interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Get(ctx context.Context, key string) (int64, error)
	Del(ctx context.Context, keys ...string) error
}

// DefaultRateLimiterConfig 默认频率限制配置
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		MaxMessagesPerSecond: 0,
		RedisEnabled:         false,
	}
}

// RateLimiter 频率限制器
type RateLimiter struct {
	config *RateLimiterConfig

	// 内存计数器（Redis未启用时使用）
	memoryCounters map[string]*senderCounter
	mu             sync.RWMutex
}

// senderCounter 发送方秒级计数器
type senderCounter struct {
	count      int64
	windowTime time.Time
	mu         sync.Mutex
}

// NewRateLimiter 创建频率限制器
func NewRateLimiter(config *RateLimiterConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimiterConfig()
	}

	limiter := &RateLimiter{
		config:         config,
		memoryCounters: make(map[string]*senderCounter),
	}

	if !config.RedisEnabled {
		go limiter.cleanupMemoryCounters()
	}

	return limiter
}

// Allow 检查发送方本秒配额
// 超限返回 ErrRateLimitExceeded，被拒绝的消息不计入配额消耗之外的状态
func (r *RateLimiter) Allow(ctx context.Context, userID string) error {
	if r.config.MaxMessagesPerSecond <= 0 {
		return nil
	}

	var count int64
	var err error
	if r.config.RedisEnabled && r.config.RedisClient != nil {
		count, err = r.checkRedisLimit(ctx, userID)
	} else {
		count, err = r.checkMemoryLimit(userID)
	}
	if err != nil {
		// 出错时允许通过，避免影响正常业务
		return nil
	}

	if count > int64(r.config.MaxMessagesPerSecond) {
		if r.config.OnLimit != nil {
			go r.config.OnLimit(ctx, userID, count)
		}
		return models.ErrRateLimitExceeded
	}
	return nil
}

// checkRedisLimit 使用Redis进行限流检查
func (r *RateLimiter) checkRedisLimit(ctx context.Context, userID string) (int64, error) {
	key := r.getRedisKey(userID)
	count, err := r.config.RedisClient.Incr(ctx, key)
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = r.config.RedisClient.Expire(ctx, key, time.Second)
	}
	return count, nil
}

// checkMemoryLimit 使用内存进行限流检查
func (r *RateLimiter) checkMemoryLimit(userID string) (int64, error) {
	r.mu.Lock()
	counter, exists := r.memoryCounters[userID]
	if !exists {
		counter = &senderCounter{windowTime: time.Now()}
		r.memoryCounters[userID] = counter
	}
	r.mu.Unlock()

	counter.mu.Lock()
	defer counter.mu.Unlock()

	now := time.Now()
	if now.Sub(counter.windowTime) > time.Second {
		counter.count = 0
		counter.windowTime = now
	}
	counter.count++

	return counter.count, nil
}

// ResetUserLimit 重置发送方限制
func (r *RateLimiter) ResetUserLimit(ctx context.Context, userID string) error {
	if r.config.RedisEnabled && r.config.RedisClient != nil {
		return r.config.RedisClient.Del(ctx, r.getRedisKey(userID))
	}

	r.mu.Lock()
	delete(r.memoryCounters, userID)
	r.mu.Unlock()

	return nil
}

// getRedisKey 生成Redis键
func (r *RateLimiter) getRedisKey(userID string) string {
	if r.config.RedisKeyFunc != nil {
		return r.config.RedisKeyFunc(userID)
	}
	return fmt.Sprintf("imcore:rate_limit:%s:%s", userID, time.Now().Format("2006-01-02:15:04:05"))
}

// cleanupMemoryCounters 定期清理过期的内存计数器
func (r *RateLimiter) cleanupMemoryCounters() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		r.mu.Lock()
		now := time.Now()
		for userID, counter := range r.memoryCounters {
			counter.mu.Lock()
			stale := now.Sub(counter.windowTime) > time.Minute
			counter.mu.Unlock()
			if stale {
				delete(r.memoryCounters, userID)
			}
		}
		r.mu.Unlock()
	}
}
