/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-02-16 10:52:07
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-02-16 11:18:44
 * @FilePath: \go-imcore\middleware\rate_limiter_test.go
 * @Description: 消息发送频率限制器测试
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package middleware

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamalyes/go-imcore/models"
)

func TestRateLimiterUnlimitedByDefault(t *testing.T) {
	limiter := NewRateLimiter(nil)

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		assert.NoError(t, limiter.Allow(ctx, "alice"))
	}
}

func TestRateLimiterMemoryWindow(t *testing.T) {
	limiter := NewRateLimiter(&RateLimiterConfig{MaxMessagesPerSecond: 3})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Allow(ctx, "alice"))
	}

	err := limiter.Allow(ctx, "alice")
	require.Error(t, err)
	assert.True(t, models.IsRateLimitError(err))

	// 不同发送方互不影响
	assert.NoError(t, limiter.Allow(ctx, "bob"))
}

func TestRateLimiterWindowRollsOver(t *testing.T) {
	limiter := NewRateLimiter(&RateLimiterConfig{MaxMessagesPerSecond: 1})

	ctx := context.Background()
	require.NoError(t, limiter.Allow(ctx, "alice"))
	require.Error(t, limiter.Allow(ctx, "alice"))

	// 窗口滚动后配额恢复
	time.Sleep(1100 * time.Millisecond)
	assert.NoError(t, limiter.Allow(ctx, "alice"))
}

func TestRateLimiterResetUserLimit(t *testing.T) {
	limiter := NewRateLimiter(&RateLimiterConfig{MaxMessagesPerSecond: 1})

	ctx := context.Background()
	require.NoError(t, limiter.Allow(ctx, "alice"))
	require.Error(t, limiter.Allow(ctx, "alice"))

	require.NoError(t, limiter.ResetUserLimit(ctx, "alice"))
	assert.NoError(t, limiter.Allow(ctx, "alice"))
}

// recordingEmailSender 记录发送的邮件
type recordingEmailSender struct {
	mu       sync.Mutex
	subjects []string
	bodies   []string
}

func (r *recordingEmailSender) SendEmailWithHTML(ctx context.Context, to []string, subject, htmlBody string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
	r.bodies = append(r.bodies, htmlBody)
	return nil
}

func TestRateLimitAlertService(t *testing.T) {
	sender := &recordingEmailSender{}
	svc, err := NewRateLimitAlertService(
		sender,
		[]string{"ops@example.com"},
		"imcore", "发送超限预警", DefaultAlertTemplateHTML,
		NewNoOpLogger(),
	)
	require.NoError(t, err)

	svc.SendAlert(context.Background(), "alice", 42)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.subjects, 1)
	assert.Equal(t, "发送超限预警", sender.subjects[0])
	assert.Contains(t, sender.bodies[0], "alice")
	assert.Contains(t, sender.bodies[0], "42")
}

func TestRateLimitAlertServiceInvalidTemplate(t *testing.T) {
	_, err := NewRateLimitAlertService(nil, nil, "imcore", "s", "{{.Broken", NewNoOpLogger())
	assert.Error(t, err)
}

func TestRateLimiterAlertWiredToOnLimit(t *testing.T) {
	sender := &recordingEmailSender{}
	svc, err := NewRateLimitAlertService(
		sender,
		[]string{"ops@example.com"},
		"imcore", "发送超限预警", DefaultAlertTemplateHTML,
		NewNoOpLogger(),
	)
	require.NoError(t, err)

	limiter := NewRateLimiter(&RateLimiterConfig{
		MaxMessagesPerSecond: 1,
		OnLimit:              svc.OnLimit,
	})

	ctx := context.Background()
	require.NoError(t, limiter.Allow(ctx, "alice"))
	require.Error(t, limiter.Allow(ctx, "alice"))

	assert.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.subjects) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestRateLimiterOnLimitCallback(t *testing.T) {
	var fired atomic.Int32
	limiter := NewRateLimiter(&RateLimiterConfig{
		MaxMessagesPerSecond: 1,
		OnLimit: func(ctx context.Context, userID string, count int64) {
			fired.Add(1)
		},
	})

	ctx := context.Background()
	require.NoError(t, limiter.Allow(ctx, "alice"))
	require.Error(t, limiter.Allow(ctx, "alice"))

	assert.Eventually(t, func() bool {
		return fired.Load() == 1
	}, time.Second, 10*time.Millisecond)
}
