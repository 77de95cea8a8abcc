/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-08-29 15:02:11
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-29 15:02:11
 * @FilePath: \go-imcore\events\common_test.go
 * @Description: 自定义事件发布订阅测试
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */

package events

import (
	"context"
	"testing"

	"github.com/kamalyes/go-cachex"
	"github.com/kamalyes/go-logger"
	"github.com/stretchr/testify/assert"
)

// stubPublisher 未配置 PubSub 的发布器
type stubPublisher struct{}

func (stubPublisher) GetPubSub() *cachex.PubSub { return nil }

func (stubPublisher) GetLogger() logger.ILogger { return logger.NewEmptyLogger() }

func (stubPublisher) GetContext() context.Context { return context.Background() }

func (stubPublisher) GetNodeID() string { return "node-test" }

func TestCustomEventChannelPrefix(t *testing.T) {
	assert.Equal(t, "imcore.custom.node.announce", CustomEventChannel("node.announce"))
}

func TestPublishCustomWithoutPubSub(t *testing.T) {
	err := PublishCustom(stubPublisher{}, "node.announce", map[string]string{"node_id": "n1"})
	assert.ErrorIs(t, err, ErrPubSubNotSet)
}

func TestSubscribeCustomWithoutPubSub(t *testing.T) {
	_, err := SubscribeCustom(stubPublisher{}, []string{"node.announce"}, func(ctx context.Context, channel, message string) error {
		return nil
	})
	assert.ErrorIs(t, err, ErrPubSubNotSet)
}

func TestSubscribeCustomTypedWithoutPubSub(t *testing.T) {
	type announce struct {
		NodeID string `json:"node_id"`
	}
	_, err := SubscribeCustomTyped(stubPublisher{}, "node.announce", func(ev *announce) error {
		return nil
	})
	assert.ErrorIs(t, err, ErrPubSubNotSet)
}
