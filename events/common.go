/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-16 09:52:11
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-29 14:21:07
 * @FilePath: \go-imcore\events\common.go
 * @Description: 自定义事件发布订阅 - 业务扩展点
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */

package events

import (
	"context"
	"time"
)

// customEventPrefix 自定义事件频道前缀，与内置的消息/状态/未读事件隔离
const customEventPrefix = "imcore.custom."

// CustomEventChannel 返回自定义事件的完整频道名
func CustomEventChannel(name string) string {
	return customEventPrefix + name
}

// PublishCustom 发布自定义跨节点事件
// 业务方在内置事件之外扩展自己的事件类型时使用，payload 序列化为JSON
func PublishCustom(p Publisher, name string, payload interface{}) error {
	pubsub := p.GetPubSub()
	if pubsub == nil {
		return ErrPubSubNotSet
	}

	channel := CustomEventChannel(name)
	ctx, cancel := context.WithTimeout(p.GetContext(), time.Second*5)
	defer cancel()

	if err := pubsub.Publish(ctx, channel, payload); err != nil {
		if ctx.Err() == context.Canceled || p.GetContext().Err() != nil {
			p.GetLogger().DebugKV("发布自定义事件被取消（核心可能正在关闭）", "channel", channel)
		} else {
			p.GetLogger().WarnKV("发布自定义事件失败", "channel", channel, "error", err)
		}
		return err
	}

	p.GetLogger().DebugKV("📢 发布自定义事件", "channel", channel)
	return nil
}

// SubscribeCustom 订阅自定义事件，handler 收到原始JSON消息
// 返回取消订阅函数
func SubscribeCustom(p Publisher, names []string, handler func(ctx context.Context, channel string, message string) error) (func() error, error) {
	pubsub := p.GetPubSub()
	if pubsub == nil {
		return nil, ErrPubSubNotSet
	}

	channels := make([]string, 0, len(names))
	for _, name := range names {
		channels = append(channels, CustomEventChannel(name))
	}
	p.GetLogger().InfoKV("📡 订阅自定义事件", "channels", channels)

	subscriber, err := pubsub.Subscribe(channels, handler)
	if err != nil {
		return nil, err
	}
	return func() error {
		return subscriber.Unsubscribe()
	}, nil
}

// SubscribeCustomTyped 订阅自定义事件（泛型版本，消息自动反序列化为 T）
func SubscribeCustomTyped[T any](p Publisher, name string, handler func(event *T) error) (func() error, error) {
	return subscribeEventHelper(p, []string{CustomEventChannel(name)}, handler, "自定义事件 "+name)
}
