/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-01-05 00:00:00
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-02-14 10:12:41
 * @FilePath: \go-imcore\client\config.go
 * @Description: 客户端配置
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package client

import "time"

// Config 客户端配置
type Config struct {
	MinRecTime        time.Duration // 重连退避最小间隔
	MaxRecTime        time.Duration // 重连退避最大间隔
	RecFactor         float64       // 重连退避因子
	AutoReconnect     bool          // 断线后是否自动重连
	WriteTimeout      time.Duration // 写超时
	MaxMessageSize    int64         // 接受的消息最大长度
	MessageBufferSize int           // 发送缓冲区大小
	HeartbeatInterval time.Duration // 心跳发送间隔，0表示不自动发送心跳
}

// DefaultConfig 返回默认客户端配置
func DefaultConfig() *Config {
	return &Config{
		MinRecTime:        500 * time.Millisecond,
		MaxRecTime:        30 * time.Second,
		RecFactor:         1.5,
		AutoReconnect:     true,
		WriteTimeout:      10 * time.Second,
		MaxMessageSize:    1024 * 1024,
		MessageBufferSize: 256,
		HeartbeatInterval: 10 * time.Second,
	}
}

// WithHeartbeatInterval 设置心跳间隔
func (c *Config) WithHeartbeatInterval(d time.Duration) *Config {
	c.HeartbeatInterval = d
	return c
}

// WithAutoReconnect 设置是否自动重连
func (c *Config) WithAutoReconnect(enable bool) *Config {
	c.AutoReconnect = enable
	return c
}

// WithMessageBufferSize 设置发送缓冲区大小
func (c *Config) WithMessageBufferSize(size int) *Config {
	if size > 0 {
		c.MessageBufferSize = size
	}
	return c
}

// WithRecTime 设置重连退避区间
func (c *Config) WithRecTime(min, max time.Duration, factor float64) *Config {
	c.MinRecTime = min
	c.MaxRecTime = max
	c.RecFactor = factor
	return c
}
