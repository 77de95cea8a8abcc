/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-14 11:05:33
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-10 18:42:07
 * @FilePath: \go-imcore\middleware\logger.go
 * @Description: go-imcore 日志接口，直接复用 go-logger
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package middleware

import (
	"time"

	"github.com/kamalyes/go-logger"
)

// IMLogger 直接使用 go-logger.ILogger
type IMLogger = logger.ILogger

// NewIMLogger 创建新的IM日志器，基于 go-logger
func NewIMLogger() IMLogger {
	return logger.NewLogger()
}

// NewDefaultIMLogger 创建默认配置的IM日志器
func NewDefaultIMLogger() IMLogger {
	return logger.NewLogger().
		WithLevel(logger.DEBUG).
		WithPrefix("[IMCORE] ").
		WithShowCaller(false).
		WithColorful(true).
		WithTimeFormat(time.RFC3339Nano)
}

// NewNoOpLogger 创建空日志实例
func NewNoOpLogger() IMLogger {
	return logger.NewEmptyLogger()
}

// 全局日志器
var (
	// DefaultLogger 默认日志器实例
	DefaultLogger IMLogger = NewDefaultIMLogger()

	// NoOpLoggerInstance 空日志器实例
	NoOpLoggerInstance IMLogger = NewNoOpLogger()
)

// SetDefaultLogger 设置默认日志器
func SetDefaultLogger(l IMLogger) {
	DefaultLogger = l
}
