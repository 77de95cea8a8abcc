/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-22 09:14:36
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-19 14:50:27
 * @FilePath: \go-imcore\middleware\rate_limit_alert.go
 * @Description: 消息发送超限预警服务 - 邮件通知（接口定义）
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */

package middleware

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/kamalyes/go-toolbox/pkg/mathx"
)

// EmailSender 邮件发送接口（由外部实现）
type EmailSender interface {
	SendEmailWithHTML(ctx context.Context, to []string, subject, htmlBody string) error
}

// RateLimitAlertService 发送超限预警服务
// 挂接到 RateLimiterConfig.OnLimit，发送方触发秒级配额时通知运营邮箱
type RateLimitAlertService struct {
	emailSender EmailSender
	alertEmails []string
	appName     string
	subject     string
	template    *template.Template
	logger      IMLogger
}

// AlertTemplateData 邮件模板数据
type AlertTemplateData struct {
	AppName      string
	SenderID     string
	Count        int64
	TriggerTime  string
	GenerateTime string
}

// DefaultAlertTemplateHTML 默认预警邮件模板
const DefaultAlertTemplateHTML = `<html><body>
<h3>{{.AppName}} 消息发送超限预警</h3>
<p>发送方 <b>{{.SenderID}}</b> 在本秒内已发送 {{.Count}} 条消息，超出配额。</p>
<p>触发时间：{{.TriggerTime}}</p>
<p><small>生成于 {{.GenerateTime}}</small></p>
</body></html>`

// NewRateLimitAlertService 创建发送超限预警服务
func NewRateLimitAlertService(
	emailSender EmailSender,
	alertEmails []string,
	appName, subject, templateHTML string,
	logger IMLogger,
) (*RateLimitAlertService, error) {
	tmpl, err := template.New("alert").Parse(templateHTML)
	if err != nil {
		return nil, fmt.Errorf("解析预警邮件模板失败: %w", err)
	}

	// 如果未提供 logger,使用默认 logger
	if logger == nil {
		logger = DefaultLogger
	}

	return &RateLimitAlertService{
		emailSender: emailSender,
		alertEmails: alertEmails,
		appName:     appName,
		subject:     subject,
		template:    tmpl,
		logger:      logger,
	}, nil
}

// OnLimit 实现 RateLimiterConfig.OnLimit 回调签名
func (s *RateLimitAlertService) OnLimit(ctx context.Context, senderID string, count int64) {
	s.SendAlert(ctx, senderID, count)
}

// SendAlert 发送超限预警邮件
func (s *RateLimitAlertService) SendAlert(ctx context.Context, senderID string, count int64) {
	if s.emailSender == nil || len(s.alertEmails) == 0 {
		return
	}

	body, err := s.renderTemplate(senderID, count)
	if err != nil {
		s.logger.ErrorKV("渲染预警邮件模板失败",
			"sender_id", senderID,
			"error", err,
		)
		return
	}

	err = s.emailSender.SendEmailWithHTML(ctx, s.alertEmails, s.subject, body)
	mathx.When(err != nil).
		Then(func() {
			s.logger.ErrorKV("发送超限预警邮件失败",
				"sender_id", senderID,
				"count", count,
				"error", err,
			)
		}).
		Else(func() {
			s.logger.InfoKV("已发送超限预警邮件",
				"sender_id", senderID,
				"count", count,
			)
		}).
		Do()
}

// renderTemplate 渲染邮件模板
func (s *RateLimitAlertService) renderTemplate(senderID string, count int64) (string, error) {
	data := AlertTemplateData{
		AppName:      s.appName,
		SenderID:     senderID,
		Count:        count,
		TriggerTime:  time.Now().Format(time.DateTime),
		GenerateTime: time.Now().Format(time.RFC3339),
	}

	var buf bytes.Buffer
	if err := s.template.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
