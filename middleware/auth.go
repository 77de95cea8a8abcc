/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-15 09:12:48
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-12 10:33:20
 * @FilePath: \go-imcore\middleware\auth.go
 * @Description: 连接认证 - Bearer令牌校验
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package middleware

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/kamalyes/go-imcore/models"
)

// TokenValidator 令牌校验器接口
// Validate 校验令牌并确认其归属于 userID，失败返回认证错误
type TokenValidator interface {
	Validate(userID, token string) error
}

// JWTValidator 基于 HMAC 签名JWT的令牌校验器
// 仅接受 HMAC 家族算法，sub 声明必须与连接方用户ID一致
type JWTValidator struct {
	secret []byte
}

// NewJWTValidator 创建JWT令牌校验器
func NewJWTValidator(secret []byte) *JWTValidator {
	return &JWTValidator{secret: secret}
}

// Validate 实现 TokenValidator 接口
func (v *JWTValidator) Validate(userID, token string) error {
	if token == "" {
		return models.ErrAuthFailed
	}

	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return models.ErrAuthFailed
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" || sub != userID {
		return models.ErrAuthFailed
	}
	return nil
}

// GenerateToken 为用户签发HS256令牌，测试和示例使用
func (v *JWTValidator) GenerateToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwtlib.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(v.secret)
}

// TokenValidatorFunc 函数式令牌校验器适配
type TokenValidatorFunc func(userID, token string) error

// Validate 实现 TokenValidator 接口
func (f TokenValidatorFunc) Validate(userID, token string) error {
	return f(userID, token)
}
