/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-02-16 10:05:33
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-02-16 10:40:12
 * @FilePath: \go-imcore\middleware\auth_test.go
 * @Description: JWT令牌校验测试
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package middleware

import (
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamalyes/go-imcore/models"
)

func TestJWTValidatorRoundtrip(t *testing.T) {
	v := NewJWTValidator([]byte("test-secret"))

	token, err := v.GenerateToken("alice", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.NoError(t, v.Validate("alice", token))
}

func TestJWTValidatorRejectsWrongUser(t *testing.T) {
	v := NewJWTValidator([]byte("test-secret"))

	token, err := v.GenerateToken("alice", time.Minute)
	require.NoError(t, err)

	// 令牌sub与连接方用户ID不一致
	err = v.Validate("bob", token)
	assert.ErrorIs(t, err, models.ErrAuthFailed)
}

func TestJWTValidatorRejectsEmptyToken(t *testing.T) {
	v := NewJWTValidator([]byte("test-secret"))
	assert.ErrorIs(t, v.Validate("alice", ""), models.ErrAuthFailed)
}

func TestJWTValidatorRejectsGarbageToken(t *testing.T) {
	v := NewJWTValidator([]byte("test-secret"))
	assert.ErrorIs(t, v.Validate("alice", "not.a.jwt"), models.ErrAuthFailed)
}

func TestJWTValidatorRejectsWrongSecret(t *testing.T) {
	signer := NewJWTValidator([]byte("secret-a"))
	verifier := NewJWTValidator([]byte("secret-b"))

	token, err := signer.GenerateToken("alice", time.Minute)
	require.NoError(t, err)

	assert.ErrorIs(t, verifier.Validate("alice", token), models.ErrAuthFailed)
}

func TestJWTValidatorRejectsExpiredToken(t *testing.T) {
	v := NewJWTValidator([]byte("test-secret"))

	token, err := v.GenerateToken("alice", -time.Minute)
	require.NoError(t, err)

	assert.ErrorIs(t, v.Validate("alice", token), models.ErrAuthFailed)
}

func TestJWTValidatorRejectsNonHMACAlg(t *testing.T) {
	v := NewJWTValidator([]byte("test-secret"))

	// alg=none 必须被拒绝
	claims := jwtlib.MapClaims{"sub": "alice", "exp": time.Now().Add(time.Minute).Unix()}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, claims).
		SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	assert.ErrorIs(t, v.Validate("alice", token), models.ErrAuthFailed)
}

func TestJWTValidatorRejectsMissingSubject(t *testing.T) {
	secret := []byte("test-secret")
	v := NewJWTValidator(secret)

	claims := jwtlib.MapClaims{"exp": time.Now().Add(time.Minute).Unix()}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	assert.ErrorIs(t, v.Validate("alice", token), models.ErrAuthFailed)
}

func TestTokenValidatorFunc(t *testing.T) {
	sentinel := errors.New("custom reject")
	f := TokenValidatorFunc(func(userID, token string) error {
		if token == "good" {
			return nil
		}
		return sentinel
	})

	assert.NoError(t, f.Validate("alice", "good"))
	assert.ErrorIs(t, f.Validate("alice", "bad"), sentinel)
}
