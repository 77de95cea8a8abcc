/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-08-29 16:12:40
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-29 17:05:33
 * @FilePath: \go-imcore\core\transport_test.go
 * @Description: Core WebSocket 接入层测试
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamalyes/go-imcore/models"
)

// dialTestServer 启动升级端点并建立一条 WebSocket 会话
func dialTestServer(t *testing.T, c *Core, userID string) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(c.HandleWebSocketUpgrade))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user_id=" + userID
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketUpgradeRegistersSession(t *testing.T) {
	c := newTestCore(t)

	dialTestServer(t, c, "alice")

	require.Eventually(t, func() bool {
		return c.SessionCount() == 1
	}, time.Second, 10*time.Millisecond)
	assert.True(t, c.IsUserLocallyOnline("alice"))
}

func TestShutdownWaitsForSessionPumps(t *testing.T) {
	c := newTestCore(t)

	dialTestServer(t, c, "alice")
	dialTestServer(t, c, "bob")

	require.Eventually(t, func() bool {
		return c.SessionCount() == 2
	}, time.Second, 10*time.Millisecond)

	// 关闭需等到读写协程全部退出，不允许超时返回
	require.NoError(t, c.SafeShutdown())
	assert.Equal(t, int64(0), c.SessionCount())
	assert.False(t, c.IsRunning())
}

func TestClientCommandOverWire(t *testing.T) {
	c := newTestCore(t)

	conn := dialTestServer(t, c, "alice")
	require.Eventually(t, func() bool {
		return c.SessionCount() == 1
	}, time.Second, 10*time.Millisecond)

	// 小写 type 的历史线上格式也应被接受并归一
	payload := `{"action":"send","recipient_id":"bob","client_msg_id":"wire-1","body":"hi","type":"text"}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))

	require.Eventually(t, func() bool {
		return c.GetStats().MessagesSent == 1
	}, 2*time.Second, 10*time.Millisecond)

	msg, err := c.messageRepo.FindByClientMsgID(context.Background(), "alice", "wire-1")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, models.MessageTypeText, msg.Type)
}
