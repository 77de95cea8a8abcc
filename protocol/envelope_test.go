/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-02-16 14:33:29
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-02-16 15:07:10
 * @FilePath: \go-imcore\protocol\envelope_test.go
 * @Description: 事件帧与客户端指令编解码测试
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamalyes/go-imcore/models"
)

func TestMessageFrameRoundtrip(t *testing.T) {
	msg := &models.Message{
		ID:          "m1",
		SenderID:    "alice",
		RecipientID: "bob",
		ClientMsgID: "c1",
		Type:        models.MessageTypeText,
		Body:        "hello",
		CreatedAt:   time.Now(),
	}

	frame, err := NewMessageFrame(&models.MessageEvent{Message: msg, Echo: true})
	require.NoError(t, err)
	assert.Equal(t, models.ChannelKindMessages, frame.Kind)
	assert.False(t, frame.Timestamp.IsZero())

	data, err := frame.Encode()
	require.NoError(t, err)

	decoded, err := DecodeEventFrame(data)
	require.NoError(t, err)
	assert.Equal(t, models.ChannelKindMessages, decoded.Kind)

	event, err := decoded.DecodeMessageEvent()
	require.NoError(t, err)
	assert.True(t, event.Echo)
	assert.Equal(t, "hello", event.Message.Body)
	assert.Equal(t, "alice", event.Message.SenderID)
}

func TestPresenceFrameRoundtrip(t *testing.T) {
	frame, err := NewPresenceFrame(&models.PresenceEvent{
		UserID:    "alice",
		Status:    models.PresenceStatusOnline,
		Timestamp: time.Now(),
	})
	require.NoError(t, err)

	data, err := frame.Encode()
	require.NoError(t, err)

	decoded, err := DecodeEventFrame(data)
	require.NoError(t, err)
	require.Equal(t, models.ChannelKindPresence, decoded.Kind)

	event, err := decoded.DecodePresenceEvent()
	require.NoError(t, err)
	assert.Equal(t, "alice", event.UserID)
	assert.Equal(t, models.PresenceStatusOnline, event.Status)
}

func TestUnreadFrameRoundtrip(t *testing.T) {
	frame, err := NewUnreadFrame(&models.UnreadCountEvent{
		OwnerID: "bob",
		PeerID:  "alice",
		Count:   7,
	})
	require.NoError(t, err)

	data, err := frame.Encode()
	require.NoError(t, err)

	decoded, err := DecodeEventFrame(data)
	require.NoError(t, err)

	event, err := decoded.DecodeUnreadEvent()
	require.NoError(t, err)
	assert.Equal(t, "bob", event.OwnerID)
	assert.Equal(t, "alice", event.PeerID)
	assert.Equal(t, int64(7), event.Count)
}

func TestDecodeEventFrameInvalidJSON(t *testing.T) {
	_, err := DecodeEventFrame([]byte("{not json"))
	assert.Error(t, err)
}

func TestClientCommandDecode(t *testing.T) {
	raw := []byte(`{"action":"send","recipient_id":"bob","client_msg_id":"c1","body":"hi","type":"text"}`)

	cmd, err := DecodeClientCommand(raw)
	require.NoError(t, err)
	assert.Equal(t, ActionSend, cmd.Action)
	assert.Equal(t, "bob", cmd.RecipientID)
	assert.Equal(t, "c1", cmd.ClientMsgID)
	assert.Equal(t, "hi", cmd.Body)
	assert.Equal(t, models.MessageTypeText, cmd.Type)
}

func TestClientCommandDecodeNormalizesType(t *testing.T) {
	cases := map[string]models.MessageType{
		`{"action":"send","type":"text"}`:  models.MessageTypeText,
		`{"action":"send","type":"image"}`: models.MessageTypeImage,
		`{"action":"send","type":"FILE"}`:  models.MessageTypeFile,
	}
	for raw, want := range cases {
		cmd, err := DecodeClientCommand([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, want, cmd.Type)
	}

	// 未携带 type 时保持空值，由服务端按默认类型处理
	cmd, err := DecodeClientCommand([]byte(`{"action":"send"}`))
	require.NoError(t, err)
	assert.Empty(t, cmd.Type)
}

func TestClientCommandRoundtrip(t *testing.T) {
	cmd := &ClientCommand{
		Action: ActionMarkRead,
		PeerID: "alice",
	}

	data, err := cmd.Encode()
	require.NoError(t, err)

	decoded, err := DecodeClientCommand(data)
	require.NoError(t, err)
	assert.Equal(t, ActionMarkRead, decoded.Action)
	assert.Equal(t, "alice", decoded.PeerID)
}
