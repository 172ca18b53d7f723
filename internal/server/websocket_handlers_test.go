package server

import (
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"schoolmates/internal/notifications"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sendFrame(s *Server, c *notifications.Client, frame string) {
	s.handleRealtimeFrame(c, []byte(frame))
}

func TestRealtimeFrames_JoinAndLeave(t *testing.T) {
	s := newTestServer(t, false)
	a := signupUser(t, s, "asha", "Central High", "10")
	b := signupUser(t, s, "bilal", "Central High", "10")
	outsider := signupUser(t, s, "chen", "Central High", "10")
	convID := createConversation(t, s, a, b)

	aConn := attachClient(t, s, a.ID)
	sendFrame(s, aConn, fmt.Sprintf(`{"type":"join_conversation","payload":{"conversation_id":%d}}`, convID))
	ev := readEvent(t, aConn)
	assert.Equal(t, notifications.EventJoined, ev.Type)
	assert.Equal(t, float64(convID), ev.Payload["conversation_id"])
	assert.True(t, s.gateway.IsSubscribed(convID, aConn))

	outConn := attachClient(t, s, outsider.ID)
	sendFrame(s, outConn, fmt.Sprintf(`{"type":"join_conversation","payload":{"conversation_id":"%d"}}`, convID))
	ev = readEvent(t, outConn)
	assert.Equal(t, notifications.EventError, ev.Type)
	assert.False(t, s.gateway.IsSubscribed(convID, outConn))

	sendFrame(s, outConn, `{"type":"join_conversation","payload":{"conversation_id":9999}}`)
	assert.Equal(t, notifications.EventError, readEvent(t, outConn).Type)

	sendFrame(s, aConn, fmt.Sprintf(`{"type":"leave_conversation","payload":{"conversation_id":%d}}`, convID))
	assert.Equal(t, notifications.EventLeft, readEvent(t, aConn).Type)
	assert.False(t, s.gateway.IsSubscribed(convID, aConn))
}

func TestRealtimeFrames_Malformed(t *testing.T) {
	s := newTestServer(t, false)
	a := signupUser(t, s, "asha", "Central High", "10")
	c := attachClient(t, s, a.ID)

	for _, frame := range []string{
		`not json`,
		`{"payload":{}}`,
		`{"type":"dance"}`,
		`{"type":"join_conversation"}`,
		`{"type":"message_delivered","payload":{"message_id":0}}`,
		`{"type":"messages_read","payload":{"message_ids":[]}}`,
	} {
		sendFrame(s, c, frame)
		assert.Equal(t, notifications.EventError, readEvent(t, c).Type, frame)
	}
}

func TestRealtimeFrames_ReceiptsAndTyping(t *testing.T) {
	s := newTestServer(t, false)
	a := signupUser(t, s, "asha", "Central High", "10")
	b := signupUser(t, s, "bilal", "Central High", "10")
	convID := createConversation(t, s, a, b)

	aConn := attachClient(t, s, a.ID)
	bConn := attachClient(t, s, b.ID)
	join := fmt.Sprintf(`{"type":"join_conversation","payload":{"conversation_id":%d}}`, convID)
	sendFrame(s, aConn, join)
	readEvent(t, aConn)
	sendFrame(s, bConn, join)
	readEvent(t, bConn)

	resp := doJSON(t, s, http.MethodPost, "/api/messages/"+itoa(convID), a.Token, map[string]any{"content": "hello"})
	msg := decodeBody[map[string]any](t, resp)
	msgID := uint(msg["id"].(float64))
	readEvent(t, aConn)
	readEvent(t, bConn)

	t.Run("delivered once, sender excluded", func(t *testing.T) {
		frame := fmt.Sprintf(`{"type":"message_delivered","payload":{"message_id":%d}}`, msgID)
		sendFrame(s, bConn, frame)
		ev := readEvent(t, aConn)
		assert.Equal(t, notifications.EventMessageDeliveredUpdate, ev.Type)
		assert.Equal(t, float64(msgID), ev.Payload["message_id"])
		assert.Equal(t, []any{float64(b.ID)}, ev.Payload["delivered_to"])
		assertNoEvent(t, bConn)

		sendFrame(s, bConn, frame)
		assertNoEvent(t, aConn)

		sendFrame(s, aConn, frame)
		assertNoEvent(t, bConn)
		assertNoEvent(t, aConn)
	})

	t.Run("read receipts", func(t *testing.T) {
		sendFrame(s, bConn, fmt.Sprintf(`{"type":"messages_read","payload":{"conversation_id":%d,"message_ids":[%d]}}`, convID, msgID))
		ev := readEvent(t, aConn)
		assert.Equal(t, notifications.EventMessageReadUpdate, ev.Type)
		assert.Equal(t, []any{float64(b.ID)}, ev.Payload["read_by"])
		assertNoEvent(t, bConn)
	})

	t.Run("typing relays only from subscribed connections", func(t *testing.T) {
		sendFrame(s, aConn, fmt.Sprintf(`{"type":"typing_indicator","payload":{"conversation_id":%d,"is_typing":true}}`, convID))
		ev := readEvent(t, bConn)
		assert.Equal(t, notifications.EventTypingIndicator, ev.Type)
		assert.Equal(t, float64(a.ID), ev.Payload["user_id"])
		assert.Equal(t, true, ev.Payload["is_typing"])
		assertNoEvent(t, aConn)

		s.gateway.Leave(convID, aConn)
		sendFrame(s, aConn, fmt.Sprintf(`{"type":"typing_indicator","payload":{"conversation_id":%d,"is_typing":false}}`, convID))
		assertNoEvent(t, bConn)
		assertNoEvent(t, aConn)
	})
}

func TestPresence_ConnectAndDisconnect(t *testing.T) {
	s := newTestServer(t, true)
	a := signupUser(t, s, "asha", "Central High", "10")
	b := signupUser(t, s, "bilal", "Central High", "10")
	makeFriends(t, s, a, b)

	onlineFriends := func() int {
		resp := doJSON(t, s, http.MethodGet, "/api/onlineFriends", b.Token, nil)
		return len(decodeBody[[]map[string]any](t, resp))
	}

	first := attachClient(t, s, a.ID)
	assert.Equal(t, 1, onlineFriends())

	second := attachClient(t, s, a.ID)
	current, ok := s.presence.Lookup(a.ID)
	require.True(t, ok)
	assert.Same(t, second, current)

	// The superseded connection closing must not take the user offline.
	s.disconnectClient(first)
	assert.Equal(t, 1, onlineFriends())
	assert.True(t, s.presence.IsOnline(t.Context(), a.ID))

	s.disconnectClient(second)
	assert.Equal(t, 0, onlineFriends())
	assert.False(t, s.presence.IsOnline(t.Context(), a.ID))
}

func TestWebsocketEndToEnd(t *testing.T) {
	s := newTestServer(t, false)
	a := signupUser(t, s, "asha", "Central High", "10")
	b := signupUser(t, s, "bilal", "Central High", "10")
	convID := createConversation(t, s, a, b)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.App().Listener(ln) }()
	t.Cleanup(func() { _ = s.App().Shutdown() })

	url := fmt.Sprintf("ws://%s/api/ws?token=%s", ln.Addr().String(), b.Token)
	conn, resp, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	read := func() receivedEvent {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		var ev receivedEvent
		require.NoError(t, conn.ReadJSON(&ev))
		return ev
	}

	assert.Equal(t, notifications.EventConnected, read().Type)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    notifications.EventJoinConversation,
		"payload": map[string]any{"conversation_id": convID},
	}))
	assert.Equal(t, notifications.EventJoined, read().Type)

	post := doJSON(t, s, http.MethodPost, "/api/messages/"+itoa(convID), a.Token, map[string]any{"content": "over the wire"})
	require.Equal(t, http.StatusCreated, post.StatusCode)
	_ = post.Body.Close()

	ev := read()
	assert.Equal(t, notifications.EventNewMessage, ev.Type)
	assert.Equal(t, "over the wire", ev.Payload["content"])

	_, badResp, err := gorillaws.DefaultDialer.Dial(fmt.Sprintf("ws://%s/api/ws?token=bogus", ln.Addr().String()), nil)
	require.Error(t, err)
	require.NotNil(t, badResp)
	assert.Equal(t, http.StatusUnauthorized, badResp.StatusCode)
}
