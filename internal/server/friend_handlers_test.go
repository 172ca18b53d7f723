package server

import (
	"net/http"
	"testing"

	"schoolmates/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFriendRequestFlow(t *testing.T) {
	s := newTestServer(t, false)
	a := signupUser(t, s, "asha", "Central High", "10")
	b := signupUser(t, s, "bilal", "Central High", "10")

	bConn := attachClient(t, s, b.ID)
	aConn := attachClient(t, s, a.ID)

	resp := doJSON(t, s, http.MethodPost, "/api/sendFriendRequest", a.Token, map[string]any{"friend_id": b.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	ev := readEvent(t, bConn)
	assert.Equal(t, notifications.EventFriendRequestReceived, ev.Type)
	assert.Equal(t, float64(a.ID), ev.Payload["from"].(map[string]any)["id"])

	t.Run("duplicate and self requests", func(t *testing.T) {
		resp := doJSON(t, s, http.MethodPost, "/api/sendFriendRequest", a.Token, map[string]any{"friend_id": b.ID})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		_ = resp.Body.Close()

		resp = doJSON(t, s, http.MethodPost, "/api/sendFriendRequest", a.Token, map[string]any{"friend_id": a.ID})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		_ = resp.Body.Close()

		resp = doJSON(t, s, http.MethodPost, "/api/sendFriendRequest", a.Token, map[string]any{"friend_id": 9999})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		_ = resp.Body.Close()

		resp = doJSON(t, s, http.MethodPost, "/api/sendFriendRequest", a.Token, map[string]any{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		_ = resp.Body.Close()
	})

	resp = doJSON(t, s, http.MethodGet, "/api/getFriendRequests", b.Token, nil)
	requests := decodeBody[[]map[string]any](t, resp)
	require.Len(t, requests, 1)
	assert.Equal(t, float64(a.ID), requests[0]["id"])

	resp = doJSON(t, s, http.MethodPost, "/api/acceptFriendRequest", b.Token, map[string]any{"requester_id": a.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	ev = readEvent(t, aConn)
	assert.Equal(t, notifications.EventFriendRequestAccepted, ev.Type)
	assert.Equal(t, float64(b.ID), ev.Payload["friend"].(map[string]any)["id"])

	for _, acct := range []testAccount{a, b} {
		resp = doJSON(t, s, http.MethodGet, "/api/getFriends", acct.Token, nil)
		friends := decodeBody[[]map[string]any](t, resp)
		assert.Len(t, friends, 1)

		resp = doJSON(t, s, http.MethodGet, "/api/getFriendRequests", acct.Token, nil)
		assert.Empty(t, decodeBody[[]map[string]any](t, resp))
	}

	resp = doJSON(t, s, http.MethodGet, "/api/onlineFriends", a.Token, nil)
	online := decodeBody[[]map[string]any](t, resp)
	require.Len(t, online, 1)
	assert.Equal(t, true, online[0]["online"])

	resp = doJSON(t, s, http.MethodPost, "/api/acceptFriendRequest", b.Token, map[string]any{"requester_id": a.ID})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestRejectFriendRequest(t *testing.T) {
	s := newTestServer(t, false)
	a := signupUser(t, s, "asha", "Central High", "10")
	b := signupUser(t, s, "bilal", "Central High", "10")

	resp := doJSON(t, s, http.MethodPost, "/api/sendFriendRequest", a.Token, map[string]any{"friend_id": itoa(b.ID)})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, s, http.MethodPost, "/api/rejectFriendRequest", b.Token, map[string]any{"requester_id": a.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, s, http.MethodGet, "/api/getFriendRequests", b.Token, nil)
	assert.Empty(t, decodeBody[[]map[string]any](t, resp))

	resp = doJSON(t, s, http.MethodPost, "/api/rejectFriendRequest", b.Token, map[string]any{"requester_id": a.ID})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}
