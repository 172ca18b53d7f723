package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadMemory(t *testing.T, s *Server, author testAccount, title string, tagged ...testAccount) uint {
	t.Helper()
	ids := make([]uint, 0, len(tagged))
	for _, u := range tagged {
		ids = append(ids, u.ID)
	}
	resp := doJSON(t, s, http.MethodPost, "/api/uploadMemory", author.Token, map[string]any{
		"title":          title,
		"tagged_friends": ids,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	memory := decodeBody[map[string]any](t, resp)
	return uint(memory["id"].(float64))
}

func TestMemoryEndpoints(t *testing.T) {
	s := newTestServer(t, false)
	a := signupUser(t, s, "asha", "Central High", "10")
	b := signupUser(t, s, "bilal", "Central High", "10")
	stranger := signupUser(t, s, "chen", "Central High", "10")

	t.Run("title required", func(t *testing.T) {
		resp := doJSON(t, s, http.MethodPost, "/api/uploadMemory", a.Token, map[string]any{"title": " "})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		_ = resp.Body.Close()
	})

	resp := doJSON(t, s, http.MethodPost, "/api/uploadMemory", a.Token, map[string]any{
		"title":          "Graduation",
		"tagged_friends": itoa(b.ID) + "," + itoa(a.ID) + ",9999",
		"timeline_events": []map[string]string{
			{"date": "2024-06-01", "time": "10:00", "text": "Ceremony"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	memory := decodeBody[map[string]any](t, resp)
	memoryID := uint(memory["id"].(float64))
	tagged := memory["tagged_friends"].([]any)
	require.Len(t, tagged, 1)
	assert.Equal(t, float64(b.ID), tagged[0].(map[string]any)["id"])
	require.Len(t, memory["timeline_events"], 1)

	base := "/api/memory/" + itoa(memoryID)

	t.Run("photos by author and tagged only", func(t *testing.T) {
		resp := doJSON(t, s, http.MethodPost, base+"/addPhoto", b.Token, map[string]any{"url": "https://img.example.com/1.jpg"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		updated := decodeBody[map[string]any](t, resp)
		assert.Len(t, updated["photos"], 1)

		resp = doJSON(t, s, http.MethodPost, base+"/addPhoto", stranger.Token, map[string]any{"url": "https://img.example.com/2.jpg"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		_ = resp.Body.Close()

		resp = doJSON(t, s, http.MethodPost, base+"/addPhoto", a.Token, map[string]any{"url": ""})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		_ = resp.Body.Close()

		resp = doJSON(t, s, http.MethodPost, "/api/memory/9999/addPhoto", a.Token, map[string]any{"url": "https://x"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		_ = resp.Body.Close()
	})

	t.Run("timeline events", func(t *testing.T) {
		resp := doJSON(t, s, http.MethodPost, base+"/addTimelineEvent", a.Token, map[string]any{
			"date": "2024-06-02", "time": "20:00", "event_text": "Party",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		updated := decodeBody[map[string]any](t, resp)
		assert.Len(t, updated["timeline_events"], 2)

		resp = doJSON(t, s, http.MethodPost, base+"/addTimelineEvent", a.Token, map[string]any{"date": "june", "time": "20:00", "text": "x"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		_ = resp.Body.Close()

		resp = doJSON(t, s, http.MethodPost, base+"/addTimelineEvent", a.Token, map[string]any{"date": "2024-06-02", "text": "no time"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		_ = resp.Body.Close()
	})

	t.Run("like toggles", func(t *testing.T) {
		resp := doJSON(t, s, http.MethodPost, base+"/like", stranger.Token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		liked := decodeBody[map[string]any](t, resp)
		assert.Equal(t, true, liked["liked"])
		assert.Equal(t, float64(1), liked["likes_count"])

		resp = doJSON(t, s, http.MethodPost, base+"/like", stranger.Token, nil)
		unliked := decodeBody[map[string]any](t, resp)
		assert.Equal(t, false, unliked["liked"])
		assert.Equal(t, float64(0), unliked["likes_count"])
	})

	t.Run("comments", func(t *testing.T) {
		resp := doJSON(t, s, http.MethodPost, base+"/comment", stranger.Token, map[string]any{"content": "Congrats!"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		comments := decodeBody[[]map[string]any](t, resp)
		require.Len(t, comments, 1)
		assert.Equal(t, "chen", comments[0]["author"].(map[string]any)["name"])

		resp = doJSON(t, s, http.MethodPost, base+"/comment", stranger.Token, map[string]any{"content": ""})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		_ = resp.Body.Close()
	})

	resp = doJSON(t, s, http.MethodGet, base, stranger.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	full := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "asha", full["author"].(map[string]any)["name"])
	assert.Len(t, full["comments"], 1)

	resp = doJSON(t, s, http.MethodGet, "/api/userMemories/"+itoa(b.ID), a.Token, nil)
	assert.Len(t, decodeBody[[]map[string]any](t, resp), 1)

	resp = doJSON(t, s, http.MethodGet, "/api/userMemories/"+itoa(stranger.ID), a.Token, nil)
	assert.Empty(t, decodeBody[[]map[string]any](t, resp))
}

func TestMemoryFeed(t *testing.T) {
	s := newTestServer(t, false)
	a := signupUser(t, s, "asha", "Central High", "10")
	b := signupUser(t, s, "bilal", "Central High", "10")
	stranger := signupUser(t, s, "chen", "Central High", "10")
	makeFriends(t, s, a, b)

	uploadMemory(t, s, a, "own")
	friendMemory := uploadMemory(t, s, b, "friend")
	for i := 0; i < 11; i++ {
		uploadMemory(t, s, stranger, "stranger")
	}

	resp := doJSON(t, s, http.MethodGet, "/api/friendsMemories", a.Token, nil)
	friends := decodeBody[[]map[string]any](t, resp)
	require.Len(t, friends, 1)
	assert.Equal(t, float64(friendMemory), friends[0]["id"])

	resp = doJSON(t, s, http.MethodGet, "/api/memories", a.Token, nil)
	first := decodeBody[[]map[string]any](t, resp)
	require.Len(t, first, 10)

	resp = doJSON(t, s, http.MethodGet, "/api/memories/more/10", a.Token, nil)
	rest := decodeBody[[]map[string]any](t, resp)
	require.Len(t, rest, 3)

	seen := map[float64]bool{}
	for _, m := range append(first, rest...) {
		id := m["id"].(float64)
		assert.False(t, seen[id], "memory %v repeated", id)
		seen[id] = true
	}
	assert.Len(t, seen, 13)

	resp = doJSON(t, s, http.MethodGet, "/api/memories/more/50", a.Token, nil)
	assert.Empty(t, decodeBody[[]map[string]any](t, resp))

	resp = doJSON(t, s, http.MethodGet, "/api/memories/more/-1", a.Token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}
