package main

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessagesEndpoint(t *testing.T) {
	ts, store := newChatServer(t)

	for i := 0; i < 5; i++ {
		_, err := store.AppendMessage(NewMessage{Content: "m", Sender: "alice", Timestamp: nowTimestamp()})
		require.NoError(t, err)
	}

	resp, err := http.Get(ts.URL + "/api/messages?limit=3")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Messages []Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Len(t, result.Messages, 3)
}

func TestMessagesEndpointIgnoresBadLimit(t *testing.T) {
	ts, store := newChatServer(t)

	_, err := store.AppendMessage(NewMessage{Content: "m", Sender: "alice", Timestamp: nowTimestamp()})
	require.NoError(t, err)

	for _, q := range []string{"?limit=0", "?limit=-1", "?limit=abc", "?limit=500", ""} {
		resp, err := http.Get(ts.URL + "/api/messages" + q)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, "query %q", q)
	}
}

func TestMessagesEndpointClampsLimit(t *testing.T) {
	ts, store := newChatServer(t)

	for i := 0; i < 120; i++ {
		_, err := store.AppendMessage(NewMessage{Content: "m", Sender: "alice", Timestamp: nowTimestamp()})
		require.NoError(t, err)
	}

	var result struct {
		Messages []Message `json:"messages"`
	}

	// Oversized limits clamp to the max rather than falling back to the
	// default.
	resp, err := http.Get(ts.URL + "/api/messages?limit=500")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	resp.Body.Close()
	assert.Len(t, result.Messages, maxHistoryQuery)

	resp, err = http.Get(ts.URL + "/api/messages")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	resp.Body.Close()
	assert.Len(t, result.Messages, historyLimit)
}

func TestUsersEndpoint(t *testing.T) {
	ts, store := newChatServer(t)

	_, err := store.GetOrCreateUser("alice")
	require.NoError(t, err)
	_, err = store.SetOnlineStatus("alice", true)
	require.NoError(t, err)
	_, err = store.GetOrCreateUser("bob")
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/api/users")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Users []User `json:"users"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.Len(t, result.Users, 2)

	byName := map[string]User{}
	for _, u := range result.Users {
		byName[u.Username] = u
	}
	assert.True(t, byName["alice"].IsOnline)
	assert.False(t, byName["bob"].IsOnline)
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{1536, "1.5 KB"},
		{3 << 20, "3.0 MB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatFileSize(tt.bytes))
	}
}
