package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantType  EventType
		wantError bool
	}{
		{
			name:     "join event",
			data:     `{"type":"join","payload":{"username":"alice"}}`,
			wantType: EventJoin,
		},
		{
			name:     "message event",
			data:     `{"type":"message","payload":{"content":"hi"}}`,
			wantType: EventMessage,
		},
		{
			name:     "leave event with payload",
			data:     `{"type":"leave","payload":{"username":"alice"}}`,
			wantType: EventLeave,
		},
		{
			name:     "leave event without payload",
			data:     `{"type":"leave"}`,
			wantType: EventLeave,
		},
		{
			name:      "not JSON",
			data:      `{{{`,
			wantError: true,
		},
		{
			name:      "unknown type",
			data:      `{"type":"shout","payload":{}}`,
			wantError: true,
		},
		{
			name:      "server-only type is rejected inbound",
			data:      `{"type":"usersList","payload":{"users":[]}}`,
			wantError: true,
		},
		{
			name:      "join payload wrong shape",
			data:      `{"type":"join","payload":"alice"}`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := DecodeInbound([]byte(tt.data))

			if tt.wantError {
				require.Error(t, err)
				var perr *ProtocolError
				assert.ErrorAs(t, err, &perr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantType, event.Type)
		})
	}
}

func TestDecodeInboundPayloads(t *testing.T) {
	event, err := DecodeInbound([]byte(`{"type":"join","payload":{"username":"alice"}}`))
	require.NoError(t, err)
	require.NotNil(t, event.Join)
	assert.Equal(t, "alice", event.Join.Username)

	event, err = DecodeInbound([]byte(`{"type":"message","payload":{"content":"hello","sender":"ignored"}}`))
	require.NoError(t, err)
	require.NotNil(t, event.Message)
	assert.Equal(t, "hello", event.Message.Content)
}

func TestJoinReplyEventShape(t *testing.T) {
	data := JoinReplyEvent("Welcome to the chat, alice!", nil, nil)

	var env Event
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, EventJoin, env.Type)

	var payload JoinReplyPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.True(t, payload.Success)
	assert.Equal(t, "Welcome to the chat, alice!", payload.Message)
	// Empty slices, not null, so clients can iterate unguarded.
	assert.NotNil(t, payload.RecentMessages)
	assert.NotNil(t, payload.Users)
}

func TestUsersListEventShape(t *testing.T) {
	users := []User{{ID: "u1", Username: "alice", Status: StatusOnline, IsOnline: true}}
	data := UsersListEvent(users, "alice has joined the chat.")

	var env Event
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, EventUsersList, env.Type)

	var payload UsersListPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	require.Len(t, payload.Users, 1)
	assert.Equal(t, "alice", payload.Users[0].Username)
	assert.True(t, payload.Users[0].IsOnline)
	assert.Equal(t, "alice has joined the chat.", payload.SystemMessage)
}

func TestErrorEventShape(t *testing.T) {
	data := ErrorEvent("Username is required")

	var env Event
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, EventError, env.Type)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "Username is required", payload.Message)
}
