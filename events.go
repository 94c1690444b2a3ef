package main

import (
	"encoding/json"
	"fmt"
	"log"
)

type EventType string

const (
	EventJoin      EventType = "join"
	EventMessage   EventType = "message"
	EventLeave     EventType = "leave"
	EventUsersList EventType = "usersList"
	EventError     EventType = "error"
)

// Event is the wire envelope: one JSON object per frame.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type JoinPayload struct {
	Username string `json:"username"`
}

type MessagePayload struct {
	Content   string `json:"content"`
	Sender    string `json:"sender,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	FileURL   string `json:"fileUrl,omitempty"`
	FileName  string `json:"fileName,omitempty"`
	FileSize  string `json:"fileSize,omitempty"`
	FileType  string `json:"fileType,omitempty"`
}

type LeavePayload struct {
	Username string `json:"username,omitempty"`
}

type JoinReplyPayload struct {
	Success        bool      `json:"success"`
	Message        string    `json:"message"`
	RecentMessages []Message `json:"recentMessages"`
	Users          []User    `json:"users"`
}

type UsersListPayload struct {
	Users         []User `json:"users"`
	SystemMessage string `json:"systemMessage,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// ProtocolError marks a frame that could not be decoded: bad JSON or an
// event type outside the closed set. It never tears down the connection.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}

// InboundEvent is a decoded client frame. Exactly one of the payload
// fields is set, matching Type.
type InboundEvent struct {
	Type    EventType
	Join    *JoinPayload
	Message *MessagePayload
	Leave   *LeavePayload
}

// DecodeInbound parses a raw frame into a typed inbound event. Only the
// client-originated kinds are accepted; usersList and error are
// server-to-client and count as unknown here.
func DecodeInbound(data []byte) (*InboundEvent, error) {
	var env Event
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ProtocolError{Reason: "invalid message format"}
	}

	switch env.Type {
	case EventJoin:
		var p JoinPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, &ProtocolError{Reason: "invalid join payload"}
		}
		return &InboundEvent{Type: EventJoin, Join: &p}, nil
	case EventMessage:
		var p MessagePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, &ProtocolError{Reason: "invalid message payload"}
		}
		return &InboundEvent{Type: EventMessage, Message: &p}, nil
	case EventLeave:
		var p LeavePayload
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				return nil, &ProtocolError{Reason: "invalid leave payload"}
			}
		}
		return &InboundEvent{Type: EventLeave, Leave: &p}, nil
	default:
		return nil, &ProtocolError{Reason: fmt.Sprintf("unknown event type: %q", env.Type)}
	}
}

func encodeEvent(t EventType, payload interface{}) []byte {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal %s payload: %v", t, err)
		return nil
	}
	data, err := json.Marshal(Event{Type: t, Payload: raw})
	if err != nil {
		log.Printf("failed to marshal %s envelope: %v", t, err)
		return nil
	}
	return data
}

func JoinReplyEvent(welcome string, recent []Message, users []User) []byte {
	if recent == nil {
		recent = []Message{}
	}
	if users == nil {
		users = []User{}
	}
	return encodeEvent(EventJoin, JoinReplyPayload{
		Success:        true,
		Message:        welcome,
		RecentMessages: recent,
		Users:          users,
	})
}

func MessageEvent(msg Message) []byte {
	return encodeEvent(EventMessage, msg)
}

func UsersListEvent(users []User, systemMessage string) []byte {
	if users == nil {
		users = []User{}
	}
	return encodeEvent(EventUsersList, UsersListPayload{
		Users:         users,
		SystemMessage: systemMessage,
	})
}

func ErrorEvent(message string) []byte {
	return encodeEvent(EventError, ErrorPayload{Message: message})
}
