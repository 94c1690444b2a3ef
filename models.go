package main

import (
	"time"
)

type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusOffline UserStatus = "offline"
)

type User struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Status    UserStatus `json:"status"`
	IsOnline  bool       `json:"isOnline"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Message is one unit of chat content. Timestamp is an ISO-8601 string,
// server-assigned at persist time. The file fields are present as a group
// for upload messages and empty otherwise.
type Message struct {
	ID        int    `json:"id"`
	Content   string `json:"content"`
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"`
	FileURL   string `json:"fileUrl,omitempty"`
	FileName  string `json:"fileName,omitempty"`
	FileSize  string `json:"fileSize,omitempty"`
	FileType  string `json:"fileType,omitempty"`
}

// SystemSender is the reserved sender identity for join/leave notices.
const SystemSender = "System"

// nowTimestamp returns the server-assigned message timestamp: UTC,
// millisecond precision, fixed width so lexicographic order matches
// chronological order.
func nowTimestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// NewMessage is a message as submitted for persistence, before the store
// assigns an id.
type NewMessage struct {
	Content   string
	Sender    string
	Timestamp string
	FileURL   string
	FileName  string
	FileSize  string
	FileType  string
}
