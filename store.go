package main

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrUserNotFound = errors.New("user not found")

// UserStore is the narrow persistence contract for chat identities.
type UserStore interface {
	GetOrCreateUser(username string) (*User, error)
	SetOnlineStatus(username string, online bool) (*User, error)
	ListUsers() ([]User, error)
}

// MessageStore persists chat history. RecentMessages returns the limit
// most recent messages in ascending timestamp order (id breaks ties) and
// has no side effects.
type MessageStore interface {
	AppendMessage(nm NewMessage) (*Message, error)
	RecentMessages(limit int) ([]Message, error)
}

// MemStore implements UserStore and MessageStore with in-process maps.
// It serves as the default backend when no database path is given, and
// as the test double everywhere.
type MemStore struct {
	mu        sync.Mutex
	users     map[string]*User
	messages  []Message
	nextMsgID int
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:     make(map[string]*User),
		nextMsgID: 1,
	}
}

func (s *MemStore) GetOrCreateUser(username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[username]; ok {
		copied := *u
		return &copied, nil
	}

	u := &User{
		ID:        uuid.NewString(),
		Username:  username,
		Status:    StatusOffline,
		IsOnline:  false,
		CreatedAt: time.Now(),
	}
	s.users[username] = u
	copied := *u
	return &copied, nil
}

func (s *MemStore) SetOnlineStatus(username string, online bool) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}

	u.IsOnline = online
	if online {
		u.Status = StatusOnline
	} else {
		u.Status = StatusOffline
	}
	copied := *u
	return &copied, nil
}

func (s *MemStore) ListUsers() ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (s *MemStore) AppendMessage(nm NewMessage) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := Message{
		ID:        s.nextMsgID,
		Content:   nm.Content,
		Sender:    nm.Sender,
		Timestamp: nm.Timestamp,
		FileURL:   nm.FileURL,
		FileName:  nm.FileName,
		FileSize:  nm.FileSize,
		FileType:  nm.FileType,
	}
	s.nextMsgID++
	s.messages = append(s.messages, msg)

	copied := msg
	return &copied, nil
}

func (s *MemStore) RecentMessages(limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := make([]Message, len(s.messages))
	copy(sorted, s.messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp != sorted[j].Timestamp {
			return sorted[i].Timestamp < sorted[j].Timestamp
		}
		return sorted[i].ID < sorted[j].ID
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}
	return sorted, nil
}

// onlineUsers filters a user listing down to connected users, the shape
// every presence payload carries.
func onlineUsers(users []User) []User {
	online := make([]User, 0, len(users))
	for _, u := range users {
		if u.IsOnline {
			online = append(online, u)
		}
	}
	return online
}
