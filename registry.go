package main

import (
	"errors"
	"log"
	"sync"
)

var ErrUsernameTaken = errors.New("username is already taken")

// subscriber is the slice of a connection the registry needs: queue an
// outbound frame, force the transport shut, and name itself for logs.
type subscriber interface {
	trySend(data []byte) bool
	closeConn()
	Username() string
}

// Registry is the single source of truth for which usernames currently
// hold a live connection. It is the only component that writes to every
// transport, and its map is the only place a username-to-connection
// association exists.
type Registry struct {
	mu      sync.Mutex
	clients map[string]subscriber
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]subscriber),
	}
}

// Register associates a username with a client. The duplicate check and
// the insert happen under one lock, so two sockets racing to join with
// the same name cannot both win.
func (r *Registry) Register(username string, client subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[username]; exists {
		return ErrUsernameTaken
	}
	r.clients[username] = client
	return nil
}

// Unregister removes the mapping for username, but only if it still
// points at client. A stale close racing a rapid reconnect must not
// evict the new session. Unregistering an absent username is a no-op.
func (r *Registry) Unregister(username string, client subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.clients[username]
	if !exists || current != client {
		return false
	}
	delete(r.clients, username)
	return true
}

// Broadcast sends data to every registered client except excludeUsername.
// Delivery is best-effort: a client whose send buffer is full or closed
// is dropped as if it had disconnected, and the remaining clients still
// receive the event.
func (r *Registry) Broadcast(data []byte, excludeUsername string) {
	if data == nil {
		return
	}

	r.mu.Lock()
	targets := make([]subscriber, 0, len(r.clients))
	for username, client := range r.clients {
		if excludeUsername != "" && username == excludeUsername {
			continue
		}
		targets = append(targets, client)
	}
	r.mu.Unlock()

	for _, client := range targets {
		if !client.trySend(data) {
			log.Printf("registry: dropping unresponsive client %q", client.Username())
			client.closeConn()
		}
	}
}

// OnlineUsernames returns a snapshot of the registered set.
func (r *Registry) OnlineUsernames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.clients))
	for username := range r.clients {
		names = append(names, username)
	}
	return names
}
