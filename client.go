package main

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	historyLimit   = 50
	writeWait      = 10 * time.Second
	maxFrameSize   = 1 << 20 // generous; long messages must not kill the connection
	sendBufferSize = 256
)

// Client is one live transport session. It starts unjoined, becomes
// joined after a valid join event registers its username, and is closed
// when the transport drops or a leave event arrives. All inbound events
// are processed sequentially on the read pump.
type Client struct {
	conn     *websocket.Conn
	registry *Registry
	users    UserStore
	messages MessageStore

	send chan []byte
	done chan struct{}
	once sync.Once

	mu       sync.Mutex
	username string
}

func NewClient(conn *websocket.Conn, registry *Registry, users UserStore, messages MessageStore) *Client {
	return &Client{
		conn:     conn,
		registry: registry,
		users:    users,
		messages: messages,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
}

// Run services the connection until it closes. It blocks; the write pump
// runs on its own goroutine.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

func (c *Client) setUsername(username string) {
	c.mu.Lock()
	c.username = username
	c.mu.Unlock()
}

// trySend queues data for the write pump without blocking. A false
// return means the client is closed or too slow to keep up.
func (c *Client) trySend(data []byte) bool {
	if data == nil {
		return true
	}

	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeConn() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *Client) readPump() {
	defer func() {
		c.handleDisconnect()
		c.closeConn()
	}()

	c.conn.SetReadLimit(maxFrameSize)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			break
		}

		event, err := DecodeInbound(data)
		if err != nil {
			// Malformed frames never tear down the connection.
			c.trySend(ErrorEvent(err.Error()))
			continue
		}

		c.handleEvent(event)

		select {
		case <-c.done:
			return
		default:
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *Client) handleEvent(event *InboundEvent) {
	switch event.Type {
	case EventJoin:
		c.handleJoin(event.Join)
	case EventMessage:
		c.handleMessage(event.Message)
	case EventLeave:
		c.handleLeave()
	default:
		// DecodeInbound only produces the three client kinds.
		c.trySend(ErrorEvent(fmt.Sprintf("unexpected event type: %q", event.Type)))
	}
}

func (c *Client) handleJoin(payload *JoinPayload) {
	if c.Username() != "" {
		c.trySend(ErrorEvent("You have already joined the chat"))
		return
	}

	username := strings.TrimSpace(payload.Username)
	if username == "" {
		c.trySend(ErrorEvent("Username is required"))
		return
	}

	if err := c.registry.Register(username, c); err != nil {
		c.trySend(ErrorEvent("Username is already taken"))
		return
	}

	if err := c.completeJoin(username); err != nil {
		// The user record never materialized, so the session stays
		// unjoined and the name becomes free again.
		c.registry.Unregister(username, c)
		log.Printf("join failed for %q: %v", username, err)
		c.trySend(ErrorEvent("Failed to join the chat"))
		return
	}

	recent, err := c.messages.RecentMessages(historyLimit)
	var online []User
	if err == nil {
		online, err = c.onlinePresence()
	}
	if err != nil {
		// The snapshot cannot be delivered, so the join fails as a unit:
		// one error event, and the name becomes free again.
		log.Printf("join snapshot failed for %q: %v", username, err)
		if _, offErr := c.users.SetOnlineStatus(username, false); offErr != nil {
			log.Printf("set offline failed for %q: %v", username, offErr)
		}
		c.registry.Unregister(username, c)
		c.trySend(ErrorEvent("Failed to join the chat"))
		return
	}

	c.setUsername(username)
	log.Printf("user joined: %s", username)

	c.trySend(JoinReplyEvent(fmt.Sprintf("Welcome to the chat, %s!", username), recent, online))

	c.registry.Broadcast(UsersListEvent(online, fmt.Sprintf("%s has joined the chat.", username)), username)

	// Persisted so future joiners see the notice in their history replay;
	// connected clients were already told via the usersList broadcast.
	c.persistSystemMessage(fmt.Sprintf("%s has joined the chat", username))
}

func (c *Client) completeJoin(username string) error {
	if _, err := c.users.GetOrCreateUser(username); err != nil {
		return fmt.Errorf("get or create user: %w", err)
	}
	if _, err := c.users.SetOnlineStatus(username, true); err != nil {
		return fmt.Errorf("set online status: %w", err)
	}
	return nil
}

func (c *Client) handleMessage(payload *MessagePayload) {
	username := c.Username()
	if username == "" {
		c.trySend(ErrorEvent("You must join before sending messages"))
		return
	}

	if strings.TrimSpace(payload.Content) == "" {
		c.trySend(ErrorEvent("Message content is required"))
		return
	}

	saved, err := c.messages.AppendMessage(NewMessage{
		Content:   payload.Content,
		Sender:    username,
		Timestamp: nowTimestamp(),
	})
	if err != nil {
		log.Printf("message persist failed for %q: %v", username, err)
		c.trySend(ErrorEvent("Failed to send message"))
		return
	}

	// The sender renders from this broadcast too; there is no local echo.
	c.registry.Broadcast(MessageEvent(*saved), "")
}

func (c *Client) handleLeave() {
	c.handleDisconnect()
	c.closeConn()
}

// handleDisconnect runs the leave transition. It is safe to call more
// than once: only the call that still owns the registry mapping emits
// the leave notice.
func (c *Client) handleDisconnect() {
	username := c.Username()
	if username == "" {
		return
	}

	if !c.registry.Unregister(username, c) {
		return
	}

	log.Printf("user left: %s", username)

	if _, err := c.users.SetOnlineStatus(username, false); err != nil {
		log.Printf("set offline failed for %q: %v", username, err)
	}

	c.persistSystemMessage(fmt.Sprintf("%s has left the chat", username))

	online, err := c.onlinePresence()
	if err != nil {
		log.Printf("user listing failed after %q left: %v", username, err)
	}
	c.registry.Broadcast(UsersListEvent(online, fmt.Sprintf("%s has left the chat.", username)), "")
}

func (c *Client) onlinePresence() ([]User, error) {
	users, err := c.users.ListUsers()
	if err != nil {
		return nil, err
	}
	return onlineUsers(users), nil
}

func (c *Client) persistSystemMessage(content string) {
	_, err := c.messages.AppendMessage(NewMessage{
		Content:   content,
		Sender:    SystemSender,
		Timestamp: nowTimestamp(),
	})
	if err != nil {
		log.Printf("system message persist failed: %v", err)
	}
}
