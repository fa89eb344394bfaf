package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"social-graph-service/internal/service"
	"social-graph-service/internal/session"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// Event is one frame pushed to a device.
type Event struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId,omitempty"`
	UserID         string `json:"userId,omitempty"`
	Payload        any    `json:"payload,omitempty"`
	Error          string `json:"error,omitempty"`
}

// command is one frame received from a device.
type command struct {
	Action         string `json:"action"`
	ConversationID string `json:"conversationId,omitempty"`
	UserID         string `json:"userId,omitempty"`
	Query          string `json:"query,omitempty"`
}

// Services bundles what a connected device can subscribe to.
type Services struct {
	Chat          *service.ChatService
	Conversations *service.ConversationService
	Relationships *service.RelationshipService
	Search        *service.SearchService
}

// Client is one device connection. Every live view it opens is tracked on its
// session, so dropping the connection cancels all of them without touching
// the store.
type Client struct {
	id       string
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{} // closed on teardown; send stays open
	userID   string
	session  *session.Session
	services Services

	// Active subscriptions keyed by "<kind>:<argument>"
	mu   sync.Mutex
	subs map[string]func()

	closed int32
}

func NewClient(hub *Hub, conn *websocket.Conn, sess *session.Session, services Services) *Client {
	return &Client{
		id:       uuid.New().String(),
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		done:     make(chan struct{}),
		userID:   sess.UserID,
		session:  sess,
		services: services,
		subs:     make(map[string]func()),
	}
}

func (c *Client) UserID() string {
	return c.userID
}

// Start runs the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer c.hub.Unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket read error", "clientID", c.id, "error", err)
			}
			return
		}

		var cmd command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			c.sendEvent(Event{Type: "error", Error: "malformed command"})
			continue
		}
		c.handleCommand(cmd)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *Client) handleCommand(cmd command) {
	switch cmd.Action {
	case "subscribe_messages":
		c.subscribeMessages(cmd.ConversationID)
	case "unsubscribe_messages":
		c.dropSubscription("messages:" + cmd.ConversationID)
	case "subscribe_conversations":
		c.subscribeConversations()
	case "unsubscribe_conversations":
		c.dropSubscription("conversations:" + c.userID)
	case "subscribe_relationship":
		c.subscribeRelationship(cmd.UserID)
	case "unsubscribe_relationship":
		c.dropSubscription("relationship:" + cmd.UserID)
	case "subscribe_search":
		c.subscribeSearch(cmd.Query)
	case "unsubscribe_search":
		c.dropSubscription("search")
	default:
		c.sendEvent(Event{Type: "error", Error: "unknown action: " + cmd.Action})
	}
}

func (c *Client) subscribeMessages(conversationID string) {
	stream, err := c.services.Chat.SubscribeMessages(c.session.Context(), conversationID)
	if err != nil {
		c.sendEvent(Event{Type: "error", ConversationID: conversationID, Error: err.Error()})
		return
	}
	c.trackSubscription("messages:"+conversationID, stream.Cancel)

	go func() {
		for view := range stream.Updates() {
			c.sendEvent(Event{Type: "messages", ConversationID: conversationID, Payload: view})
		}
	}()
}

func (c *Client) subscribeConversations() {
	stream, err := c.services.Conversations.SubscribeIndex(c.session.Context(), c.userID)
	if err != nil {
		c.sendEvent(Event{Type: "error", Error: err.Error()})
		return
	}
	c.trackSubscription("conversations:"+c.userID, stream.Cancel)

	go func() {
		for keys := range stream.Updates() {
			c.sendEvent(Event{Type: "conversations", Payload: keys})
		}
	}()
}

func (c *Client) subscribeRelationship(subjectID string) {
	stream, err := c.services.Relationships.SubscribeState(c.session.Context(), c.userID, subjectID)
	if err != nil {
		c.sendEvent(Event{Type: "error", UserID: subjectID, Error: err.Error()})
		return
	}
	c.trackSubscription("relationship:"+subjectID, stream.Cancel)

	go func() {
		for state := range stream.Updates() {
			c.sendEvent(Event{Type: "relationship", UserID: subjectID, Payload: state})
		}
	}()
}

func (c *Client) subscribeSearch(query string) {
	// One active directory query per device; a new one replaces it.
	c.dropSubscription("search")

	stream, err := c.services.Search.Subscribe(c.session.Context(), query, 0)
	if err != nil {
		c.sendEvent(Event{Type: "error", Error: err.Error()})
		return
	}
	c.trackSubscription("search", stream.Cancel)

	go func() {
		for results := range stream.Updates() {
			c.sendEvent(Event{Type: "search", Payload: results})
		}
	}()
}

func (c *Client) trackSubscription(key string, cancel func()) {
	c.mu.Lock()
	if old, ok := c.subs[key]; ok {
		old()
	}
	c.subs[key] = cancel
	c.mu.Unlock()
	c.session.Track(cancel)
}

func (c *Client) dropSubscription(key string) {
	c.mu.Lock()
	cancel, ok := c.subs[key]
	if ok {
		delete(c.subs, key)
	}
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

func (c *Client) sendEvent(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal event", "clientID", c.id, "error", err)
		return
	}
	c.trySend(payload)
}

// trySend drops the frame if the client is shutting down or its buffer is
// full rather than blocking the sender. The send channel is never closed;
// forwarder goroutines deliver concurrently with teardown, so a close would
// race with their sends.
func (c *Client) trySend(payload []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- payload:
	case <-c.done:
	default:
		slog.Warn("Client send buffer full, dropping frame", "clientID", c.id)
	}
}

// close tears the connection down exactly once and closes the session, which
// cancels every live view the device opened.
func (c *Client) close() {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return
	}
	c.session.Close()
	close(c.done)
	if c.conn != nil {
		c.conn.Close()
	}
}
