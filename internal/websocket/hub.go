package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"social-graph-service/internal/service"
)

// Hub tracks connected clients per user, marks presence, and fans presence
// status updates out to every connected device.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Client lookup by user ID
	userClients map[string]map[*Client]bool

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	presence *service.PresenceService

	// Context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc

	mu sync.RWMutex
}

func NewHub(presence *service.PresenceService) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		presence:    presence,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (h *Hub) Run() {
	go h.forwardStatusUpdates()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.ctx.Done():
			slog.Info("WebSocket hub shutting down")
			h.closeAll()
			return
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	if h.userClients[client.userID] == nil {
		h.userClients[client.userID] = make(map[*Client]bool)
	}
	h.userClients[client.userID][client] = true
	h.mu.Unlock()

	slog.Info("Client registered", "clientID", client.id, "userID", client.userID)

	if err := h.presence.SetOnline(h.ctx, client.userID); err != nil {
		slog.Error("Failed to set user online", "userID", client.userID, "error", err)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	lastForUser := false
	if h.clients[client] {
		delete(h.clients, client)
		if set := h.userClients[client.userID]; set != nil {
			delete(set, client)
			if len(set) == 0 {
				delete(h.userClients, client.userID)
				lastForUser = true
			}
		}
	}
	h.mu.Unlock()

	client.close()
	slog.Info("Client unregistered", "clientID", client.id, "userID", client.userID)

	if lastForUser {
		if err := h.presence.SetOffline(h.ctx, client.userID); err != nil {
			slog.Error("Failed to set user offline", "userID", client.userID, "error", err)
		}
	}
}

// forwardStatusUpdates pushes presence flips to every connected device; each
// client filters for the users it cares about.
func (h *Hub) forwardStatusUpdates() {
	updates, err := h.presence.SubscribeStatusUpdates(h.ctx)
	if err != nil {
		slog.Error("Failed to subscribe to status updates", "error", err)
		return
	}

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			payload, err := json.Marshal(Event{Type: "presence", UserID: update.UserID, Payload: update.Status})
			if err != nil {
				continue
			}
			h.broadcast(payload)

		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.trySend(payload)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.close()
	}
	h.clients = make(map[*Client]bool)
	h.userClients = make(map[string]map[*Client]bool)
}
