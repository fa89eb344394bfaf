package handlers

import (
	"log/slog"
	"net/http"

	"social-graph-service/internal/service"
	"social-graph-service/internal/session"
	"social-graph-service/internal/websocket"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub      *websocket.Hub
	auth     *service.AuthService
	sessions *session.Manager
	services websocket.Services
}

func NewWebSocketHandler(hub *websocket.Hub, auth *service.AuthService, sessions *session.Manager, services websocket.Services) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, auth: auth, sessions: sessions, services: services}
}

// HandleWebSocket upgrades the connection and binds it to a fresh session.
// The token travels as a query parameter because browsers cannot set headers
// on websocket handshakes.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	userID, err := h.auth.UserIDFromToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("Failed to upgrade websocket connection", "error", err)
		return
	}

	sess := h.sessions.SignIn(userID)
	client := websocket.NewClient(h.hub, conn, sess, h.services)
	h.hub.Register(client)
	client.Start()
}
