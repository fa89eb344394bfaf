package handlers

import (
	"net/http"

	"social-graph-service/internal/models"
	"social-graph-service/internal/service"
	"social-graph-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type ConversationHandler struct {
	conversations *service.ConversationService
	chat          *service.ChatService
}

func NewConversationHandler(conversations *service.ConversationService, chat *service.ChatService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, chat: chat}
}

// List returns the caller's conversation index resolved to metadata.
func (h *ConversationHandler) List(c *gin.Context) {
	userID := c.GetString("user_id")

	convs, err := h.conversations.List(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, convs)
}

// Key resolves the canonical conversation key for the caller and another
// user, without creating anything.
func (h *ConversationHandler) Key(c *gin.Context) {
	userID := c.GetString("user_id")
	otherID := c.Param("id")

	c.JSON(http.StatusOK, gin.H{"key": service.ConversationKey(userID, otherID)})
}

// Messages returns the log for display, newest first.
func (h *ConversationHandler) Messages(c *gin.Context) {
	key := c.Param("key")

	msgs, err := h.chat.ListMessages(c.Request.Context(), key)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// Send appends a batch of messages. Attachments arrive as URLs already
// resolved through the media endpoint; raw uploads go through
// MediaHandler.AttachToMessage instead.
func (h *ConversationHandler) Send(c *gin.Context) {
	userID := c.GetString("user_id")
	key := c.Param("key")

	var req models.SendMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]service.OutgoingItem, len(req.Messages))
	for i, m := range req.Messages {
		items[i] = service.OutgoingItem{Text: m.Text, Image: m.Image, Video: m.Video}
	}

	sent, err := h.chat.SendMessage(c.Request.Context(), key, userID, items)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, sent)
}
