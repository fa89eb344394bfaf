package handlers

import (
	"net/http"

	"social-graph-service/internal/models"
	"social-graph-service/internal/service"
	"social-graph-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type RelationshipHandler struct {
	relationships *service.RelationshipService
	presence      *service.PresenceService
}

func NewRelationshipHandler(relationships *service.RelationshipService, presence *service.PresenceService) *RelationshipHandler {
	return &RelationshipHandler{relationships: relationships, presence: presence}
}

func (h *RelationshipHandler) SendRequest(c *gin.Context) {
	viewerID := c.GetString("user_id")

	var req models.FriendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.relationships.SendRequest(c.Request.Context(), viewerID, req.UserID); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "sent"})
}

func (h *RelationshipHandler) CancelRequest(c *gin.Context) {
	viewerID := c.GetString("user_id")
	subjectID := c.Param("id")

	if err := h.relationships.CancelRequest(c.Request.Context(), viewerID, subjectID); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (h *RelationshipHandler) AcceptRequest(c *gin.Context) {
	viewerID := c.GetString("user_id")
	subjectID := c.Param("id")

	if err := h.relationships.AcceptRequest(c.Request.Context(), viewerID, subjectID); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

func (h *RelationshipHandler) RejectRequest(c *gin.Context) {
	viewerID := c.GetString("user_id")
	subjectID := c.Param("id")

	if err := h.relationships.RejectRequest(c.Request.Context(), viewerID, subjectID); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

func (h *RelationshipHandler) RemoveFriend(c *gin.Context) {
	viewerID := c.GetString("user_id")
	subjectID := c.Param("id")

	if err := h.relationships.RemoveFriend(c.Request.Context(), viewerID, subjectID); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func (h *RelationshipHandler) GetState(c *gin.Context) {
	viewerID := c.GetString("user_id")
	subjectID := c.Param("id")

	state, err := h.relationships.State(c.Request.Context(), viewerID, subjectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, models.RelationshipResponse{UserID: subjectID, State: state})
}

func (h *RelationshipHandler) ListFriends(c *gin.Context) {
	viewerID := c.GetString("user_id")

	friends, err := h.relationships.ListFriends(c.Request.Context(), viewerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, friends)
}

func (h *RelationshipHandler) ListRequests(c *gin.Context) {
	viewerID := c.GetString("user_id")

	received, sent, err := h.relationships.ListRequests(c.Request.Context(), viewerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": received, "sent": sent})
}

func (h *RelationshipHandler) OnlineFriends(c *gin.Context) {
	viewerID := c.GetString("user_id")

	online, err := h.presence.OnlineFriends(c.Request.Context(), viewerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"online": online})
}
