package handlers

import (
	"net/http"
	"strings"

	"social-graph-service/internal/service"
	"social-graph-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type MediaHandler struct {
	chat *service.ChatService
}

func NewMediaHandler(chat *service.ChatService) *MediaHandler {
	return &MediaHandler{chat: chat}
}

// AttachToMessage sends one message carrying an uploaded file. The upload
// resolves before the message document exists, so a failed upload leaves the
// log untouched.
func (h *MediaHandler) AttachToMessage(c *gin.Context) {
	userID := c.GetString("user_id")
	key := c.Param("key")

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	kind := "image"
	if strings.HasPrefix(contentType, "video/") {
		kind = "video"
	}

	sent, err := h.chat.SendMessage(c.Request.Context(), key, userID, []service.OutgoingItem{{
		Text: c.PostForm("text"),
		Attachment: &service.MediaUpload{
			Reader:      file,
			Size:        header.Size,
			ContentType: contentType,
			Kind:        kind,
		},
	}})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, sent)
}
