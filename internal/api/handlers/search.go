package handlers

import (
	"net/http"
	"strconv"

	"social-graph-service/internal/service"
	"social-graph-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	search *service.SearchService
}

func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// Search runs a one-shot directory query: ?q=<prefix>&limit=<n>.
func (h *SearchHandler) Search(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	results, err := h.search.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}
