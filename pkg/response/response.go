package response

import (
	"errors"
	"net/http"

	"social-graph-service/internal/models"

	"github.com/gin-gonic/gin"
)

// StatusFromError maps the core error kinds to HTTP statuses. StaleState maps
// to 409 so clients know to re-read and retry; the services have already
// retried once internally by the time it surfaces here.
func StatusFromError(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, models.ErrStaleState):
		return http.StatusConflict
	case errors.Is(err, models.ErrPartialWrite):
		return http.StatusConflict
	case errors.Is(err, models.ErrUploadFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error writes the error as a JSON body with the mapped status.
func Error(c *gin.Context, err error) {
	c.JSON(StatusFromError(err), gin.H{"error": err.Error()})
}
