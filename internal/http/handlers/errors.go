package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/you/backoffice/domain"
	"github.com/you/backoffice/internal/http/middleware"
)

// statusFor maps a classified error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": message}. Unclassified errors never leak
// their text to the client.
func respondError(c *gin.Context, err error) {
	msg := "internal error"
	var de *domain.Error
	if errors.As(err, &de) {
		msg = de.Message()
	}
	c.JSON(statusFor(err), gin.H{"error": msg})
}

func requireUser(c *gin.Context) (uint, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	}
	return id, ok
}
