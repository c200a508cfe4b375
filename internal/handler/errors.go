package handler

import (
	"github.com/gin-gonic/gin"
	apperrors "vanish/pkg/errors"
	"vanish/pkg/logger"
)

// respondError maps a service error to its status. Server-side failures are
// logged and answered with a generic message.
func respondError(c *gin.Context, log logger.Logger, err error) {
	status := apperrors.HTTPStatusFromError(err)
	if status < 500 {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	log.Error("Request failed", "error", err, "path", c.FullPath())
	message := "Internal server error"
	if apperrors.Is(err, apperrors.ErrStoreUnavailable) {
		message = "Service temporarily unavailable"
	}
	c.JSON(status, gin.H{"error": message})
}
