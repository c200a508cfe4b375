package middleware

import (
	"github.com/gin-gonic/gin"
	"vanish/pkg/errors"
	"vanish/pkg/logger"
)

// ErrorHandler renders the last error attached with c.Error, unless the
// handler already wrote a response.
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last()
		statusCode := errors.HTTPStatusFromError(err.Err)

		message := err.Error()
		if statusCode >= 500 {
			log.Error("Request error", "error", err.Err, "path", c.Request.URL.Path)
			message = "Internal server error"
			if errors.Is(err.Err, errors.ErrStoreUnavailable) {
				message = "Service temporarily unavailable"
			}
		}

		c.JSON(statusCode, gin.H{"error": message})
	}
}
