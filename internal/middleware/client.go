package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"vanish/internal/domain"
)

// ClientIdentifier derives the rate-limit identity from proxy headers: the
// first X-Forwarded-For hop, then X-Real-IP. Requests carrying neither share
// the "unknown" bucket.
func ClientIdentifier(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return domain.UnknownClient
}

const (
	ContextKeyClient    = "client_id"
	ContextKeyRoomID    = "room_id"
	ContextKeyRoom      = "room"
	ContextKeyAuthToken = "auth_token"
	ContextKeyAdmission = "admission"
)

// Client stores the client identifier in the gin context.
func Client() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyClient, ClientIdentifier(c.Request))
		c.Next()
	}
}

func GetClient(c *gin.Context) string {
	if v := c.GetString(ContextKeyClient); v != "" {
		return v
	}
	return ClientIdentifier(c.Request)
}
