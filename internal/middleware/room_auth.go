package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"vanish/internal/domain"
	"vanish/internal/service"
	apperrors "vanish/pkg/errors"
	"vanish/pkg/logger"
)

// RoomAuthMiddleware guards room APIs: the caller's cookie token must be in
// the room's token set.
type RoomAuthMiddleware struct {
	gatekeeper service.GatekeeperService
	log        logger.Logger
}

func NewRoomAuthMiddleware(gatekeeper service.GatekeeperService, log logger.Logger) *RoomAuthMiddleware {
	return &RoomAuthMiddleware{
		gatekeeper: gatekeeper,
		log:        log,
	}
}

func (m *RoomAuthMiddleware) RequireMember() gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID := c.Query("roomId")
		if roomID == "" {
			roomID = c.Param("roomId")
		}
		if roomID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "roomId is required"})
			return
		}

		token := GetAuthToken(c)
		room, err := m.gatekeeper.Authorize(c.Request.Context(), roomID, token)
		switch {
		case apperrors.Is(err, apperrors.ErrRoomNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		case apperrors.Is(err, apperrors.ErrUnauthorized):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		case err != nil:
			m.log.Error("Room authorization failed", "error", err, "room_id", roomID)
			c.AbortWithStatusJSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "Service temporarily unavailable"})
			return
		}

		c.Set(ContextKeyRoomID, roomID)
		c.Set(ContextKeyRoom, room)
		c.Set(ContextKeyAuthToken, token)
		c.Next()
	}
}

func GetRoom(c *gin.Context) (*domain.Room, bool) {
	v, ok := c.Get(ContextKeyRoom)
	if !ok {
		return nil, false
	}
	room, ok := v.(*domain.Room)
	return room, ok
}
