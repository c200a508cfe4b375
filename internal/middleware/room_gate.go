package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"vanish/internal/domain"
	"vanish/internal/metrics"
	"vanish/internal/service"
	"vanish/pkg/logger"
)

const (
	LobbyPath  = "/lobby"
	RandomPath = "/random"
)

// RoomGateMiddleware admits page loads of room paths, issuing the membership
// cookie on first entry and redirecting rejected visitors.
type RoomGateMiddleware struct {
	gatekeeper   service.GatekeeperService
	secureCookie bool
	metrics      *metrics.Metrics
	log          logger.Logger
}

func NewRoomGateMiddleware(gatekeeper service.GatekeeperService, secureCookie bool, m *metrics.Metrics, log logger.Logger) *RoomGateMiddleware {
	return &RoomGateMiddleware{
		gatekeeper:   gatekeeper,
		secureCookie: secureCookie,
		metrics:      m,
		log:          log,
	}
}

// Private gates /room/:roomId; rejections go back to the lobby with a reason.
func (m *RoomGateMiddleware) Private() gin.HandlerFunc {
	return m.gate(func(reason domain.RejectReason) string {
		if reason == domain.RejectFull {
			return LobbyPath + "?error=room-full"
		}
		return LobbyPath + "?error=room-not-found"
	})
}

// Random gates /random/:roomId; any rejection means the pairing is over.
func (m *RoomGateMiddleware) Random() gin.HandlerFunc {
	return m.gate(func(domain.RejectReason) string {
		return RandomPath + "?destroyed=true"
	})
}

func (m *RoomGateMiddleware) gate(redirectFor func(domain.RejectReason) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID := c.Param("roomId")
		if roomID == "" {
			c.Redirect(http.StatusFound, redirectFor(domain.RejectNotFound))
			c.Abort()
			return
		}

		admission, err := m.gatekeeper.Admit(c.Request.Context(), roomID, GetAuthToken(c), c.Request.UserAgent())
		if err != nil {
			m.log.Error("Room admission failed", "error", err, "room_id", roomID)
			_ = c.Error(err)
			c.Abort()
			return
		}

		if !admission.Admitted() {
			m.log.Debug("Room admission rejected", "room_id", roomID, "reason", admission.Reason)
			c.Redirect(http.StatusFound, redirectFor(admission.Reason))
			c.Abort()
			return
		}

		if admission.Issued {
			SetAuthCookie(c, admission.Token, m.secureCookie)
		}

		c.Set(ContextKeyRoomID, roomID)
		c.Set(ContextKeyRoom, admission.Room)
		c.Set(ContextKeyAuthToken, admission.Token)
		c.Set(ContextKeyAdmission, admission)
		c.Next()
	}
}
