package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"vanish/internal/domain"
	"vanish/internal/middleware"
	"vanish/internal/realtime"
	"vanish/internal/service"
	"vanish/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxInboundSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Room streams are authorized by a SameSite=Lax cookie, which browsers
	// do not attach to cross-site handshakes.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type EventStream interface {
	Subscribe(ctx context.Context, channel string) (*realtime.Subscription, error)
	History(ctx context.Context, channel string) ([]*domain.Event, error)
}

// eventFilter decides whether an event is forwarded to the client.
type eventFilter func(ctx context.Context, event *domain.Event) bool

type WebSocketHandler struct {
	stream             EventStream
	matchmakingService service.MatchmakingService
	log                logger.Logger
}

func NewWebSocketHandler(stream EventStream, matchmakingService service.MatchmakingService, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		stream:             stream,
		matchmakingService: matchmakingService,
		log:                log,
	}
}

// HandleRoom streams a room's events. Room membership is checked by the
// room auth middleware before the upgrade.
func (h *WebSocketHandler) HandleRoom(c *gin.Context) {
	h.serve(c, c.GetString(middleware.ContextKeyRoomID), nil)
}

// HandleSession streams a matchmaking session's events. A random.matched
// event is forwarded only if this stream wins the match record.
func (h *WebSocketHandler) HandleSession(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" || len(sessionID) > 128 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sessionId"})
		return
	}

	h.serve(c, sessionID, func(ctx context.Context, event *domain.Event) bool {
		if event.Name != domain.EventRandomMatched {
			return true
		}
		_, ok, err := h.matchmakingService.ConsumeMatch(ctx, sessionID)
		if err != nil {
			h.log.Warn("Failed to consume match record", "error", err, "session_id", sessionID)
			return false
		}
		return ok
	})
}

func (h *WebSocketHandler) serve(c *gin.Context, channel string, filter eventFilter) {
	ctx := c.Request.Context()

	// Subscribe before reading history so nothing falls between the two.
	sub, err := h.stream.Subscribe(ctx, channel)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer sub.Close()

	history, err := h.stream.History(ctx, channel)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err, "channel", channel)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxInboundSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Clients never send anything; reading only drives pongs and close frames.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Live events may repeat the tail of the replayed history.
	replayed := make(map[string]struct{}, len(history))
	deliver := func(event *domain.Event) bool {
		if filter != nil && !filter(ctx, event) {
			return true
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(event); err != nil {
			h.log.Debug("Failed to write event", "error", err, "channel", channel)
			return false
		}
		return event.Name != domain.EventChatDestroy
	}

	for _, event := range history {
		replayed[event.ID] = struct{}{}
		if !deliver(event) {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if _, dup := replayed[event.ID]; dup {
				delete(replayed, event.ID)
				continue
			}
			if !deliver(event) {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
