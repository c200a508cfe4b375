package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"vanish/internal/domain"
	"vanish/internal/middleware"
	"vanish/internal/service"
	"vanish/pkg/logger"
)

type RoomHandler struct {
	roomService service.RoomService
	log         logger.Logger
}

func NewRoomHandler(roomService service.RoomService, log logger.Logger) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
		log:         log,
	}
}

type CreateRoomRequest struct {
	TTL             int `json:"ttl" binding:"omitempty,min=1,max=20"`
	MaxParticipants int `json:"maxParticipants" binding:"omitempty,min=2,max=5"`
}

func (h *RoomHandler) Create(c *gin.Context) {
	var req CreateRoomRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	room, err := h.roomService.Create(c.Request.Context(), service.CreateRoomInput{
		TTLMinutes:      req.TTL,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"roomId": room.ID})
}

func (h *RoomHandler) GetTTL(c *gin.Context) {
	ttl, err := h.roomService.TTL(c.Request.Context(), c.GetString(middleware.ContextKeyRoomID))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ttl": ttl})
}

func (h *RoomHandler) Destroy(c *gin.Context) {
	roomID := c.GetString(middleware.ContextKeyRoomID)
	if err := h.roomService.Destroy(c.Request.Context(), roomID); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// View renders the room a visitor was admitted to by the room gate.
func (h *RoomHandler) View(c *gin.Context) {
	room, ok := middleware.GetRoom(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	ttl, err := h.roomService.TTL(c.Request.Context(), room.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, domain.RoomView{
		ID:              room.ID,
		TTL:             ttl,
		MaxParticipants: room.MaxParticipants,
		Random:          room.Random,
	})
}
