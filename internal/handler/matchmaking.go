package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"vanish/internal/service"
	"vanish/pkg/logger"
)

type MatchmakingHandler struct {
	matchmakingService service.MatchmakingService
	log                logger.Logger
}

func NewMatchmakingHandler(matchmakingService service.MatchmakingService, log logger.Logger) *MatchmakingHandler {
	return &MatchmakingHandler{
		matchmakingService: matchmakingService,
		log:                log,
	}
}

type JoinQueueRequest struct {
	SessionID string `json:"sessionId" binding:"required,max=128"`
	Username  string `json:"username"`
}

type LeaveQueueRequest struct {
	SessionID string `json:"sessionId" binding:"required,max=128"`
}

func (h *MatchmakingHandler) Join(c *gin.Context) {
	var req JoinQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := h.matchmakingService.Join(c.Request.Context(), req.SessionID, req.Username)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *MatchmakingHandler) Leave(c *gin.Context) {
	var req LeaveQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.matchmakingService.Leave(c.Request.Context(), req.SessionID); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *MatchmakingHandler) Status(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId is required"})
		return
	}

	status, err := h.matchmakingService.Status(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
