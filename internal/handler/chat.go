package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"vanish/internal/domain"
	"vanish/internal/middleware"
	"vanish/internal/service"
	"vanish/pkg/logger"
)

type ChatHandler struct {
	chatService service.ChatService
	log         logger.Logger
}

func NewChatHandler(chatService service.ChatService, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		log:         log,
	}
}

type SendMessageRequest struct {
	Sender string `json:"sender" binding:"required,max=100"`
	Text   string `json:"text" binding:"required,max=1000"`
}

type TypingRequest struct {
	Sender   string `json:"sender" binding:"required,max=100"`
	IsTyping bool   `json:"isTyping"`
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.chatService.Post(c.Request.Context(),
		c.GetString(middleware.ContextKeyRoomID),
		c.GetString(middleware.ContextKeyAuthToken),
		service.PostMessageInput{Sender: req.Sender, Text: req.Text},
	)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	messages, err := h.chatService.List(c.Request.Context(),
		c.GetString(middleware.ContextKeyRoomID),
		c.GetString(middleware.ContextKeyAuthToken),
	)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *ChatHandler) Typing(c *gin.Context) {
	var req TypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.chatService.Typing(c.Request.Context(), c.GetString(middleware.ContextKeyRoomID), domain.TypingState{
		Sender:   req.Sender,
		IsTyping: req.IsTyping,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
