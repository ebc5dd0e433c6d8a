package handler

import (
	"net/http"
	"strings"

	"music_stream/internal/config"
	"music_stream/internal/middleware"
	"music_stream/internal/service"
	apperrors "music_stream/pkg/errors"
	"music_stream/pkg/logger"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	messageService service.MessageService
	maxBody        int64
	log            logger.Logger
}

func NewMessageHandler(messageService service.MessageService, cfg config.UploadConfig, log logger.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		// room for one oversized file so the size check can answer with a proper message
		maxBody: 2*cfg.ChatMaxFileSize + 1<<20,
		log:     log,
	}
}

// List returns every message the caller sent or received.
func (h *MessageHandler) List(c *gin.Context) {
	messages, err := h.messageService.ListForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// Conversation returns the messages between the caller and :userId, oldest first.
func (h *MessageHandler) Conversation(c *gin.Context) {
	messages, err := h.messageService.ListConversation(c.Request.Context(), middleware.UserID(c), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

type SendMessageRequest struct {
	ReceiverID string `json:"receiverId" form:"receiverId"`
	Message    string `json:"message" form:"message"`
	ReplyToID  string `json:"replyToId" form:"replyToId"`
}

// Send accepts multipart (with an optional file field) or a JSON body for text only.
func (h *MessageHandler) Send(c *gin.Context) {
	limitBody(c, h.maxBody)

	var req SendMessageRequest
	var file *service.Upload
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			respondError(c, formError(err))
			return
		}
		f, err := formFile(c, "file")
		if err != nil {
			respondError(c, err)
			return
		}
		file = f
	} else if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Validation("Invalid request body"))
		return
	}

	message, err := h.messageService.Send(c.Request.Context(), service.SendMessageInput{
		SenderID:   middleware.UserID(c),
		ReceiverID: req.ReceiverID,
		Text:       req.Message,
		File:       file,
		ReplyToID:  req.ReplyToID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

type EditMessageRequest struct {
	Message string `json:"message"`
}

func (h *MessageHandler) Edit(c *gin.Context) {
	messageID, ok := parseID(c, "messageId", "message")
	if !ok {
		return
	}

	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Validation("Invalid request body"))
		return
	}

	message, err := h.messageService.Edit(c.Request.Context(), messageID, middleware.UserID(c), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, message)
}

func (h *MessageHandler) Delete(c *gin.Context) {
	messageID, ok := parseID(c, "messageId", "message")
	if !ok {
		return
	}

	if err := h.messageService.Delete(c.Request.Context(), messageID, middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Message deleted successfully"})
}
