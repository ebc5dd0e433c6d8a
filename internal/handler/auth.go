package handler

import (
	"net/http"

	"music_stream/internal/service"
	apperrors "music_stream/pkg/errors"
	"music_stream/pkg/logger"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	userService service.UserService
	log         logger.Logger
}

func NewAuthHandler(userService service.UserService, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		log:         log,
	}
}

// Callback is called by the web client after the identity provider signs the user in.
func (h *AuthHandler) Callback(c *gin.Context) {
	var req service.AuthCallbackInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Validation("Invalid request body"))
		return
	}

	if _, err := h.userService.AuthCallback(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
