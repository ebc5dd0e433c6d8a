package handler

import (
	"net/http"

	"music_stream/internal/domain"
	"music_stream/internal/middleware"
	"music_stream/internal/service"
	apperrors "music_stream/pkg/errors"
	"music_stream/pkg/logger"

	"github.com/gin-gonic/gin"
)

// UserStatusHandler is the polling surface of presence. Responses keep the
// {success, data} envelope the web client expects.
type UserStatusHandler struct {
	presenceService service.PresenceService
	log             logger.Logger
}

func NewUserStatusHandler(presenceService service.PresenceService, log logger.Logger) *UserStatusHandler {
	return &UserStatusHandler{
		presenceService: presenceService,
		log:             log,
	}
}

type UpdateStatusRequest struct {
	UserID string                `json:"userId"`
	Status domain.PresenceStatus `json:"status"`
}

func (h *UserStatusHandler) Update(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" || req.Status == "" {
		h.fail(c, apperrors.Validation("User ID and status are required"))
		return
	}
	if req.UserID != middleware.UserID(c) {
		h.fail(c, apperrors.ErrSessionMismatch)
		return
	}

	record, err := h.presenceService.Announce(c.Request.Context(), req.UserID, req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User status updated successfully",
		"data":    record,
	})
}

func (h *UserStatusHandler) List(c *gin.Context) {
	records, err := h.presenceService.ListAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": records})
}

func (h *UserStatusHandler) Get(c *gin.Context) {
	record, err := h.presenceService.Get(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": record})
}

func (h *UserStatusHandler) fail(c *gin.Context, err error) {
	status := apperrors.HTTPStatusFromError(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	api := apperrors.FromError(err)
	c.JSON(status, gin.H{"success": false, "message": api.Message, "code": api.Code})
}
