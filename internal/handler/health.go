package handler

import (
	"net/http"

	"music_stream/internal/config"
	"music_stream/internal/realtime"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	environment string
	mode        string
	hub         *realtime.Hub
}

func NewHealthHandler(cfg *config.Config, hub *realtime.Hub) *HealthHandler {
	return &HealthHandler{
		environment: cfg.Environment,
		mode:        cfg.Realtime.Mode,
		hub:         hub,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	body := gin.H{
		"status":      "ok",
		"service":     "music-stream",
		"environment": h.environment,
		"realtime":    h.mode,
	}
	if h.hub != nil {
		body["online"] = h.hub.Online()
	}
	c.JSON(http.StatusOK, body)
}
