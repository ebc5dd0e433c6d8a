package handler

import (
	"net/http"

	"music_stream/internal/middleware"
	"music_stream/internal/realtime"
	"music_stream/internal/service"
	"music_stream/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub             *realtime.Hub
	presenceService service.PresenceService
	messageService  service.MessageService
	upgrader        websocket.Upgrader
	log             logger.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, presenceService service.PresenceService, messageService service.MessageService, allowedOrigins []string, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:             hub,
		presenceService: presenceService,
		messageService:  messageService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     middleware.OriginAllowed(allowedOrigins),
		},
		log: log,
	}
}

// Serve upgrades an authenticated request and blocks for the session lifetime.
// In polling mode there is no hub and clients get 503.
func (h *WebSocketHandler) Serve(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Realtime channel unavailable, poll the REST API", "code": "POLLING_ONLY"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Failed to upgrade connection", "error", err, "origin", c.GetHeader("Origin"))
		return
	}

	client := realtime.NewClient(h.hub, conn, middleware.UserID(c), h.presenceService, h.messageService, h.log)
	h.log.Info("Session opened", "user_id", middleware.UserID(c), "session", client.ID())
	client.Serve()
}
