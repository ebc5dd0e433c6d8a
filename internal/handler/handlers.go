package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"music_stream/internal/config"
	"music_stream/internal/middleware"
	"music_stream/internal/realtime"
	"music_stream/internal/service"
	apperrors "music_stream/pkg/errors"
	"music_stream/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handlers struct {
	Health     *HealthHandler
	Auth       *AuthHandler
	User       *UserHandler
	UserStatus *UserStatusHandler
	Message    *MessageHandler
	Song       *SongHandler
	Album      *AlbumHandler
	Admin      *AdminHandler
	Stats      *StatsHandler
	WebSocket  *WebSocketHandler
}

// NewHandlers wires every handler. hub is nil when clients poll instead of
// holding a websocket.
func NewHandlers(services *service.Services, hub *realtime.Hub, auth *middleware.AuthMiddleware, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:     NewHealthHandler(cfg, hub),
		Auth:       NewAuthHandler(services.User, log),
		User:       NewUserHandler(services.User, log),
		UserStatus: NewUserStatusHandler(services.Presence, log),
		Message:    NewMessageHandler(services.Message, cfg.Upload, log),
		Song:       NewSongHandler(services.Song, log),
		Album:      NewAlbumHandler(services.Album, log),
		Admin:      NewAdminHandler(services.Song, services.Album, services.Audit, auth, cfg.Upload, log),
		Stats:      NewStatsHandler(services.Stats, log),
		WebSocket:  NewWebSocketHandler(hub, services.Presence, services.Message, cfg.CORS.AllowedOrigins, log),
	}
}

// respondError writes the JSON error body; server errors are also attached to
// the context so ErrorHandler logs them.
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatusFromError(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, apperrors.FromError(err))
}

func parseID(c *gin.Context, param, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		respondError(c, apperrors.Validation("Invalid "+what+" ID"))
		return uuid.Nil, false
	}
	return id, true
}

// limitBody caps the request body; multipart parsing fails past n bytes.
func limitBody(c *gin.Context, n int64) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
}

// formFile returns the named upload, nil when absent.
func formFile(c *gin.Context, field string) (*service.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, formError(err)
	}
	return formUpload(fh), nil
}

func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.Validation("Request body too large")
	}
	return apperrors.Validation("Invalid multipart form")
}

func formUpload(fh *multipart.FileHeader) *service.Upload {
	return &service.Upload{
		Name: fh.Filename,
		Size: fh.Size,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

// countFiles counts every file part of a parsed multipart form.
func countFiles(c *gin.Context) (int, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return 0, formError(err)
	}
	n := 0
	for _, files := range form.File {
		n += len(files)
	}
	return n, nil
}
