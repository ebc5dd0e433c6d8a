package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"music_stream/internal/config"
	"music_stream/internal/domain"
	"music_stream/internal/middleware"
	"music_stream/internal/service"
	apperrors "music_stream/pkg/errors"
	"music_stream/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdminHandler struct {
	songService  service.SongService
	albumService service.AlbumService
	audit        service.AuditService
	auth         *middleware.AuthMiddleware
	maxFiles     int
	maxBody      int64
	log          logger.Logger
}

func NewAdminHandler(songService service.SongService, albumService service.AlbumService, audit service.AuditService, auth *middleware.AuthMiddleware, cfg config.UploadConfig, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		songService:  songService,
		albumService: albumService,
		audit:        audit,
		auth:         auth,
		maxFiles:     cfg.MaxFiles,
		maxBody:      int64(cfg.MaxFiles+1)*cfg.MaxFileSize + 1<<20,
		log:          log,
	}
}

// Check tells the web client whether to show admin controls.
func (h *AdminHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"admin": h.auth.IsAdmin(c)})
}

func (h *AdminHandler) CreateSong(c *gin.Context) {
	if !h.checkFiles(c) {
		return
	}

	audio, err := formFile(c, "audioFile")
	if err != nil {
		respondError(c, err)
		return
	}
	image, err := formFile(c, "imageFile")
	if err != nil {
		respondError(c, err)
		return
	}

	in := service.CreateSongInput{
		Title:  c.PostForm("title"),
		Artist: c.PostForm("artist"),
		Audio:  audio,
		Image:  image,
	}
	if raw := strings.TrimSpace(c.PostForm("duration")); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, apperrors.Validation("Duration must be a number of seconds"))
			return
		}
		in.Duration = d
	}
	if raw := strings.TrimSpace(c.PostForm("albumId")); raw != "" && raw != "none" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, apperrors.Validation("Invalid album ID"))
			return
		}
		in.AlbumID = &id
	}

	song, err := h.songService.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), middleware.UserID(c), domain.AuditSongCreated, &song.ID, map[string]interface{}{
		"title":  song.Title,
		"artist": song.Artist,
	})
	c.JSON(http.StatusCreated, song)
}

func (h *AdminHandler) DeleteSong(c *gin.Context) {
	songID, ok := parseID(c, "id", "song")
	if !ok {
		return
	}
	if err := h.songService.Delete(c.Request.Context(), songID); err != nil {
		respondError(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), middleware.UserID(c), domain.AuditSongDeleted, &songID, nil)
	c.JSON(http.StatusOK, gin.H{"message": "Song deleted successfully"})
}

func (h *AdminHandler) CreateAlbum(c *gin.Context) {
	if !h.checkFiles(c) {
		return
	}

	image, err := formFile(c, "imageFile")
	if err != nil {
		respondError(c, err)
		return
	}

	in := service.CreateAlbumInput{
		Title:  c.PostForm("title"),
		Artist: c.PostForm("artist"),
		Image:  image,
	}
	if raw := strings.TrimSpace(c.PostForm("releaseYear")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, apperrors.Validation("Release year must be a number"))
			return
		}
		in.ReleaseYear = year
	}

	album, err := h.albumService.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), middleware.UserID(c), domain.AuditAlbumCreated, &album.ID, map[string]interface{}{
		"title":  album.Title,
		"artist": album.Artist,
	})
	c.JSON(http.StatusCreated, album)
}

func (h *AdminHandler) DeleteAlbum(c *gin.Context) {
	albumID, ok := parseID(c, "id", "album")
	if !ok {
		return
	}
	if err := h.albumService.Delete(c.Request.Context(), albumID); err != nil {
		respondError(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), middleware.UserID(c), domain.AuditAlbumDeleted, &albumID, nil)
	c.JSON(http.StatusOK, gin.H{"message": "Album deleted successfully"})
}

// AuditLog lists recent catalog changes, newest first.
func (h *AdminHandler) AuditLog(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(c, apperrors.Validation("Limit must be a positive number"))
			return
		}
		limit = n
	}

	entries, err := h.audit.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// checkFiles parses the multipart form and enforces the per-request file count.
func (h *AdminHandler) checkFiles(c *gin.Context) bool {
	limitBody(c, h.maxBody)
	n, err := countFiles(c)
	if err != nil {
		respondError(c, err)
		return false
	}
	if n > h.maxFiles {
		respondError(c, apperrors.Validation(fmt.Sprintf("At most %d files per request", h.maxFiles)))
		return false
	}
	return true
}
