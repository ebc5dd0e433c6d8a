package handler

import (
	"net/http"

	"music_stream/internal/service"
	"music_stream/pkg/logger"

	"github.com/gin-gonic/gin"
)

type SongHandler struct {
	songService service.SongService
	log         logger.Logger
}

func NewSongHandler(songService service.SongService, log logger.Logger) *SongHandler {
	return &SongHandler{
		songService: songService,
		log:         log,
	}
}

// List returns the whole catalog; mounted behind the admin guard.
func (h *SongHandler) List(c *gin.Context) {
	songs, err := h.songService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, songs)
}

func (h *SongHandler) MadeForYou(c *gin.Context) {
	songs, err := h.songService.MadeForYou(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, songs)
}

func (h *SongHandler) Trending(c *gin.Context) {
	songs, err := h.songService.Trending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, songs)
}

func (h *SongHandler) Search(c *gin.Context) {
	songs, err := h.songService.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, songs)
}
