package handler

import (
	"net/http"

	"music_stream/internal/service"
	"music_stream/pkg/logger"

	"github.com/gin-gonic/gin"
)

type AlbumHandler struct {
	albumService service.AlbumService
	log          logger.Logger
}

func NewAlbumHandler(albumService service.AlbumService, log logger.Logger) *AlbumHandler {
	return &AlbumHandler{
		albumService: albumService,
		log:          log,
	}
}

func (h *AlbumHandler) List(c *gin.Context) {
	albums, err := h.albumService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, albums)
}

func (h *AlbumHandler) Get(c *gin.Context) {
	albumID, ok := parseID(c, "albumId", "album")
	if !ok {
		return
	}

	album, err := h.albumService.Get(c.Request.Context(), albumID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, album)
}

func (h *AlbumHandler) Search(c *gin.Context) {
	albums, err := h.albumService.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, albums)
}
