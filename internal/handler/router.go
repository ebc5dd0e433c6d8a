package handler

import (
	"music_stream/internal/config"
	"music_stream/internal/metrics"
	"music_stream/internal/middleware"
	"music_stream/pkg/logger"

	"github.com/gin-gonic/gin"
)

func NewRouter(
	handlers *Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	router.Use(metrics.GinMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))

	router.GET("/metrics", metrics.Handler())
	router.GET("/ws", authMiddleware.RequireAuth(), handlers.WebSocket.Serve)

	api := router.Group("/api")
	api.GET("/health", handlers.Health.Check)

	auth := api.Group("/auth")
	{
		auth.POST("/callback", rateLimitMiddleware.Limit(), handlers.Auth.Callback)
	}

	songs := api.Group("/songs")
	{
		songs.GET("/made-for-you", handlers.Song.MadeForYou)
		songs.GET("/trending", handlers.Song.Trending)
		songs.GET("/search", handlers.Song.Search)
		songs.GET("", authMiddleware.RequireAuth(), authMiddleware.RequireAdmin(), handlers.Song.List)
	}

	albums := api.Group("/albums")
	{
		albums.GET("", handlers.Album.List)
		albums.GET("/search", handlers.Album.Search)
		albums.GET("/:albumId", handlers.Album.Get)
	}

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth(), rateLimitMiddleware.Limit())
	{
		protected.GET("/users", handlers.User.List)
		protected.GET("/users/me", handlers.User.Me)

		messages := protected.Group("/messages")
		{
			messages.GET("", handlers.Message.List)
			messages.GET("/:userId", handlers.Message.Conversation)
			messages.POST("", handlers.Message.Send)
			messages.PUT("/:messageId", handlers.Message.Edit)
			messages.DELETE("/:messageId", handlers.Message.Delete)
		}

		status := protected.Group("/user-status")
		{
			status.POST("", handlers.UserStatus.Update)
			status.GET("", handlers.UserStatus.List)
			status.GET("/:userId", handlers.UserStatus.Get)
		}

		admin := protected.Group("/admin")
		admin.Use(authMiddleware.RequireAdmin())
		{
			admin.GET("/check", handlers.Admin.Check)
			admin.POST("/songs", handlers.Admin.CreateSong)
			admin.DELETE("/songs/:id", handlers.Admin.DeleteSong)
			admin.POST("/albums", handlers.Admin.CreateAlbum)
			admin.DELETE("/albums/:id", handlers.Admin.DeleteAlbum)
			admin.GET("/audit", handlers.Admin.AuditLog)
		}

		protected.GET("/stats", authMiddleware.RequireAdmin(), handlers.Stats.Get)
	}

	return router
}
