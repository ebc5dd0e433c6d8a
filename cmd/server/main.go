package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"music_stream/internal/config"
	"music_stream/internal/handler"
	"music_stream/internal/middleware"
	"music_stream/internal/realtime"
	"music_stream/internal/repository"
	"music_stream/internal/repository/memory"
	"music_stream/internal/service"
	"music_stream/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Log.Level)
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	repos, closeStorage, err := openStorage(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open storage", "backend", cfg.Database.Backend, "error", err)
	}
	defer closeStorage()

	if cfg.NeedsRedis() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			appLogger.Fatal("Failed to connect to Redis", "error", err)
		}
		appLogger.Info("Redis connection established", "addr", cfg.Redis.Addr)

		if cfg.Presence.Backend == config.BackendRedis {
			repos.Presence = repository.NewRedisPresenceStore(rdb, cfg.Presence.TTL, appLogger)
		}
		if cfg.RateLimit.Backend == config.BackendRedis {
			repos.RateLimit = repository.NewRateLimitRepository(rdb, appLogger)
		}
	}
	if repos.Presence == nil {
		repos.Presence = memory.NewPresenceStore()
	}

	var hub *realtime.Hub
	var notifier service.Notifier = service.NopNotifier{}
	if cfg.Realtime.Mode == config.RealtimeModeWebSocket {
		hub = realtime.NewHub(appLogger)
		notifier = hub
		go hub.Run(ctx)
	}

	services := service.NewServices(repos, notifier, cfg, appLogger)
	go services.Presence.Run(ctx)

	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth, services.User, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, appLogger)

	handlers := handler.NewHandlers(services, hub, authMiddleware, cfg, appLogger)
	router := handler.NewRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server",
			"addr", srv.Addr,
			"storage", cfg.Database.Backend,
			"presence", cfg.Presence.Backend,
			"realtime", cfg.Realtime.Mode,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}
	// Stops the hub, closing every websocket, and the idle sweeper.
	stop()

	appLogger.Info("Server exited")
}

// openStorage returns the content repositories for the configured backend and
// a function releasing their resources.
func openStorage(ctx context.Context, cfg *config.Config, log logger.Logger) (*repository.Repositories, func(), error) {
	if cfg.Database.Backend == config.BackendMemory {
		log.Warn("Using in-memory storage; data is lost on restart")
		return memory.NewRepositories(), func() {}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConnections)
	poolCfg.MaxConnIdleTime = cfg.Database.MaxIdleTime
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	if err := repository.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("Database connection established")

	return repository.NewRepositories(pool, log), pool.Close, nil
}
