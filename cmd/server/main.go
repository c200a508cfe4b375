package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"vanish/internal/config"
	"vanish/internal/handler"
	"vanish/internal/metrics"
	"vanish/internal/middleware"
	"vanish/internal/realtime"
	"vanish/internal/repository"
	"vanish/internal/service"
	"vanish/pkg/logger"
	"vanish/pkg/sealer"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.NewWithOptions(logger.Options{
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Encoding,
		FilePath: cfg.Log.File,
	})
	defer appLogger.Sync()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established", "addr", cfg.Redis.Addr)

	key, fallback, err := cfg.EncryptionKey()
	if err != nil {
		appLogger.Fatal("Invalid encryption key", "error", err)
	}
	if fallback {
		appLogger.Warn("ENCRYPTION_KEY is not set, using the development key")
	}
	messageSealer, err := sealer.New(cfg.Encryption.Cipher, key)
	if err != nil {
		appLogger.Fatal("Failed to initialize message encryption", "error", err)
	}

	appMetrics := metrics.New()
	repos := repository.NewRepositories(rdb, appLogger)
	broker := realtime.NewBroker(rdb, cfg.Realtime.HistorySize, appLogger)
	services := service.NewServices(repos, broker, messageSealer, appMetrics, cfg, appLogger)

	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, appMetrics, appLogger)
	roomAuthMiddleware := middleware.NewRoomAuthMiddleware(services.Gatekeeper, appLogger)
	roomGateMiddleware := middleware.NewRoomGateMiddleware(services.Gatekeeper, cfg.IsProduction(), appMetrics, appLogger)

	handlers := handler.NewHandlers(services, rdb, broker, appLogger)

	router := setupRouter(handlers, rateLimitMiddleware, roomAuthMiddleware, roomGateMiddleware, appMetrics, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Info("Starting server", "addr", srv.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Fatal("Server stopped with error", "error", err)
	}
	appLogger.Info("Server exited")
}

func setupRouter(
	handlers *handler.Handlers,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	roomAuthMiddleware *middleware.RoomAuthMiddleware,
	roomGateMiddleware *middleware.RoomGateMiddleware,
	appMetrics *metrics.Metrics,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.Client())
	router.Use(appMetrics.Middleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))

	router.GET("/health", handlers.Health.Check)
	router.GET("/metrics", appMetrics.Handler())

	api := router.Group("/api")
	{
		api.GET("/stats", handlers.Stats.GetStats)

		room := api.Group("/room")
		{
			room.POST("/create", rateLimitMiddleware.Limit(), handlers.Room.Create)
			room.GET("/ttl", roomAuthMiddleware.RequireMember(), handlers.Room.GetTTL)
			room.DELETE("", rateLimitMiddleware.Limit(), roomAuthMiddleware.RequireMember(), handlers.Room.Destroy)
		}

		messages := api.Group("/messages")
		{
			messages.GET("", roomAuthMiddleware.RequireMember(), handlers.Chat.GetMessages)
			messages.POST("", rateLimitMiddleware.Limit(), roomAuthMiddleware.RequireMember(), handlers.Chat.SendMessage)
			messages.POST("/typing", roomAuthMiddleware.RequireMember(), handlers.Chat.Typing)
		}

		queue := api.Group("/random/queue")
		{
			queue.POST("/join", rateLimitMiddleware.Limit(), handlers.Matchmaking.Join)
			queue.POST("/leave", rateLimitMiddleware.Limit(), handlers.Matchmaking.Leave)
			queue.GET("/status", handlers.Matchmaking.Status)
		}
	}

	router.GET("/room/:roomId", roomGateMiddleware.Private(), handlers.Room.View)
	router.GET("/random/:roomId", roomGateMiddleware.Random(), handlers.Room.View)

	ws := router.Group("/ws")
	{
		ws.GET("/room/:roomId", roomAuthMiddleware.RequireMember(), handlers.WebSocket.HandleRoom)
		ws.GET("/random/:sessionId", handlers.WebSocket.HandleSession)
	}

	return router
}
