package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/connect4-engine/internal/config"
	"github.com/iamasit07/connect4-engine/internal/repository/memory"
	"github.com/iamasit07/connect4-engine/internal/repository/postgres"
	"github.com/iamasit07/connect4-engine/internal/repository/redis"
	"github.com/iamasit07/connect4-engine/internal/repository/sqlite"
	"github.com/iamasit07/connect4-engine/internal/service/cleanup"
	"github.com/iamasit07/connect4-engine/internal/service/game"
	transportHttp "github.com/iamasit07/connect4-engine/internal/transport/http"
	"github.com/iamasit07/connect4-engine/internal/transport/http/middleware"
	"github.com/iamasit07/connect4-engine/internal/transport/websocket"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 1. Storage
	gameRepo, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer closeStore()

	// 2. Services
	gameService := game.NewService(gameRepo, cfg.GameNamespace)
	gameService.CacheTTL = cfg.CacheTTL
	if err := gameService.ResumeRegistry(ctx); err != nil {
		log.Fatalf("Failed to read last game id: %v", err)
	}
	log.Printf("[GAME] Next game id is %d", gameService.Registry.Peek())

	redisClient, err := redis.Connect(ctx, cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		gameService.Cache = redis.NewRedisCache(redisClient)
	}

	connManager := websocket.NewConnectionManager()
	gameService.Conn = connManager

	// 3. Background Workers
	cleanup.NewWorker(gameService, cfg.Retention(), cfg.CleanupInterval).Start(ctx)

	// 4. Handlers
	gameHandler := transportHttp.NewGameHandler(gameService)
	wsHandler := websocket.NewHandler(connManager, gameService, cfg.JWTSecret, cfg.AllowedOrigins)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	router.GET("/healthz", transportHttp.Health)
	gameHandler.RegisterRoutes(router, cfg.JWTSecret)

	// WebSocket Route (auth handled inside the WS handler itself)
	router.GET("/ws", func(c *gin.Context) {
		wsHandler.HandleWebSocket(c.Writer, c.Request)
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Server is shutting down...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	connManager.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		return
	}

	log.Println("Server exited gracefully")
}

// openStore returns the game repository selected by STORE_DRIVER and a func
// that releases it.
func openStore(ctx context.Context, cfg *config.Config) (game.GameRepository, func(), error) {
	switch cfg.StoreDriver {
	case "sqlite":
		repo, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[DB] Using SQLite at %s", cfg.SQLitePath)
		return repo, func() { repo.Close() }, nil

	case "memory":
		log.Println("[DB] Using in-memory store; games are lost on restart")
		return memory.NewGameRepo(), func() {}, nil

	default:
		db, err := postgres.Open(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.ConnMaxLifetime())
		if err != nil {
			return nil, nil, err
		}

		log.Println("Running database migrations...")
		if err := postgres.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Println("Database migration completed successfully")
		return postgres.NewGameRepo(db), func() { db.Close() }, nil
	}
}
