package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	ginprometheus "github.com/zsais/go-gin-prometheus"

	"comic-server/internal/config"
	"comic-server/internal/database"
	"comic-server/internal/events"
	"comic-server/internal/handler"
	"comic-server/internal/imagegen"
	"comic-server/internal/middleware"
	"comic-server/internal/repository"
	"comic-server/internal/service"
	"comic-server/internal/textgen"
	"comic-server/pkg/logger"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)
	log.Info("Configuration loaded",
		zap.String("env", cfg.AppEnv),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("text_provider", cfg.Text.Provider),
		zap.Bool("image_enabled", cfg.Image.Enabled),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// --- Store ---
	repo, closeStore, err := setupStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to set up store", zap.Error(err))
	}
	defer closeStore()

	// --- Upstream clients ---
	textClient, err := textgen.NewClient(ctx, cfg.Text, log)
	if err != nil {
		log.Fatal("Failed to create text generation client", zap.Error(err))
	}
	defer func() { _ = textClient.Close() }()
	imageGen := imagegen.NewImageGenerator(cfg.Image, log)

	// --- Events ---
	publisher, closeEvents := setupEvents(cfg.RabbitMQ, log)
	defer closeEvents()

	// --- Dependency Injection ---
	storyService := service.NewStoryService(repo, textClient, imageGen, publisher, cfg.Story.TerminalPage, log)
	storyHandler := handler.NewStoryHandler(storyService, log)

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.AppEnv == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.GinZapLogger(log))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORS.AllowedOrigins) == 0 || (len(cfg.CORS.AllowedOrigins) == 1 && cfg.CORS.AllowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "x-api-key", "anthropic-version"}
	router.Use(cors.New(corsConfig))

	p := ginprometheus.NewPrometheus("gin")

	storyHandler.RegisterRoutes(router)

	// Prometheus middleware после регистрации роутов, /metrics добавляется им же
	p.Use(router)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Генерация страницы включает опрос изображения до ~60s
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exiting")
}

// setupStore открывает выбранное хранилище, накатывает миграции и возвращает репозиторий.
func setupStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.StoryRepository, func(), error) {
	switch cfg.Database.Driver {
	case config.DBDriverPostgres:
		pool, err := database.OpenPostgres(ctx, cfg.Database, log)
		if err != nil {
			return nil, nil, err
		}
		if err := database.MigratePostgres(pool, log); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewPgStoryRepository(pool, log), pool.Close, nil
	default:
		db, err := database.OpenSQLite(cfg.Database.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		if err := database.MigrateSQLite(db, log); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		closeFn := func() {
			if err := db.Close(); err != nil {
				log.Error("Failed to close SQLite database", zap.Error(err))
			}
		}
		return repository.NewSQLiteStoryRepository(db, log), closeFn, nil
	}
}

// setupEvents подключается к RabbitMQ. Без RABBITMQ_URL или при недоступном брокере события не публикуются.
func setupEvents(cfg config.RabbitMQConfig, log *zap.Logger) (events.Publisher, func()) {
	if cfg.URL == "" {
		log.Info("RABBITMQ_URL not set, story events are disabled")
		return events.NoopPublisher{}, func() {}
	}

	conn, err := events.Connect(cfg.URL, 5, 2*time.Second, log)
	if err != nil {
		log.Error("Failed to connect to RabbitMQ, story events are disabled", zap.Error(err))
		return events.NoopPublisher{}, func() {}
	}
	publisher, err := events.NewRabbitMQPublisher(conn, cfg.Queue, log)
	if err != nil {
		log.Error("Failed to create events publisher, story events are disabled", zap.Error(err))
		_ = conn.Close()
		return events.NoopPublisher{}, func() {}
	}
	log.Info("Connected to RabbitMQ", zap.String("queue", cfg.Queue))

	return publisher, func() {
		if err := publisher.Close(); err != nil {
			log.Error("Failed to close events publisher", zap.Error(err))
		}
		if err := conn.Close(); err != nil {
			log.Error("Failed to close RabbitMQ connection", zap.Error(err))
		}
	}
}
