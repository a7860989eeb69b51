package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Ackberry/cinetune/internal/cache"
	"github.com/Ackberry/cinetune/internal/catalog"
	"github.com/Ackberry/cinetune/internal/config"
	"github.com/Ackberry/cinetune/internal/domain"
	"github.com/Ackberry/cinetune/internal/handler"
	"github.com/Ackberry/cinetune/internal/middleware"
	"github.com/Ackberry/cinetune/internal/repository"
	"github.com/Ackberry/cinetune/internal/service"
	"github.com/Ackberry/cinetune/pkg/database"
	"github.com/Ackberry/cinetune/pkg/feed"
	"github.com/Ackberry/cinetune/pkg/jwt"
	pkglog "github.com/Ackberry/cinetune/pkg/log"
)

func main() {
	// Load .env for local development; ignore if absent
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Level == "debug",
		ServiceName: "cinetune",
	})
	logger := pkglog.L()

	// Connect to database using GORM
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Auto-migrate
	if err := database.AutoMigrate(db, domain.AllModels()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	// Shared Redis client for cache and change feed
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	pingCancel()
	defer redisClient.Close()
	logger.Info().Str("address", cfg.Redis.Address).Msg("redis connected")

	// Change feed: redis pub/sub by default, kafka when configured
	var changeFeed feed.Feed
	if cfg.Feed.Driver == "redis" {
		changeFeed = feed.NewRedisFeedFromClient(redisClient)
	} else {
		changeFeed, err = feed.New(cfg.Feed)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize change feed")
		}
	}
	defer changeFeed.Close()
	logger.Info().Str("driver", cfg.Feed.Driver).Msg("change feed ready")

	// Repositories
	profileRepo := repository.NewGormProfileRepository(db)
	convRepo := repository.NewGormConversationRepository(db)
	msgRepo := repository.NewGormMessageRepository(db, changeFeed)
	libraryRepo := repository.NewGormLibraryRepository(db)

	// Catalog clients and cache
	catalogCache := cache.NewRedisCatalogCache(redisClient, cfg.Cache.Prefix)
	tmdbClient := catalog.NewTMDBClient(cfg.Catalog.TMDBBaseURL, cfg.Catalog.TMDBAccessToken)
	spotifyClient := catalog.NewSpotifyClient(
		cfg.Catalog.SpotifyTokenURL,
		cfg.Catalog.SpotifyAPIURL,
		cfg.Catalog.SpotifyClientID,
		cfg.Catalog.SpotifyClientSecret,
	)

	// JWT manager
	jwtManager := jwt.NewManager(cfg.Auth.Secret, cfg.Auth.AccessDuration, cfg.Auth.RefreshDuration, cfg.Auth.Issuer)

	// Services
	profileService := service.NewProfileService(profileRepo, jwtManager)
	convService := service.NewConversationService(convRepo, msgRepo, profileRepo)
	libraryService := service.NewLibraryService(libraryRepo)
	catalogService := service.NewCatalogService(tmdbClient, spotifyClient, catalogCache, cfg.Cache.TTL)

	// Auth middleware and handler
	authMiddleware := middleware.NewAuthMiddleware(jwtManager)
	httpHandler := handler.NewHandler(
		profileService,
		convService,
		libraryService,
		catalogService,
		convRepo,
		msgRepo,
		changeFeed,
		authMiddleware,
		cfg.WebSocket,
		cfg.Chat.HistoryLimit,
	)

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	httpHandler.RegisterRoutes(r)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Str("driver", cfg.Database.Driver).Msg("cinetune starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("stopped")
}
