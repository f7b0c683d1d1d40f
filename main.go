// File: /main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm/logger"
	"spotrunner-api/cache"
	"spotrunner-api/config"
	"spotrunner-api/database"
	"spotrunner-api/jobs"
	"spotrunner-api/middleware"
	"spotrunner-api/routes"
	"spotrunner-api/services"
	"spotrunner-api/utils"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// Load configuration
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	logLevel := logger.Warn
	if cfg.GinMode == gin.DebugMode {
		logLevel = logger.Info
	}

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseDriver, cfg.DatabaseURL, logLevel)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	// Seed database with demo accounts in development
	if cfg.GinMode == gin.DebugMode {
		if err := database.SeedData(db); err != nil {
			slog.Warn("failed to seed database", "error", err)
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			slog.Warn("redis unavailable, event cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			slog.Info("connected to redis")
		}
	}

	if err := utils.RegisterValidators(); err != nil {
		slog.Error("failed to register validators", "error", err)
		os.Exit(1)
	}

	statusJob := jobs.NewStatusRefreshJob(db, cfg.StatusRefreshInterval, cfg.Timezone)
	statusJob.Start()
	defer statusJob.Stop()

	limiter := middleware.NewRateLimiter(cfg.AuthRateLimit, 10)
	limiter.Start(10 * time.Minute)
	defer limiter.Stop()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.ErrorHandler())
	router.Use(routes.SetupCORS())

	routes.SetupRoutes(router, cfg, routes.Dependencies{
		DB:       db,
		Redis:    redisClient,
		Notifier: services.NewEmailService(cfg),
		Limiter:  limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("starting SpotRunner API server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
}
