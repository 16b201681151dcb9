package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ikkim/catalog-review-backend/config"
	"github.com/ikkim/catalog-review-backend/internal/app/controller"
	"github.com/ikkim/catalog-review-backend/internal/app/model"
	"github.com/ikkim/catalog-review-backend/internal/app/repository"
	"github.com/ikkim/catalog-review-backend/internal/app/service"
	"github.com/ikkim/catalog-review-backend/internal/db"
	"github.com/ikkim/catalog-review-backend/internal/middleware"
	"github.com/ikkim/catalog-review-backend/internal/router"
	"github.com/ikkim/catalog-review-backend/internal/storage"
	"github.com/ikkim/catalog-review-backend/pkg/logger"
	"github.com/ikkim/catalog-review-backend/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const serviceName = "catalog-review"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting catalog review server", map[string]interface{}{
		"environment":        cfg.Server.Environment,
		"port":               cfg.Server.Port,
		"log_level":          logLevel,
		"default_status":     cfg.Review.DefaultStatus,
		"enforce_uniqueness": cfg.Review.EnforceUniqueness,
		"distribution_mode":  cfg.Review.DistributionMode,
	})

	// Initialize database
	gdb, err := db.Open(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(gdb, db.MigrateOptions{EnforceUniqueness: cfg.Review.EnforceUniqueness}); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Helpful vote guard (optional)
	var voteGuard service.HelpfulVoteGuard
	if cfg.Redis.Addr() != "" {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, helpful votes are not deduplicated", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer redisClient.Close()
			voteGuard = redis.NewHelpfulVoteGuard(redisClient, cfg.Review.HelpfulVoteTTL)
		}
	}

	// Initialize repositories
	reviewRepo := repository.NewReviewRepository(gdb)

	// Initialize services
	distributionMode, err := service.ParseDistributionMode(cfg.Review.DistributionMode)
	if err != nil {
		logger.Fatal("Invalid distribution mode", err)
	}
	reviewService := service.NewReviewService(reviewRepo, service.ReviewPolicy{
		DefaultStatus:     model.ReviewStatus(cfg.Review.DefaultStatus),
		EnforceUniqueness: cfg.Review.EnforceUniqueness,
	}, voteGuard)
	statsService := service.NewReviewStatsService(reviewRepo, distributionMode)
	s3Storage := storage.NewS3Storage(context.Background(), &cfg.S3)

	// Initialize controllers
	reviewController := controller.NewReviewController(reviewService, statsService)
	uploadController := controller.NewUploadController(s3Storage)
	healthController := controller.NewHealthController(func(ctx context.Context) error {
		return db.Ping(ctx, gdb)
	})

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(registry, serviceName)

	// Setup router
	r := router.NewRouter(
		reviewController,
		uploadController,
		healthController,
		authMiddleware,
		metrics,
		registry,
		cfg,
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r.Setup(),
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	logger.Info("Server stopped successfully")
}
