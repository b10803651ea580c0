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

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"trustlens/internal/app"
	"trustlens/internal/config"
	"trustlens/internal/logger"
	"trustlens/internal/routes"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	a, err := app.New(cfg)
	if err != nil {
		logger.Log.Fatalw("Failed to initialize application", "error", err)
	}
	defer a.Close()

	deps := routes.Dependencies{
		DB:      a.DB,
		Config:  cfg,
		Service: a.Service,
		Metrics: a.Metrics,
	}

	if cfg.RedisURL != "" {
		redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			logger.Log.Fatalw("Failed to parse Redis URL", "error", err)
		}
		asynqClient := asynq.NewClient(redisOpt)
		defer asynqClient.Close()
		deps.Queue = asynqClient
	} else {
		logger.Log.Infow("REDIS_URL not set; background batch jobs disabled")
	}

	router := routes.SetupRouter(deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Infow("Starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalw("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Infow("Shutdown signal received, shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Errorw("Server shutdown failed", "error", err)
		return
	}
	logger.Log.Infow("Server shut down.")
}
