package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"trustlens/internal/app"
	"trustlens/internal/config"
	"trustlens/internal/logger"
	"trustlens/internal/tasks"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.RedisURL == "" {
		logger.Log.Fatalw("REDIS_URL is required for the worker")
	}

	a, err := app.New(cfg)
	if err != nil {
		logger.Log.Fatalw("Failed to initialize application", "error", err)
	}
	defer a.Close()
	logger.Log.Infow("Worker connected to database.")

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Log.Fatalw("Failed to parse Redis URL", "error", err)
	}

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})

	// every 5 minutes
	probeTask := tasks.NewProbePredictorTask()
	entryID, err := scheduler.Register("*/5 * * * *", probeTask, asynq.Queue("low"))
	if err != nil {
		logger.Log.Fatalw("Failed to register periodic task", "error", err)
	}
	logger.Log.Infow("Registered periodic task", "type", probeTask.Type(), "entry_id", entryID)

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Queues: map[string]int{
				"default": 3,
				"low":     1,
			},
			Concurrency: cfg.WorkerConcurrency,
			Logger:      logger.Log,
		},
	)

	taskProcessor := tasks.NewTaskProcessor(a.Service)

	mux := asynq.NewServeMux()
	mux.HandleFunc(
		tasks.TypeTaskBatchAnalyze,
		taskProcessor.HandleBatchAnalyzeTask,
	)
	mux.HandleFunc(
		tasks.TypeTaskProbePredictor,
		taskProcessor.HandleProbePredictorTask,
	)

	go func() {
		logger.Log.Infow("Starting Asynq scheduler...")
		if err := scheduler.Run(); err != nil {
			logger.Log.Fatalw("Could not run Asynq scheduler", "error", err)
		}
	}()

	go func() {
		logger.Log.Infow("Starting Asynq worker server...")
		if err := srv.Run(mux); err != nil {
			logger.Log.Fatalw("Could not run Asynq worker server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	logger.Log.Infow("Shutdown signal received, shutting down gracefully...")

	scheduler.Shutdown()
	logger.Log.Infow("Asynq scheduler shut down.")

	srv.Shutdown()
	logger.Log.Infow("Asynq worker server shut down.")

	logger.Log.Infow("Worker process shut down complete.")
}
