// Package app builds the service graph shared by the API and worker binaries.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"trustlens/internal/analysis"
	"trustlens/internal/config"
	"trustlens/internal/db"
	"trustlens/internal/logger"
	"trustlens/internal/metrics"
	"trustlens/internal/pkg/predictor"
)

type App struct {
	Config    *config.Config
	DB        *gorm.DB
	Metrics   *metrics.Metrics
	Predictor *predictor.Client
	Service   *analysis.Service
}

// New connects to the store, ensures the schema and wires the predictor
// and analysis service.
func New(cfg *config.Config) (*App, error) {
	conn, err := db.InitDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.EnsureSchema(conn); err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	client := predictor.New(cfg.PythonPath, cfg.PredictorScript,
		predictor.WithTimeout(cfg.PredictorTimeout),
		predictor.WithObserver(m),
	)

	service := analysis.NewService(conn, client,
		analysis.WithConcurrency(cfg.BatchConcurrency),
		analysis.WithMetrics(m),
	)

	logger.Log.Infow("predictor configured",
		"interpreter", client.Interpreter(),
		"script", client.Script(),
		"timeout", cfg.PredictorTimeout.String(),
		"batch_concurrency", cfg.BatchConcurrency,
	)

	return &App{
		Config:    cfg,
		DB:        conn,
		Metrics:   m,
		Predictor: client,
		Service:   service,
	}, nil
}

// Close releases the database pool.
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
