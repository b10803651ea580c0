package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort              = "3000"
	defaultPythonPath        = "python"
	defaultBatchConcurrency  = 4
	defaultWorkerConcurrency = 10
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL string
	RedisURL    string
	Port        string
	GinMode     string

	PythonPath       string
	PredictorScript  string
	ArtifactsDir     string
	PredictorTimeout time.Duration

	BatchConcurrency  int
	WorkerConcurrency int

	LogLevel string
	LogFile  string
}

// LoadConfig reads configuration from environment variables (.env file)
func LoadConfig() (*Config, error) {
	// Don't fail if .env is not present; production sets variables directly.
	_ = godotenv.Load()

	predictorTimeout, err := time.ParseDuration(getEnv("PREDICTOR_TIMEOUT", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PREDICTOR_TIMEOUT: %w", err)
	}

	batchConcurrency, err := getEnvInt("BATCH_CONCURRENCY", defaultBatchConcurrency)
	if err != nil {
		return nil, err
	}
	if batchConcurrency < 1 {
		batchConcurrency = 1
	}

	workerConcurrency, err := getEnvInt("WORKER_CONCURRENCY", defaultWorkerConcurrency)
	if err != nil {
		return nil, err
	}

	script := getEnv("PREDICTOR_SCRIPT", defaultPredictorScript())
	if abs, err := filepath.Abs(script); err == nil {
		script = abs
	}

	return &Config{
		DatabaseURL:       getEnv("DATABASE_URL", databaseURLFromParts()),
		RedisURL:          getEnv("REDIS_URL", ""),
		Port:              getEnv("PORT", defaultPort),
		GinMode:           getEnv("GIN_MODE", ""),
		PythonPath:        getEnv("PYTHON_PATH", defaultPythonPath),
		PredictorScript:   script,
		ArtifactsDir:      getEnv("ARTIFACTS_DIR", filepath.Dir(script)),
		PredictorTimeout:  predictorTimeout,
		BatchConcurrency:  batchConcurrency,
		WorkerConcurrency: workerConcurrency,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFile:           getEnv("LOG_FILE", ""),
	}, nil
}

// The inference service lives next to the backend checkout.
func defaultPredictorScript() string {
	return filepath.Join("..", "deep learning", "inference_service.py")
}

// databaseURLFromParts builds a postgres URL from the discrete DB_* variables
// used by older deployments. It returns "" when DB_HOST is unset.
func databaseURLFromParts() string {
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   host + ":" + getEnv("DB_PORT", "5432"),
		Path:   "/" + os.Getenv("DB_NAME"),
	}
	if user := os.Getenv("DB_USER"); user != "" {
		u.User = url.UserPassword(user, os.Getenv("DB_PASSWORD"))
	}
	q := url.Values{}
	q.Set("sslmode", getEnv("DB_SSLMODE", "disable"))
	u.RawQuery = q.Encode()

	return u.String()
}

// Helper function to get env var or return default
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
