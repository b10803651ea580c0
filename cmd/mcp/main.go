package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"trustlens/internal/logger"
	"trustlens/internal/mcp"
)

func main() {
	_ = godotenv.Load()

	// Stdout carries the protocol; logs must go to stderr.
	if err := logger.Init(logger.Options{Level: getEnv("LOG_LEVEL", "info"), Stderr: true}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	baseURL := getEnv("TRUSTLENS_BASE_URL", "http://localhost:3000")
	server := mcp.NewServer(baseURL, os.Stdin, os.Stdout, mcp.WithLogger(logger.Log))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infow("MCP server starting", "upstream", baseURL)
	if err := server.Serve(ctx); err != nil {
		logger.Log.Fatalw("mcp server failed", "error", err)
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
