package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"accountmeta/config"
	httpserver "accountmeta/internal/adapters/http/server"
	loggeradapter "accountmeta/internal/adapters/logger"
	"accountmeta/internal/app"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
	}

	// Load configuration
	cfg := config.Load()

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on environment
	logger, err := loggeradapter.NewLogger(cfg.IsDevelopment(), cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Starting application",
		zap.String("environment", cfg.App.Env),
		zap.String("version", "1.0.0"),
	)

	sources, err := app.NewSources(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize metadata sources", zap.Error(err))
	}
	defer func() {
		if err := sources.Close(); err != nil {
			logger.Error("Failed to close registry store", zap.Error(err))
		}
	}()

	// Initialize HTTP handler adapter
	handlerAdapter := httpserver.NewHandlerAdapter(sources.Service(logger), logger)

	// Initialize HTTP server
	serverConfig := httpserver.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}

	server := httpserver.NewServer(serverConfig, handlerAdapter, logger)

	logger.Info("Server configured",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.Int("scopes", len(sources.Table.Scopes())),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Serve until a signal arrives, then shut down gracefully
	if err := server.Run(ctx); err != nil {
		logger.Error("Server failed", zap.Error(err))
		return
	}

	logger.Info("Application stopped gracefully")
}

// validateConfig validates the configuration
func validateConfig(cfg *config.Config) error {
	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if cfg.App.Env != "development" && cfg.App.Env != "production" {
		return fmt.Errorf("invalid app env: %s (must be 'development' or 'production')", cfg.App.Env)
	}

	if cfg.Query.StaleTime <= 0 {
		return fmt.Errorf("query stale time must be positive")
	}

	if cfg.Registry.RateLimitCalls <= 0 || cfg.Registry.RateLimitWindow <= 0 {
		return fmt.Errorf("registry rate limit must be positive")
	}

	return nil
}
