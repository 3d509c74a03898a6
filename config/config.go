package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"accountmeta/internal/domain/scope"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	Registry RegistryConfig
	Query    QueryConfig
	Database DatabaseConfig
}

type AppConfig struct {
	Env      string // "development" or "production"
	LogLevel string
	// ScopesFile optionally replaces the built-in scope table
	ScopesFile string
}

type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type RegistryConfig struct {
	OasisURLTemplate string
	PontusXURL       string
	RequestTimeout   time.Duration
	RateLimitCalls   int
	RateLimitWindow  time.Duration
	SyncConcurrency  int
}

type QueryConfig struct {
	StaleTime       time.Duration
	ErrorRetryAfter time.Duration
	FetchTimeout    time.Duration
	GCTime          time.Duration
}

type DatabaseConfig struct {
	Path string // empty disables snapshot persistence
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		App: AppConfig{
			Env:        getEnv("APP_ENV", "development"),
			LogLevel:   getEnv("LOG_LEVEL", ""),
			ScopesFile: getEnv("SCOPES_FILE", ""),
		},
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", ""),
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Registry: RegistryConfig{
			OasisURLTemplate: getEnv("OASIS_REGISTRY_URL_TEMPLATE", ""),
			PontusXURL:       getEnv("PONTUSX_ADDRESS_BOOK_URL", ""),
			RequestTimeout:   getDurationEnv("REGISTRY_REQUEST_TIMEOUT", 10*time.Second),
			RateLimitCalls:   getIntEnv("REGISTRY_RATE_LIMIT_CALLS", 30),
			RateLimitWindow:  getDurationEnv("REGISTRY_RATE_LIMIT_WINDOW", time.Minute),
			SyncConcurrency:  getIntEnv("REGISTRY_SYNC_CONCURRENCY", 4),
		},
		Query: QueryConfig{
			StaleTime:       getDurationEnv("QUERY_STALE_TIME", 5*time.Minute),
			ErrorRetryAfter: getDurationEnv("QUERY_ERROR_RETRY_AFTER", 30*time.Second),
			FetchTimeout:    getDurationEnv("QUERY_FETCH_TIMEOUT", 10*time.Second),
			GCTime:          getDurationEnv("QUERY_GC_TIME", 30*time.Minute),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "registry.db"),
		},
	}
}

// IsDevelopment reports whether the app runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Env != "production"
}

// ScopeTable builds the scope table, reading ScopesFile when set
func (c *Config) ScopeTable() (*scope.Table, error) {
	if c.App.ScopesFile == "" {
		return scope.DefaultTable(), nil
	}

	data, err := os.ReadFile(c.App.ScopesFile)
	if err != nil {
		return nil, fmt.Errorf("read scopes file: %w", err)
	}
	return ParseScopeTable(data)
}

// ParseScopeTable decodes a YAML scope table
func ParseScopeTable(data []byte) (*scope.Table, error) {
	var spec scope.TableSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("decode scopes file: %w", err)
	}
	table, err := scope.NewTable(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid scopes file: %w", err)
	}
	return table, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
