package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Disabled turns off an optional listener when used as its address.
const Disabled = "off"

type Config struct {
	Store       string     // VARHUB_STORE (default "sqlite"; "postgres", "memory")
	DatabaseURL string     // VARHUB_DATABASE_URL (required for postgres)
	SQLitePath  string     // VARHUB_SQLITE_PATH (default "variables.db")
	HTTPAddr    string     // VARHUB_HTTP_ADDR (default ":8080")
	GRPCAddr    string     // VARHUB_GRPC_ADDR (default ":9090"; "off" = disabled)
	NATSURL     string     // VARHUB_NATS_URL (optional, empty = no bus events)
	AuthToken   string     // VARHUB_AUTH_TOKEN (optional, empty = auth disabled)
	LogLevel    slog.Level // VARHUB_LOG_LEVEL (default "info")
	LogFile     string     // VARHUB_LOG_FILE (optional; also log to this file, rolled daily)

	BroadcastQueue int // VARHUB_BROADCAST_QUEUE (default 256)

	// Sync settings
	SyncInterval   time.Duration // VARHUB_SYNC_INTERVAL (default 0 = disabled)
	SyncS3Bucket   string        // VARHUB_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        // VARHUB_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        // VARHUB_SYNC_S3_REGION (default "us-east-1")
	SyncS3Key      string        // VARHUB_SYNC_S3_KEY (default "varhub/variables.jsonl")
	SyncGitRepo    string        // VARHUB_SYNC_GIT_REPO (enables git when set; path to clone)
	SyncGitFile    string        // VARHUB_SYNC_GIT_FILE (default "variables.jsonl")
	SyncGitBranch  string        // VARHUB_SYNC_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		Store:          strings.ToLower(envOrDefault("VARHUB_STORE", StoreSQLite)),
		DatabaseURL:    os.Getenv("VARHUB_DATABASE_URL"),
		SQLitePath:     envOrDefault("VARHUB_SQLITE_PATH", "variables.db"),
		HTTPAddr:       envOrDefault("VARHUB_HTTP_ADDR", ":8080"),
		GRPCAddr:       envOrDefault("VARHUB_GRPC_ADDR", ":9090"),
		NATSURL:        os.Getenv("VARHUB_NATS_URL"),
		AuthToken:      os.Getenv("VARHUB_AUTH_TOKEN"),
		LogFile:        os.Getenv("VARHUB_LOG_FILE"),
		SyncS3Bucket:   os.Getenv("VARHUB_SYNC_S3_BUCKET"),
		SyncS3Endpoint: os.Getenv("VARHUB_SYNC_S3_ENDPOINT"),
		SyncS3Region:   envOrDefault("VARHUB_SYNC_S3_REGION", "us-east-1"),
		SyncS3Key:      envOrDefault("VARHUB_SYNC_S3_KEY", "varhub/variables.jsonl"),
		SyncGitRepo:    os.Getenv("VARHUB_SYNC_GIT_REPO"),
		SyncGitFile:    envOrDefault("VARHUB_SYNC_GIT_FILE", "variables.jsonl"),
		SyncGitBranch:  envOrDefault("VARHUB_SYNC_GIT_BRANCH", "main"),
	}

	switch c.Store {
	case StoreSQLite, StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return nil, fmt.Errorf("VARHUB_DATABASE_URL is required when VARHUB_STORE=postgres")
		}
	default:
		return nil, fmt.Errorf("VARHUB_STORE: unknown store %q (want sqlite, postgres or memory)", c.Store)
	}

	level, err := ParseLogLevel(envOrDefault("VARHUB_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("VARHUB_LOG_LEVEL: %w", err)
	}
	c.LogLevel = level

	queue, err := strconv.Atoi(envOrDefault("VARHUB_BROADCAST_QUEUE", "256"))
	if err != nil || queue <= 0 {
		return nil, fmt.Errorf("VARHUB_BROADCAST_QUEUE: must be a positive integer")
	}
	c.BroadcastQueue = queue

	if intervalStr := os.Getenv("VARHUB_SYNC_INTERVAL"); intervalStr != "" {
		d, err := time.ParseDuration(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("VARHUB_SYNC_INTERVAL: %w", err)
		}
		c.SyncInterval = d
	}

	return c, nil
}

// GRPCEnabled reports whether the gRPC listener should be started.
func (c *Config) GRPCEnabled() bool {
	return c.GRPCAddr != "" && c.GRPCAddr != Disabled
}

// ParseLogLevel accepts debug, info, warn or error (case-insensitive).
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
