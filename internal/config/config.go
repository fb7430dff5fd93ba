// Package config は環境変数ベースのアプリケーション設定を提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// PaissaDB
	WorldID        int
	PaissaBaseURL  string
	FetchTimeout   time.Duration
	FetchMaxSize   int64
	FetchRatePerMin int

	// Snapshot cache
	CacheTTL time.Duration

	// Phase scheduler
	RetryInterval time.Duration
	SettleDelay   time.Duration

	// Sweeper
	SweepInterval time.Duration

	// Chat gateway (worker mode)
	ChatGatewayURL   string
	ChatGatewayToken string

	// Pagination
	PageSize        int
	SessionLifetime time.Duration

	// Rate Limit
	RateLimitGeneral int

	// Server
	ServerPort string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	worldID := os.Getenv("WORLD_ID")
	if worldID == "" {
		missing = append(missing, "WORLD_ID")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	id, err := strconv.Atoi(worldID)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("WORLD_ID must be a positive integer, got %q", worldID)
	}
	cfg.WorldID = id

	// Optional fields with defaults
	cfg.PaissaBaseURL = getEnvString("PAISSA_BASE_URL", "https://paissadb.zhu.codes")
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.FetchRatePerMin = getEnvInt("FETCH_RATE_PER_MIN", 30)
	cfg.CacheTTL = getEnvDuration("CACHE_TTL", 5*time.Minute)
	cfg.RetryInterval = getEnvDuration("SCHEDULER_RETRY_INTERVAL", time.Hour)
	cfg.SettleDelay = getEnvDuration("SCHEDULER_SETTLE_DELAY", 5*time.Minute)
	cfg.SweepInterval = getEnvDuration("SWEEP_INTERVAL", 24*time.Hour)
	cfg.ChatGatewayURL = getEnvString("CHAT_GATEWAY_URL", "http://localhost:9090")
	cfg.ChatGatewayToken = getEnvString("CHAT_GATEWAY_TOKEN", "")
	cfg.PageSize = getEnvInt("PAGE_SIZE", 9)
	cfg.SessionLifetime = getEnvDuration("SESSION_LIFETIME", 5*time.Minute)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
