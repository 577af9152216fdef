package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/constants"
)

type Config struct {
	// API server
	APIAddr string
	APIKey  string
	DevMode bool

	// Redis settings
	RedisAddr string
	RedisDB   int

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// HTTP client settings (CLI and reference quote client)
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// Engine guard rails
	MaxPriceImpactBps     int
	LiquidityToleranceBps int

	// Gateway policy
	MaxSwapAmount   uint64
	DailyMintVolume uint64

	// Reference quote source (optional)
	ReferenceQuoteURL string

	// AI settings
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	AIModel           string
}

func Load() *Config {
	return &Config{
		// API
		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:   getIntEnv("REDIS_DB", 0),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "amm"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// HTTP
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 5),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 2*time.Second),

		// Engine
		MaxPriceImpactBps:     getIntEnv("MAX_PRICE_IMPACT_BPS", constants.MaxPriceImpactBps),
		LiquidityToleranceBps: getIntEnv("LIQUIDITY_TOLERANCE_BPS", constants.LiquidityToleranceBps),

		// Policy
		MaxSwapAmount:   getUint64Env("MAX_SWAP_AMOUNT", constants.DefaultMaxSwapAmount),
		DailyMintVolume: getUint64Env("DAILY_MINT_VOLUME", constants.DefaultDailyMintVolume),

		// Reference quotes
		ReferenceQuoteURL: getEnv("REFERENCE_QUOTE_URL", ""),

		// AI
		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		AIModel:           getEnv("AI_MODEL", "openai/gpt-4o-mini"),
	}
}

func (c *Config) Validate() error {
	if c.APIAddr == "" {
		return fmt.Errorf("API_ADDR must not be empty")
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR must not be empty")
	}
	if c.MaxPriceImpactBps < 0 || c.MaxPriceImpactBps > 10000 {
		return fmt.Errorf("MAX_PRICE_IMPACT_BPS must be in [0, 10000]")
	}
	if c.LiquidityToleranceBps < 0 || c.LiquidityToleranceBps > 10000 {
		return fmt.Errorf("LIQUIDITY_TOLERANCE_BPS must be in [0, 10000]")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getUint64Env(key string, defaultVal uint64) uint64 {
	if val := os.Getenv(key); val != "" {
		if u, err := strconv.ParseUint(val, 10, 64); err == nil {
			return u
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
