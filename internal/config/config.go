package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"killstats/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	APIBaseURL     string
	APIPrefix      string
	CacheDBPath    string
	ServerPort     string
	LogLevel       string
	AllowedOrigins []string
	CacheTTL       time.Duration
	ClosedMonthTTL time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cacheTTL, err := getDuration("CACHE_TTL", constants.CacheTTL)
	if err != nil {
		return nil, err
	}
	closedTTL, err := getDuration("CLOSED_MONTH_TTL", constants.ClosedMonthTTL)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		APIBaseURL:     strings.TrimRight(getEnv("KILLSTATS_API_URL", ""), "/"),
		APIPrefix:      "/" + strings.Trim(getEnv("KILLSTATS_API_PREFIX", constants.DefaultAPIPrefix), "/"),
		CacheDBPath:    getEnv("CACHE_DB_PATH", "killstats-cache.db"),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		CacheTTL:       cacheTTL,
		ClosedMonthTTL: closedTTL,
	}

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("KILLSTATS_API_URL is required")
	}

	logger.Info().
		Str("api_base_url", cfg.APIBaseURL).
		Str("api_prefix", cfg.APIPrefix).
		Str("cache_db_path", cfg.CacheDBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Dur("cache_ttl", cfg.CacheTTL).
		Dur("closed_month_ttl", cfg.ClosedMonthTTL).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

var Module = fx.Provide(Load)
