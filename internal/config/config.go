package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the full environment-driven configuration surface, read once at
// startup and passed by reference into the components that need it.
type Config struct {
	Port string

	// Partner provider.
	PartnerBaseURL    string
	PartnerAPIKey     string
	PartnerTimeout    time.Duration
	PartnerMaxRetries int

	// Per-class cache TTLs.
	SearchCacheTTL       time.Duration
	DetailCacheTTL       time.Duration
	AvailabilityCacheTTL time.Duration

	// Pagination.
	DefaultPageSize int
	MaxPageSize     int

	// Pricing.
	BaseMarkupPercent float64

	// Optional external backends. Empty means in-process fallbacks.
	RedisAddr   string
	DatabaseURL string

	// Per-IP rate limit on /search.
	RateLimitPerMinute int
}

// Load reads configuration from the environment, applying defaults for
// everything that is not set.
func Load() *Config {
	return &Config{
		Port:                 getEnv("PORT", "8080"),
		PartnerBaseURL:       getEnv("PARTNER_BASE_URL", "http://localhost:9090"),
		PartnerAPIKey:        getEnv("PARTNER_API_KEY", ""),
		PartnerTimeout:       getEnvMs("PARTNER_TIMEOUT_MS", 3000),
		PartnerMaxRetries:    getEnvInt("PARTNER_MAX_RETRIES", 3),
		SearchCacheTTL:       getEnvMs("SEARCH_CACHE_TTL_MS", 5*60*1000),
		DetailCacheTTL:       getEnvMs("DETAIL_CACHE_TTL_MS", 10*60*1000),
		AvailabilityCacheTTL: getEnvMs("AVAILABILITY_CACHE_TTL_MS", 2*60*1000),
		DefaultPageSize:      getEnvInt("DEFAULT_PAGE_SIZE", 20),
		MaxPageSize:          getEnvInt("MAX_PAGE_SIZE", 50),
		BaseMarkupPercent:    getEnvFloat("BASE_MARKUP_PERCENT", 12.0),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvMs(key string, defMs int) time.Duration {
	return time.Duration(getEnvInt(key, defMs)) * time.Millisecond
}
