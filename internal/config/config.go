package config

import (
	"os"
	"strconv"
	"strings"
)

// Config centralizes runtime settings for the console API.
type Config struct {
	Port string

	AuthToken   string
	CORSOrigins []string

	RateLimitRPS   float64
	RateLimitBurst int

	BackendBaseURL    string
	BackendTimeoutMS  int
	BackendMaxRetries int
	BackendRPS        float64
	BackendBurst      int

	DatabaseURL string

	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RedisNotifyStream string

	NotifyHistory int

	ReportCacheTTLSeconds int
	ReportCacheMaxEntries int
	ReportAwaitAttempts   int
	ReportAwaitIntervalMS int

	InitialSync bool
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		AuthToken:   getEnv("API_AUTH_TOKEN", ""),
		CORSOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),

		BackendBaseURL:    getEnv("BACKEND_BASE_URL", "http://127.0.0.1:8000"),
		BackendTimeoutMS:  getEnvInt("BACKEND_TIMEOUT_MS", 120000),
		BackendMaxRetries: getEnvInt("BACKEND_MAX_RETRIES", 2),
		BackendRPS:        getEnvFloat("BACKEND_RPS", 10),
		BackendBurst:      getEnvInt("BACKEND_BURST", 20),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		RedisNotifyStream: getEnv("REDIS_NOTIFY_STREAM", "console_notifications"),

		NotifyHistory: getEnvInt("NOTIFY_HISTORY", 200),

		ReportCacheTTLSeconds: getEnvInt("REPORT_CACHE_TTL_SECONDS", 3600),
		ReportCacheMaxEntries: getEnvInt("REPORT_CACHE_MAX_ENTRIES", 256),
		ReportAwaitAttempts:   getEnvInt("REPORT_AWAIT_ATTEMPTS", 5),
		ReportAwaitIntervalMS: getEnvInt("REPORT_AWAIT_INTERVAL_MS", 1000),

		InitialSync: getEnvBool("INITIAL_SYNC", true),
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), fallback...)
	}
	items := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return append([]string(nil), fallback...)
	}
	return items
}
