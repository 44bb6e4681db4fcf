package infra

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	RedisAddr     string
	RedisPassword string

	SessionTTL     time.Duration
	MaxScreenshots int
	MaxUploadBytes int64
	JobTTL         time.Duration

	RateLimitMax    int
	RateLimitWindow time.Duration

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	PaymentBaseURL   string
	PaymentSecretKey string
	PaymentBypass    bool
	AcceptedAmounts  []int64
	PaymentCurrency  string

	GeoIPDBPath string

	CORSAllowedOrigins []string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		SessionTTL:     time.Second * time.Duration(getEnvInt("SESSION_TTL_SECONDS", 900)),
		MaxScreenshots: getEnvInt("MAX_SCREENSHOTS", 5),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 4<<20)),
		JobTTL:         time.Second * time.Duration(getEnvInt("JOB_TTL_SECONDS", 3600)),

		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 10),
		RateLimitWindow: time.Second * time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 3600)),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		PaymentBaseURL:   getEnv("PAYMENT_BASE_URL", "https://api.payments.example.com"),
		PaymentSecretKey: os.Getenv("PAYMENT_SECRET_KEY"),
		PaymentBypass:    getEnvBool("PAYMENT_BYPASS", false),
		AcceptedAmounts:  getEnvAmounts("PAYMENT_ACCEPTED_AMOUNTS", []int64{999, 1999}),
		PaymentCurrency:  getEnv("PAYMENT_CURRENCY", "usd"),

		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),

		CORSAllowedOrigins: splitNonEmpty(getEnv("CORS_ALLOWED_ORIGINS", "")),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAmounts(key string, fallback []int64) []int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	var amounts []int64
	for _, part := range splitNonEmpty(v) {
		if n, err := strconv.ParseInt(part, 10, 64); err == nil {
			amounts = append(amounts, n)
		}
	}
	if len(amounts) == 0 {
		return fallback
	}
	return amounts
}

func splitNonEmpty(v string) []string {
	var parts []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
