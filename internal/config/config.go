package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds every setting the server, worker and CLI tools read from the environment.
type Config struct {
	Port   string
	AppEnv string
	AppURL string

	DatabaseURL string
	RedisURL    string

	FirebaseCredentialsPath string
	FirebaseStorageBucket   string

	JWTSecret   string
	APITokenTTL time.Duration

	SepayWebhookAPIKey     string
	WebhookAmountTolerance decimal.Decimal
	WebhookReplayTTL       time.Duration
	CatalogCacheTTL        time.Duration

	SMTPHost  string
	SMTPPort  string
	SMTPUser  string
	SMTPPass  string
	EmailFrom string

	DefaultCurrency string
	WorkerInterval  time.Duration
}

// IsProduction reports whether APP_ENV is "production".
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load reads .env (when present) and the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() Config {
	return Config{
		Port:   getEnvOrDefault("PORT", "8080"),
		AppEnv: getEnvOrDefault("APP_ENV", "development"),
		AppURL: getEnvOrDefault("APP_URL", "http://localhost:8080"),

		DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
		RedisURL:    getEnvOrDefault("REDIS_URL", ""),

		FirebaseCredentialsPath: getEnvOrDefault("FIREBASE_CREDENTIALS_PATH", "./firebase-service-account.json"),
		FirebaseStorageBucket:   getEnvOrDefault("FIREBASE_STORAGE_BUCKET", ""),

		JWTSecret:   getEnvOrDefault("JWT_SECRET", ""),
		APITokenTTL: getDurationEnv("API_TOKEN_TTL", 24, time.Hour),

		SepayWebhookAPIKey:     getEnvOrDefault("SEPAY_WEBHOOK_API_KEY", ""),
		WebhookAmountTolerance: getDecimalEnv("WEBHOOK_AMOUNT_TOLERANCE", decimal.NewFromInt(1000)),
		WebhookReplayTTL:       getDurationEnv("WEBHOOK_REPLAY_TTL", 24, time.Hour),
		CatalogCacheTTL:        getDurationEnv("CATALOG_CACHE_TTL", 5, time.Minute),

		SMTPHost:  getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort:  getEnvOrDefault("SMTP_PORT", ""),
		SMTPUser:  getEnvOrDefault("SMTP_USER", ""),
		SMTPPass:  getEnvOrDefault("SMTP_PASS", ""),
		EmailFrom: getEnvOrDefault("EMAIL_FROM", ""),

		DefaultCurrency: getEnvOrDefault("DEFAULT_CURRENCY", "VND"),
		WorkerInterval:  getDurationEnv("WORKER_INTERVAL", 5, time.Minute),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getDecimalEnv(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := decimal.NewFromString(value); err == nil && !parsed.IsNegative() {
			return parsed
		}
	}
	return defaultValue
}
