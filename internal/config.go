package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	LogLevel    string
	Host        string // Bind address, loopback by default
	Port        uint16
	CORSOrigins []string
	DatabaseUrl string // Optional. Enables the postgres ledger and store.
	Backend     BackendConfig
	Order       OrderConfig
	Store       StoreConfig
	Sentry      SentryConfig
	Metrics     MetricsConfig
	Events      EventsConfig
}

// BackendConfig points at the catalogue and order service.
type BackendConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// OrderConfig holds the fixed values sent with every order.
type OrderConfig struct {
	Notes          string
	Language       string
	FallbackPrefix string
}

type StoreConfig struct {
	Provider      string // "local", "memory", "redis", "postgres" or "s3"
	LocalPath     string
	KeyPrefix     string
	Slot          string
	RedisURL      string
	S3Bucket      string
	S3Region      string
	S3Endpoint    string
	S3AccessKeyID string
	S3SecretKey   string
}

// SentryConfig holds configuration for Sentry error tracking
type SentryConfig struct {
	DSN              string
	Enabled          bool
	Environment      string
	Release          string
	SampleRate       float64
	TracesSampleRate float64
	Debug            bool
}

type MetricsConfig struct {
	Namespace string
}

// EventsConfig enables order event publishing when NATSURL is set.
type EventsConfig struct {
	NATSURL       string
	SubjectPrefix string
}

func NewConfig() (*Config, error) {
	// Try to load .env from current directory, then walk up to find it (max 2 levels)
	err := godotenv.Load()
	if err != nil {
		dir, _ := os.Getwd()
		found := false
		for i := 0; i < 2; i++ {
			dir = filepath.Join(dir, "..")
			if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
				found = true
				break
			}
		}
		if !found {
			slog.Default().Warn("Warning: .env file not found, using environment variables and defaults")
		}
	}

	cfg := &Config{
		Env:         getEnv("ENV", "dev"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Host:        getEnv("HOST", "127.0.0.1"),
		Port:        getEnvInt("PORT", 3000),
		CORSOrigins: getEnvList("CORS_ORIGINS", nil),
		DatabaseUrl: getEnv("DATABASE_URL", ""),
		Backend: BackendConfig{
			URL:     getEnv("BACKEND_URL", "http://localhost:8080"),
			APIKey:  getEnv("BACKEND_API_KEY", ""),
			Timeout: getEnvDuration("BACKEND_TIMEOUT", 10*time.Second),
		},
		Order: OrderConfig{
			Notes:          getEnv("ORDER_NOTES", ""), // empty uses order.DefaultNotes
			Language:       getEnv("DEFAULT_LANGUAGE", "Assamese"),
			FallbackPrefix: getEnv("FALLBACK_PREFIX", "KK"),
		},
		Store: StoreConfig{
			Provider:      getEnv("STORE_PROVIDER", "local"),
			LocalPath:     getEnv("STORE_LOCAL_PATH", "./data"),
			KeyPrefix:     getEnv("STORE_KEY_PREFIX", "khetikara:"),
			Slot:          getEnv("STORE_CART_SLOT", "cart"),
			RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
			S3Bucket:      getEnv("S3_BUCKET", ""),
			S3Region:      getEnv("S3_REGION", "auto"),
			S3Endpoint:    getEnv("S3_ENDPOINT", ""),
			S3AccessKeyID: getEnv("S3_ACCESS_KEY_ID", ""),
			S3SecretKey:   getEnv("S3_SECRET_ACCESS_KEY", ""),
		},
		Sentry: SentryConfig{
			DSN:              getEnv("SENTRY_DSN", ""),
			Enabled:          getEnvBool("SENTRY_ENABLED", false), // Disabled by default for development
			Environment:      getEnv("SENTRY_ENVIRONMENT", "development"),
			Release:          getEnv("SENTRY_RELEASE", ""),
			SampleRate:       getEnvFloat("SENTRY_SAMPLE_RATE", 1.0),
			TracesSampleRate: getEnvFloat("SENTRY_TRACES_SAMPLE_RATE", 0.0),
			Debug:            getEnvBool("SENTRY_DEBUG", false),
		},
		Metrics: MetricsConfig{
			Namespace: getEnv("METRICS_NAMESPACE", "khetikara"),
		},
		Events: EventsConfig{
			NATSURL:       getEnv("NATS_URL", ""),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "khetikara"),
		},
	}

	// Validate env
	validEnv := cfg.Env == "dev" || cfg.Env == "prod"
	if !validEnv {
		slog.Default().Warn("Invalid environment. Using default: prod", slog.String("env", cfg.Env))
		cfg.Env = "prod"
	}

	// Validate log level
	validLevel := cfg.LogLevel == "info" || cfg.LogLevel == "debug" || cfg.LogLevel == "warn" || cfg.LogLevel == "error"
	if !validLevel {
		slog.Default().Warn("Invalid log level. Using default: info", slog.String("value", cfg.LogLevel))
		cfg.LogLevel = "info"
	}

	if cfg.Order.FallbackPrefix == "" {
		return nil, fmt.Errorf("FALLBACK_PREFIX must not be empty")
	}

	switch cfg.Store.Provider {
	case "local", "memory", "redis":
	case "postgres":
		if cfg.DatabaseUrl == "" {
			return nil, fmt.Errorf("DATABASE_URL required when STORE_PROVIDER=postgres")
		}
	case "s3":
		if cfg.Store.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET required when STORE_PROVIDER=s3")
		}
		if cfg.Env == "prod" && (cfg.Store.S3AccessKeyID == "" || cfg.Store.S3SecretKey == "") {
			return nil, fmt.Errorf("S3 credentials required when using S3 store in production")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_PROVIDER %q", cfg.Store.Provider)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue uint16) uint16 {
	if value := os.Getenv(key); value != "" {
		var intValue uint16
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var floatValue float64
		if _, err := fmt.Sscanf(value, "%f", &floatValue); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
