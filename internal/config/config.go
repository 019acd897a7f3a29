package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	LiqPayPublicKey           string
	LiqPayPrivateKey          string
	LiqPayAPIBaseURL          string
	LiqPayAllowTestSignatures bool
	LiqPayRequestTimeout      time.Duration
	LiqPayRetryBase           time.Duration
	LiqPayRetryMaxAttempts    int
	LiqPayRetryJitter         float64
	LiqPayCircuitMinReq       int
	LiqPayCircuitFailureRate  float64
	LiqPayCircuitOpenFor      time.Duration

	AuditLogCap       int
	AuditLogKey       string
	WebhookBodyLimit  int64
	WebhookRateMax    int
	WebhookRateWindow time.Duration

	MigrateOnStart bool
	MigrationsPath string

	HookQueueConcurrency int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		LiqPayPublicKey:           k.String("LIQPAY_PUBLIC_KEY"),
		LiqPayPrivateKey:          k.String("LIQPAY_PRIVATE_KEY"),
		LiqPayAPIBaseURL:          valueOrDefault(k.String("LIQPAY_API_BASE_URL"), "https://www.liqpay.ua"),
		LiqPayAllowTestSignatures: parseBool(k.String("LIQPAY_ALLOW_TEST_SIGNATURES")),
		LiqPayRequestTimeout:      parseDuration(k.String("LIQPAY_REQUEST_TIMEOUT"), "10s"),
		LiqPayRetryBase:           parseDuration(k.String("LIQPAY_RETRY_BASE"), "200ms"),
		LiqPayRetryMaxAttempts:    parseInt(k.String("LIQPAY_RETRY_MAX_ATTEMPTS"), 3),
		LiqPayRetryJitter:         parseFloat(k.String("LIQPAY_RETRY_JITTER"), 0.2),
		LiqPayCircuitMinReq:       parseInt(k.String("LIQPAY_CIRCUIT_MIN_REQUESTS"), 5),
		LiqPayCircuitFailureRate:  parseFloat(k.String("LIQPAY_CIRCUIT_FAILURE_RATE"), 0.5),
		LiqPayCircuitOpenFor:      parseDuration(k.String("LIQPAY_CIRCUIT_OPEN_FOR"), "30s"),

		AuditLogCap:       parseInt(k.String("AUDIT_LOG_CAP"), 50),
		AuditLogKey:       valueOrDefault(k.String("AUDIT_LOG_KEY"), "liqpay:webhook:logs"),
		WebhookBodyLimit:  int64(parseInt(k.String("WEBHOOK_BODY_LIMIT"), 64*1024)),
		WebhookRateMax:    parseInt(k.String("WEBHOOK_RATE_MAX"), 120),
		WebhookRateWindow: parseDuration(k.String("WEBHOOK_RATE_WINDOW"), "1m"),

		MigrateOnStart: parseBool(k.String("MIGRATE_ON_START")),
		MigrationsPath: valueOrDefault(k.String("MIGRATIONS_PATH"), "migrations"),

		HookQueueConcurrency: parseInt(k.String("HOOK_QUEUE_CONCURRENCY"), 4),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.LiqPayPublicKey == "" {
		return nil, errors.New("LIQPAY_PUBLIC_KEY is required")
	}
	if cfg.LiqPayPrivateKey == "" {
		return nil, errors.New("LIQPAY_PRIVATE_KEY is required")
	}
	if cfg.AuditLogCap <= 0 {
		cfg.AuditLogCap = 50
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var parsed int
	if _, err := fmt.Sscanf(trimmed, "%d", &parsed); err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var parsed float64
	if _, err := fmt.Sscanf(trimmed, "%g", &parsed); err != nil {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
