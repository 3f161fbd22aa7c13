package config

import (
	"errors"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingDB         = errors.New("DATABASE_URL is required")
	ErrMissingPublicURL  = errors.New("PUBLIC_URL is required")
	ErrInvalidPublicURL  = errors.New("PUBLIC_URL must be an absolute http(s) URL")
	ErrInvalidListenAddr = errors.New("HTTP_ADDR must be host:port")
)

type Config struct {
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Telegram  TelegramConfig
	LLM       LLMConfig
	Log       LogConfig
	RateLimit RateLimitConfig
	Dedupe    DedupeConfig
}

type HTTPConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	// AdminAPIKey protects management routes. Empty disables auth.
	AdminAPIKey    string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL            string
	MigrateOnStart bool
}

type TelegramConfig struct {
	PublicURL   string
	APIEndpoint string
	Timeout     time.Duration
}

type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type LogConfig struct {
	Level string
	// Format is "json" or "console".
	Format string
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type DedupeConfig struct {
	TTL time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTP: HTTPConfig{
			Addr:           getEnvOrDefault("HTTP_ADDR", ":8000"),
			ReadTimeout:    time.Duration(getEnvIntOrDefault("HTTP_READ_TIMEOUT_SEC", 15)) * time.Second,
			WriteTimeout:   time.Duration(getEnvIntOrDefault("HTTP_WRITE_TIMEOUT_SEC", 90)) * time.Second,
			RequestTimeout: time.Duration(getEnvIntOrDefault("HTTP_REQUEST_TIMEOUT_SEC", 60)) * time.Second,
			AdminAPIKey:    os.Getenv("ADMIN_API_KEY"),
			AllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			URL:            os.Getenv("DATABASE_URL"),
			MigrateOnStart: getEnvBoolOrDefault("DB_MIGRATE_ON_START", true),
		},
		Telegram: TelegramConfig{
			PublicURL:   strings.TrimRight(os.Getenv("PUBLIC_URL"), "/"),
			APIEndpoint: os.Getenv("TELEGRAM_API_ENDPOINT"),
			Timeout:     time.Duration(getEnvIntOrDefault("TELEGRAM_TIMEOUT_SEC", 10)) * time.Second,
		},
		LLM: LLMConfig{
			APIKey:  os.Getenv("LLM_API_KEY"),
			BaseURL: getEnvOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
			Model:   getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
			Timeout: time.Duration(getEnvIntOrDefault("LLM_TIMEOUT_SEC", 60)) * time.Second,
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", 20),
		},
		Dedupe: DedupeConfig{
			TTL: time.Duration(getEnvIntOrDefault("UPDATE_DEDUPE_TTL_SEC", 600)) * time.Second,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return ErrMissingDB
	}
	if c.Telegram.PublicURL == "" {
		return ErrMissingPublicURL
	}
	u, err := url.Parse(c.Telegram.PublicURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidPublicURL
	}
	if _, _, err := net.SplitHostPort(c.HTTP.Addr); err != nil {
		return ErrInvalidListenAddr
	}
	return nil
}

// LoadDatabase reads only what the migrate command needs.
func LoadDatabase() (DatabaseConfig, LogConfig, error) {
	db := DatabaseConfig{URL: os.Getenv("DATABASE_URL")}
	logCfg := LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Format: getEnvOrDefault("LOG_FORMAT", "json"),
	}
	if db.URL == "" {
		return db, logCfg, ErrMissingDB
	}
	return db, logCfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
