package config

import (
	"os"
	"testing"
	"time"
)

var envVars = []string{
	"HTTP_ADDR", "HTTP_READ_TIMEOUT_SEC", "HTTP_WRITE_TIMEOUT_SEC", "HTTP_REQUEST_TIMEOUT_SEC",
	"ADMIN_API_KEY", "CORS_ALLOWED_ORIGINS",
	"DATABASE_URL", "DB_MIGRATE_ON_START",
	"PUBLIC_URL", "TELEGRAM_API_ENDPOINT", "TELEGRAM_TIMEOUT_SEC",
	"LLM_API_KEY", "LLM_BASE_URL", "LLM_MODEL", "LLM_TIMEOUT_SEC",
	"LOG_LEVEL", "LOG_FORMAT", "RATE_LIMIT_PER_MINUTE", "UPDATE_DEDUPE_TTL_SEC",
}

func clearEnvVars() {
	for _, k := range envVars {
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr error
	}{
		{
			name: "valid config",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost:5432/test",
				"PUBLIC_URL":   "https://bots.example.com",
			},
		},
		{
			name: "missing database url",
			envVars: map[string]string{
				"PUBLIC_URL": "https://bots.example.com",
			},
			wantErr: ErrMissingDB,
		},
		{
			name: "missing public url",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost:5432/test",
			},
			wantErr: ErrMissingPublicURL,
		},
		{
			name: "relative public url",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost:5432/test",
				"PUBLIC_URL":   "bots.example.com/hooks",
			},
			wantErr: ErrInvalidPublicURL,
		},
		{
			name: "non-http public url",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost:5432/test",
				"PUBLIC_URL":   "ftp://bots.example.com",
			},
			wantErr: ErrInvalidPublicURL,
		},
		{
			name: "bad listen address",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost:5432/test",
				"PUBLIC_URL":   "https://bots.example.com",
				"HTTP_ADDR":    "8000",
			},
			wantErr: ErrInvalidListenAddr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()

			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}
			defer clearEnvVars()

			cfg, err := Load()

			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("Load() unexpected error = %v", err)
			}
			if cfg == nil {
				t.Error("Load() returned nil config")
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	clearEnvVars()
	os.Setenv("DATABASE_URL", "postgres://localhost:5432/test")
	os.Setenv("PUBLIC_URL", "https://bots.example.com/")
	defer clearEnvVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTP.Addr != ":8000" {
		t.Errorf("HTTP.Addr = %v, want :8000", cfg.HTTP.Addr)
	}
	if cfg.HTTP.RequestTimeout != 60*time.Second {
		t.Errorf("HTTP.RequestTimeout = %v, want 60s", cfg.HTTP.RequestTimeout)
	}
	if cfg.HTTP.AdminAPIKey != "" {
		t.Error("admin auth should be disabled by default")
	}
	if len(cfg.HTTP.AllowedOrigins) != 1 || cfg.HTTP.AllowedOrigins[0] != "*" {
		t.Errorf("HTTP.AllowedOrigins = %v, want [*]", cfg.HTTP.AllowedOrigins)
	}
	if !cfg.Database.MigrateOnStart {
		t.Error("Database.MigrateOnStart should default to true")
	}
	if cfg.Telegram.PublicURL != "https://bots.example.com" {
		t.Errorf("Telegram.PublicURL = %v, want trailing slash trimmed", cfg.Telegram.PublicURL)
	}
	if cfg.Telegram.Timeout != 10*time.Second {
		t.Errorf("Telegram.Timeout = %v, want 10s", cfg.Telegram.Timeout)
	}
	if cfg.LLM.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("LLM.BaseURL = %v", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("LLM.Model = %v, want gpt-4o-mini", cfg.LLM.Model)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want info/json", cfg.Log)
	}
	if cfg.RateLimit.RequestsPerMinute != 20 {
		t.Errorf("RateLimit.RequestsPerMinute = %v, want 20", cfg.RateLimit.RequestsPerMinute)
	}
	if cfg.Dedupe.TTL != 10*time.Minute {
		t.Errorf("Dedupe.TTL = %v, want 10m", cfg.Dedupe.TTL)
	}
}

func TestOverrides(t *testing.T) {
	clearEnvVars()
	os.Setenv("DATABASE_URL", "postgres://localhost:5432/test")
	os.Setenv("PUBLIC_URL", "http://localhost:8000")
	os.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	os.Setenv("DB_MIGRATE_ON_START", "false")
	os.Setenv("ADMIN_API_KEY", "s3cret")
	os.Setenv("TELEGRAM_TIMEOUT_SEC", "3")
	defer clearEnvVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.HTTP.AllowedOrigins) != 2 {
		t.Errorf("HTTP.AllowedOrigins = %v, want 2 entries", cfg.HTTP.AllowedOrigins)
	}
	if cfg.Database.MigrateOnStart {
		t.Error("Database.MigrateOnStart should be false")
	}
	if cfg.HTTP.AdminAPIKey != "s3cret" {
		t.Errorf("HTTP.AdminAPIKey = %v", cfg.HTTP.AdminAPIKey)
	}
	if cfg.Telegram.Timeout != 3*time.Second {
		t.Errorf("Telegram.Timeout = %v, want 3s", cfg.Telegram.Timeout)
	}
}

func TestLoadDatabase(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	if _, _, err := LoadDatabase(); err != ErrMissingDB {
		t.Errorf("LoadDatabase() error = %v, want ErrMissingDB", err)
	}

	os.Setenv("DATABASE_URL", "postgres://localhost:5432/test")
	db, _, err := LoadDatabase()
	if err != nil {
		t.Fatalf("LoadDatabase() error = %v", err)
	}
	if db.URL != "postgres://localhost:5432/test" {
		t.Errorf("URL = %v", db.URL)
	}
}

func TestGetEnvIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		envValue   string
		defaultVal int
		want       int
	}{
		{"valid int", "42", 10, 42},
		{"empty string", "", 10, 10},
		{"invalid int", "abc", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv("TEST_INT", tt.envValue)
			defer os.Unsetenv("TEST_INT")

			got := getEnvIntOrDefault("TEST_INT", tt.defaultVal)
			if got != tt.want {
				t.Errorf("getEnvIntOrDefault() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvBoolOrDefault(t *testing.T) {
	tests := []struct {
		envValue   string
		defaultVal bool
		want       bool
	}{
		{"true", false, true},
		{"0", true, false},
		{"", true, true},
		{"maybe", false, false},
	}

	for _, tt := range tests {
		os.Setenv("TEST_BOOL", tt.envValue)
		got := getEnvBoolOrDefault("TEST_BOOL", tt.defaultVal)
		os.Unsetenv("TEST_BOOL")
		if got != tt.want {
			t.Errorf("getEnvBoolOrDefault(%q) = %v, want %v", tt.envValue, got, tt.want)
		}
	}
}
