// Package config resolves the server configuration
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/heyimjames/penang-growth-lab-sub002/internal/ratelimit"
	"github.com/heyimjames/penang-growth-lab-sub002/internal/telemetry"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config is the resolved runtime configuration
type Config struct {
	Port           int
	RequestTimeout time.Duration
	LogLevel       string

	StoreBackend   string
	DatabaseURL    string
	SQLitePath     string
	SeedHeuristics bool

	AdminEmail string

	RedisURL          string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	TrustedProxies    []string

	AnthropicAPIKey string
	AnthropicModel  string
	LLMTimeout      time.Duration

	Telemetry telemetry.Config
}

// configFile mirrors configs/default.yaml
type configFile struct {
	Server struct {
		Port                  int    `yaml:"port"`
		RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
		LogLevel              string `yaml:"log_level"`
	} `yaml:"server"`
	Store struct {
		Backend        string `yaml:"backend"`
		PostgresURL    string `yaml:"postgres_url"`
		SQLitePath     string `yaml:"sqlite_path"`
		SeedHeuristics *bool  `yaml:"seed_heuristics"`
	} `yaml:"store"`
	Admin struct {
		Email string `yaml:"email"`
	} `yaml:"admin"`
	RateLimit struct {
		RedisURL       string   `yaml:"redis_url"`
		Requests       int      `yaml:"requests"`
		WindowSeconds  int      `yaml:"window_seconds"`
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"rate_limit"`
	Letters struct {
		Model          string `yaml:"model"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"letters"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// Load resolves configuration in priority order: defaults -> file -> env.
// Variables from envFile (normally .env) are loaded into the environment
// first without overriding variables that are already set. A missing config
// file or env file is not an error.
func Load(path, envFile string) (Config, error) {
	cfg := Config{
		Port:              8080,
		RequestTimeout:    60 * time.Second,
		LogLevel:          "INFO",
		StoreBackend:      BackendMemory,
		SQLitePath:        "growthlab.db",
		SeedHeuristics:    true,
		RateLimitRequests: 60,
		RateLimitWindow:   time.Minute,
		AnthropicModel:    "claude-sonnet-4-20250514",
		LLMTimeout:        30 * time.Second,
		Telemetry: telemetry.Config{
			ServiceName: "penang-growth-lab",
			SampleRatio: 1,
		},
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := applyFile(&cfg, raw); err != nil {
				return Config{}, err
			}
		case !errors.Is(err, fs.ErrNotExist):
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if f.Server.Port > 0 {
		cfg.Port = f.Server.Port
	}
	if f.Server.RequestTimeoutSeconds > 0 {
		cfg.RequestTimeout = time.Duration(f.Server.RequestTimeoutSeconds) * time.Second
	}
	if f.Server.LogLevel != "" {
		cfg.LogLevel = f.Server.LogLevel
	}
	if f.Store.Backend != "" {
		cfg.StoreBackend = f.Store.Backend
	}
	if f.Store.PostgresURL != "" {
		cfg.DatabaseURL = f.Store.PostgresURL
	}
	if f.Store.SQLitePath != "" {
		cfg.SQLitePath = f.Store.SQLitePath
	}
	if f.Store.SeedHeuristics != nil {
		cfg.SeedHeuristics = *f.Store.SeedHeuristics
	}
	if f.Admin.Email != "" {
		cfg.AdminEmail = f.Admin.Email
	}
	if f.RateLimit.RedisURL != "" {
		cfg.RedisURL = f.RateLimit.RedisURL
	}
	if f.RateLimit.Requests > 0 {
		cfg.RateLimitRequests = f.RateLimit.Requests
	}
	if f.RateLimit.WindowSeconds > 0 {
		cfg.RateLimitWindow = time.Duration(f.RateLimit.WindowSeconds) * time.Second
	}
	if len(f.RateLimit.TrustedProxies) > 0 {
		cfg.TrustedProxies = f.RateLimit.TrustedProxies
	}
	if f.Letters.Model != "" {
		cfg.AnthropicModel = f.Letters.Model
	}
	if f.Letters.TimeoutSeconds > 0 {
		cfg.LLMTimeout = time.Duration(f.Letters.TimeoutSeconds) * time.Second
	}

	cfg.Telemetry.Enabled = f.Telemetry.Enabled
	cfg.Telemetry.Insecure = f.Telemetry.Insecure
	if f.Telemetry.Endpoint != "" {
		cfg.Telemetry.Endpoint = f.Telemetry.Endpoint
	}
	if f.Telemetry.ServiceName != "" {
		cfg.Telemetry.ServiceName = f.Telemetry.ServiceName
	}
	if f.Telemetry.SampleRatio > 0 {
		cfg.Telemetry.SampleRatio = f.Telemetry.SampleRatio
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = envInt("PORT", cfg.Port)
	cfg.RequestTimeout = time.Duration(envInt("REQUEST_TIMEOUT_SECONDS", int(cfg.RequestTimeout.Seconds()))) * time.Second
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)

	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(envOrDefault("STORE_BACKEND", cfg.StoreBackend)))
	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.SQLitePath = envOrDefault("SQLITE_PATH", cfg.SQLitePath)
	cfg.SeedHeuristics = envBool("SEED_HEURISTICS", cfg.SeedHeuristics)

	cfg.AdminEmail = envOrDefault("ADMIN_EMAIL", cfg.AdminEmail)

	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.RateLimitRequests = envInt("RATE_LIMIT_REQUESTS", cfg.RateLimitRequests)
	cfg.RateLimitWindow = time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", int(cfg.RateLimitWindow.Seconds()))) * time.Second
	if proxies := os.Getenv("TRUSTED_PROXIES"); proxies != "" {
		cfg.TrustedProxies = strings.Split(proxies, ",")
	}

	cfg.AnthropicAPIKey = strings.TrimSpace(envOrDefault("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey))
	cfg.AnthropicModel = envOrDefault("LETTER_LLM_MODEL", cfg.AnthropicModel)
	cfg.LLMTimeout = time.Duration(envInt("LETTER_LLM_TIMEOUT_SECONDS", int(cfg.LLMTimeout.Seconds()))) * time.Second

	cfg.Telemetry.Enabled = envBool("OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Endpoint = envOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.Insecure = envBool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Telemetry.Insecure)
	cfg.Telemetry.ServiceName = envOrDefault("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
}

// Validate checks the combination of settings
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("store backend postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown store backend %q (use memory, postgres or sqlite)", c.StoreBackend)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.RateLimitRequests <= 0 {
		return fmt.Errorf("rate limit requests must be positive, got %d", c.RateLimitRequests)
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("letter LLM timeout must be positive")
	}
	if _, err := ratelimit.ParseTrustedProxies(c.TrustedProxies); err != nil {
		return err
	}
	return nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms, falling back on anything else.
func envBool(name string, fallback bool) bool {
	switch strings.ToLower(os.Getenv(name)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}
