package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for cloneforge-engine.
// Configuration can come from YAML file (config.yaml) or environment
// variables. Environment variables always override YAML values. Secrets
// (API keys, passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	AI            AIConfig            `yaml:"ai"`
	TechDetection TechDetectionConfig `yaml:"tech_detection"`
	Analysis      AnalysisConfig      `yaml:"analysis"`
	Cache         CacheConfig         `yaml:"cache"`
	Storage       StorageConfig       `yaml:"storage"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
}

// AIConfig holds provider endpoints for content generation. The fallback
// provider is optional; when configured it receives the identical prompt
// contract on any primary failure.
type AIConfig struct {
	Primary        ProviderConfig `yaml:"primary"`
	Fallback       ProviderConfig `yaml:"fallback"`
	TimeoutSeconds int            `yaml:"timeout_seconds" env:"AI_TIMEOUT_SECONDS" env-default:"60"`
	MaxTokens      int            `yaml:"max_tokens" env:"AI_MAX_TOKENS" env-default:"4096"`
	Temperature    float64        `yaml:"temperature" env:"AI_TEMPERATURE" env-default:"0.7"`
}

// ProviderConfig identifies one AI provider endpoint.
type ProviderConfig struct {
	Kind     string `yaml:"kind"`     // "openai" or "anthropic"
	Endpoint string `yaml:"endpoint"` // optional for hosted APIs
	Model    string `yaml:"model"`
	APIKey   string `yaml:"-"` // resolved from kind-specific env var
}

// IsConfigured returns true if the provider has a model set.
func (p *ProviderConfig) IsConfigured() bool {
	return p.Model != ""
}

// TechDetectionConfig controls the technology-detection branch.
type TechDetectionConfig struct {
	// Enabled globally toggles detection. When false the orchestrator
	// skips the branch entirely and records status "disabled".
	Enabled          bool   `yaml:"enabled" env:"TECH_DETECTION_ENABLED" env-default:"true"`
	TimeoutSeconds   int    `yaml:"timeout_seconds" env:"TECH_DETECTION_TIMEOUT_SECONDS" env-default:"15"`
	FingerprintsPath string `yaml:"fingerprints_path" env:"TECH_DETECTION_FINGERPRINTS" env-default:""`
}

// AnalysisConfig controls admission and retry behavior for the
// orchestration pipeline.
type AnalysisConfig struct {
	// MaxConcurrent caps system-wide concurrent analyses. Exceeding it
	// rejects immediately, it never queues.
	MaxConcurrent       int     `yaml:"max_concurrent" env:"ANALYSIS_MAX_CONCURRENT" env-default:"5"`
	ScrapeTimeoutSecs   int     `yaml:"scrape_timeout_seconds" env:"SCRAPE_TIMEOUT_SECONDS" env-default:"10"`
	RetryMaxAttempts    int     `yaml:"retry_max_attempts" env:"RETRY_MAX_ATTEMPTS" env-default:"3"`
	RetryInitialDelayMs int     `yaml:"retry_initial_delay_ms" env:"RETRY_INITIAL_DELAY_MS" env-default:"1000"`
	RetryMultiplier     float64 `yaml:"retry_multiplier" env:"RETRY_MULTIPLIER" env-default:"2.0"`
	RetryMaxDelayMs     int     `yaml:"retry_max_delay_ms" env:"RETRY_MAX_DELAY_MS" env-default:"10000"`
}

// CacheConfig controls the insights cache.
type CacheConfig struct {
	TTLHours          int `yaml:"ttl_hours" env:"CACHE_TTL_HOURS" env-default:"24"`
	SweepIntervalMins int `yaml:"sweep_interval_minutes" env:"CACHE_SWEEP_INTERVAL_MINUTES" env-default:"60"`
}

// TTL returns the cache TTL as a duration.
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// SweepInterval returns the sweep cadence as a duration.
func (c *CacheConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMins) * time.Minute
}

// StorageConfig selects the analysis store backend.
type StorageConfig struct {
	// Driver is "memory" or "postgres".
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"memory"`
}

// DatabaseConfig holds PostgreSQL configuration, used when the postgres
// storage driver is selected.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"cloneforge"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"cloneforge_engine"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"./migrations"`
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration. An empty host disables Redis and
// the engine falls back to the in-memory insights cache.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// RateLimitConfig bounds per-client request rates at the HTTP boundary.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" env:"RATE_LIMIT_RPM" env-default:"60"`
	Burst             int `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"10"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. When no config file exists, environment variables alone are
// used. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	cfg.resolveProviderSecrets()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// resolveProviderSecrets pulls API keys from kind-specific env vars so they
// never appear in YAML.
func (c *Config) resolveProviderSecrets() {
	if v := os.Getenv("AI_PRIMARY_MODEL"); v != "" {
		c.AI.Primary.Model = v
	}
	if v := os.Getenv("AI_FALLBACK_MODEL"); v != "" {
		c.AI.Fallback.Model = v
	}
	if c.AI.Primary.Kind == "" {
		c.AI.Primary.Kind = "openai"
	}
	if c.AI.Fallback.Kind == "" && c.AI.Fallback.Model != "" {
		c.AI.Fallback.Kind = "anthropic"
	}
	c.AI.Primary.APIKey = providerKey(c.AI.Primary.Kind)
	c.AI.Fallback.APIKey = providerKey(c.AI.Fallback.Kind)
}

func providerKey(kind string) string {
	switch kind {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return ""
	}
}

func (c *Config) validate() error {
	if !c.AI.Primary.IsConfigured() {
		return fmt.Errorf("ai.primary.model is required")
	}
	if c.Analysis.MaxConcurrent < 1 {
		return fmt.Errorf("analysis.max_concurrent must be at least 1")
	}
	switch c.Storage.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("storage.driver must be memory or postgres, got %q", c.Storage.Driver)
	}
	return nil
}

// IsDevelopment reports whether internal error diagnostics may be exposed.
func (c *Config) IsDevelopment() bool {
	return c.Env == "local" || c.Env == "development"
}
