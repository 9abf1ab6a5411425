// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultShutdownTimeout    = 30 * time.Second
	defaultStatsTTL           = 5 * time.Minute
	defaultLedgerBackfillCron = "*/30 * * * *"
	defaultLedgerBackfillSize = 100
	defaultRateLimitWrites    = 60
	defaultRateLimitWindow    = time.Minute
)

type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	Filename     string `yaml:"filename"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// RedisConfig is optional; an empty Addr disables the stats cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	DB       int           `yaml:"db"`
	Password string        `yaml:"-"` // Loaded from environment
	StatsTTL time.Duration `yaml:"stats_ttl"`
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type JobConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Cron      string `yaml:"cron"`
	BatchSize int    `yaml:"batch_size"`
}

// RateLimitConfig bounds ledger writes per caller.
type RateLimitConfig struct {
	Enabled    bool          `yaml:"enabled"`
	MaxWrites  int           `yaml:"max_writes"`
	Window     time.Duration `yaml:"window"`
	TrustProxy bool          `yaml:"trust_proxy"`
}

type Config struct {
	App struct {
		Name            string        `yaml:"name"`
		Environment     string        `yaml:"environment"`
		Port            int           `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`

	Redis RedisConfig `yaml:"redis"`

	Jobs struct {
		LedgerBackfill JobConfig `yaml:"ledger_backfill"`
	} `yaml:"jobs"`

	Matchmaking struct {
		DefaultMode string `yaml:"default_mode"`
	} `yaml:"matchmaking"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")

	return cfg, nil
}

// Parse decodes yaml configuration, fills defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.App.ShutdownTimeout <= 0 {
		c.App.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.Redis.StatsTTL <= 0 {
		c.Redis.StatsTTL = defaultStatsTTL
	}
	if c.Jobs.LedgerBackfill.Cron == "" {
		c.Jobs.LedgerBackfill.Cron = defaultLedgerBackfillCron
	}
	if c.Jobs.LedgerBackfill.BatchSize <= 0 {
		c.Jobs.LedgerBackfill.BatchSize = defaultLedgerBackfillSize
	}
	if c.Matchmaking.DefaultMode == "" {
		c.Matchmaking.DefaultMode = "tier"
	}
	if c.RateLimit.MaxWrites <= 0 {
		c.RateLimit.MaxWrites = defaultRateLimitWrites
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = defaultRateLimitWindow
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	switch c.Matchmaking.DefaultMode {
	case "tier", "random":
	default:
		return fmt.Errorf("unsupported matchmaking mode: %s", c.Matchmaking.DefaultMode)
	}

	return nil
}
