package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Input struct {
		Dir           string `yaml:"dir"`
		Pattern       string `yaml:"pattern"`
		DefaultTicker string `yaml:"default_ticker"`
	} `yaml:"input"`
	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	Schedule struct {
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`
	Lock struct {
		RedisURL string        `yaml:"redis_url"`
		Key      string        `yaml:"key"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"lock"`
}

var drivers = map[string]bool{"sqlite": true, "sqlite3": true, "postgres": true}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional; variables already set in the environment win.
	_ = godotenv.Load()

	if v := os.Getenv("ETL_INPUT_DIR"); v != "" {
		cfg.Input.Dir = v
	}
	if v := os.Getenv("ETL_FILE_PATTERN"); v != "" {
		cfg.Input.Pattern = v
	}
	if v := os.Getenv("ETL_DEFAULT_TICKER"); v != "" {
		cfg.Input.DefaultTicker = v
	}
	if v := os.Getenv("ETL_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("ETL_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("ETL_SCHEDULE"); v != "" {
		cfg.Schedule.Cron = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Lock.RedisURL = v
	}
	if v := os.Getenv("ETL_LOCK_TTL"); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil {
			cfg.Lock.TTL = ttl
		}
	}

	// Defaults
	if cfg.Input.Dir == "" {
		cfg.Input.Dir = "data"
	}
	if cfg.Input.Pattern == "" {
		cfg.Input.Pattern = "*_stock_data.csv"
	}
	if cfg.Input.DefaultTicker == "" {
		cfg.Input.DefaultTicker = "AAPL"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "data/stock_data.db"
	}
	if cfg.Lock.TTL == 0 {
		cfg.Lock.TTL = 30 * time.Minute
	}

	return cfg, nil
}

// UseSQLiteFile points the destination at a SQLite file. A configured
// postgres driver is switched to sqlite, with a warning.
func (c *Config) UseSQLiteFile(path string) {
	if c.Database.Driver == "postgres" {
		log.Printf("[WARN] database file %s given, switching driver from postgres to sqlite", path)
		c.Database.Driver = "sqlite"
	}
	c.Database.DSN = path
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Input.Dir == "" {
		return fmt.Errorf("input.dir is required")
	}
	if _, err := filepath.Match(c.Input.Pattern, ""); err != nil {
		return fmt.Errorf("input.pattern %q: %w", c.Input.Pattern, err)
	}
	if !drivers[c.Database.Driver] {
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Lock.TTL <= 0 {
		return fmt.Errorf("lock.ttl must be positive")
	}
	return nil
}
