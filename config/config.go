/*
config.go - Runtime configuration

PURPOSE:
  Loads server settings from the environment. A .env file in the working
  directory (or the path in ENV_FILE) is read first when present; real
  environment variables always win over values from the file.

VARIABLES:
  PORT                     HTTP port (default 8080)
  DB_PATH                  SQLite path, ":memory:" for throwaway (default performance.db)
  LOG_LEVEL                logrus level (default info)
  LOG_FORMAT               "text" or "json" (default text)
  CORS_ORIGINS             Comma separated origins
  LOCK_SCHEDULER_ENABLED   Auto-lock results after the grace period (default true)
  LOCK_SCHEDULER_INTERVAL  How often the lock scheduler runs (default 1h)
  LOCK_GRACE_DAYS          Days into a month before the previous month locks (default 5)
  SEED_SCENARIO            Demo network loaded on startup when the database is empty

SEE ALSO:
  - cmd/server/main.go: Flags that override these values
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds everything the server needs to start.
type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	DBPath   string `env:"DB_PATH" envDefault:"performance.db"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// LogFormat is "text" or "json".
	LogFormat   string   `env:"LOG_FORMAT" envDefault:"text"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:8080"`

	LockSchedulerEnabled  bool          `env:"LOCK_SCHEDULER_ENABLED" envDefault:"true"`
	LockSchedulerInterval time.Duration `env:"LOCK_SCHEDULER_INTERVAL" envDefault:"1h"`
	LockGraceDays         int           `env:"LOCK_GRACE_DAYS" envDefault:"5"`

	SeedScenario string `env:"SEED_SCENARIO"`
}

// Load reads the optional .env file and parses the environment.
func Load() (*Config, error) {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH must not be empty")
	}
	if c.LockGraceDays < 0 || c.LockGraceDays > 28 {
		return fmt.Errorf("LOCK_GRACE_DAYS must be between 0 and 28, got %d", c.LockGraceDays)
	}
	if c.LockSchedulerEnabled && c.LockSchedulerInterval <= 0 {
		return fmt.Errorf("invalid LOCK_SCHEDULER_INTERVAL %s", c.LockSchedulerInterval)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return nil
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
