// Package config loads server configuration from the environment and an
// optional .env file.
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
	"github.com/warp/payroll-engine/calendar"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const DefaultTimezone = "America/Chicago"

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Timeclock TimeclockConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
	Timezone string
}

type DatabaseConfig struct {
	Path string
}

// TimeclockConfig controls the soft-cap sweep.
type TimeclockConfig struct {
	CapSweepInterval time.Duration
	CapMinutes       int
}

// Load reads .env (if present) and the process environment. A missing .env
// file is not an error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	port, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	sweep, err := time.ParseDuration(getEnv("CAP_SWEEP_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid CAP_SWEEP_INTERVAL: %w", err)
	}
	if sweep <= 0 {
		return nil, fmt.Errorf("invalid CAP_SWEEP_INTERVAL: must be positive, got %s", sweep)
	}

	capMinutes, err := strconv.Atoi(getEnv("SHIFT_CAP_MINUTES", "960"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHIFT_CAP_MINUTES: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Port:     port,
			Env:      getEnv("APP_ENV", "development"),
			LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Timezone: getEnv("APP_TIMEZONE", DefaultTimezone),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/payroll.db"),
		},
		Timeclock: TimeclockConfig{
			CapSweepInterval: sweep,
			CapMinutes:       capMinutes,
		},
	}

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	if _, err := zapcore.ParseLevel(cfg.App.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return cfg, nil
}

// Location resolves App.Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := calendar.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	return loc, nil
}

// Addr is the listen address for App.Port.
func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.App.Port) }

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool { return c.App.Env == "production" }

// NewLogger builds a zap logger for the environment at LOG_LEVEL.
func (c *Config) NewLogger() (*zap.Logger, error) {
	var zc zap.Config
	if c.IsProduction() {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(c.App.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	zc.Level = level
	return zc.Build()
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}
