// Package config loads runtime configuration for the ipp binary.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// IPP_* environment variables. The merged result is validated before use.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config is the complete runtime configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// StoreConfig selects and locates the record store.
type StoreConfig struct {
	Backend     string `yaml:"backend"      env:"IPP_STORE_BACKEND"`
	SQLitePath  string `yaml:"sqlite_path"  env:"IPP_SQLITE_PATH"`
	PostgresDSN string `yaml:"postgres_dsn" env:"IPP_POSTGRES_DSN"`
	RedisURL    string `yaml:"redis_url"    env:"IPP_REDIS_URL"`
	RedisPrefix string `yaml:"redis_prefix" env:"IPP_REDIS_PREFIX"`
}

// ServerConfig controls the HTTP request surface.
type ServerConfig struct {
	Addr              string        `yaml:"addr"                env:"IPP_SERVER_ADDR"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"IPP_SERVER_READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"    env:"IPP_SERVER_SHUTDOWN_TIMEOUT"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"  env:"IPP_LOG_LEVEL"`
	Format string `yaml:"format" env:"IPP_LOG_FORMAT"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend:    BackendSQLite,
			SQLitePath: "ipp.db",
		},
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatText,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the selected backend is fully specified and that
// log settings are recognized.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("config: store.sqlite_path is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("config: store.postgres_dsn is required for the postgres backend")
		}
	case BackendRedis:
		if c.Store.RedisURL == "" {
			return errors.New("config: store.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if c.Log.Format != LogFormatText && c.Log.Format != LogFormatJSON {
		return fmt.Errorf("config: log.format must be %q or %q, got %q", LogFormatText, LogFormatJSON, c.Log.Format)
	}
	if c.Server.Addr == "" {
		return errors.New("config: server.addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("config: server.shutdown_timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}
	return nil
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return level, nil
}
