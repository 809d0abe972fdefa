// Package config loads sightline.yaml, shared by the sightline CLI and timelined.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up when none is given.
const DefaultFile = "sightline.yaml"

// Config is the root configuration.
type Config struct {
	Socket  string        `yaml:"socket"`
	Storage StorageConfig `yaml:"storage"`
	Cache   CacheConfig   `yaml:"cache"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`

	// FilePath is the file the config was loaded from, if any.
	FilePath string `yaml:"-"`
}

// StorageConfig selects the timeline database.
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite|postgres
	DSN    string `yaml:"dsn"`
}

// CacheConfig controls the client-side query response cache.
type CacheConfig struct {
	Enabled bool        `yaml:"enabled"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig locates the Redis cache.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// MetricsConfig controls the Prometheus endpoint of timelined.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads path, or DefaultFile when path is empty, then applies .env and
// environment overrides and defaults. A missing default file is not an error;
// a missing explicit path is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if cfg, err = Parse(data); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		cfg.FilePath = path
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	// .env never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// Parse decodes YAML config data without applying defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides cfg from SIGHTLINE_* variables read through lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	str("SIGHTLINE_SOCKET", &cfg.Socket)
	str("SIGHTLINE_STORAGE_DRIVER", &cfg.Storage.Driver)
	str("SIGHTLINE_STORAGE_DSN", &cfg.Storage.DSN)
	str("SIGHTLINE_REDIS_ADDR", &cfg.Cache.Redis.Addr)
	str("SIGHTLINE_REDIS_PASSWORD", &cfg.Cache.Redis.Password)
	str("SIGHTLINE_METRICS_ADDR", &cfg.Metrics.Addr)
	str("SIGHTLINE_LOG_LEVEL", &cfg.Logging.Level)

	if v, ok := lookup("SIGHTLINE_CACHE_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SIGHTLINE_CACHE_ENABLED: %w", err)
		}
		cfg.Cache.Enabled = b
	}
	if v, ok := lookup("SIGHTLINE_REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SIGHTLINE_REDIS_DB: %w", err)
		}
		cfg.Cache.Redis.DB = n
	}
	if v, ok := lookup("SIGHTLINE_CACHE_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SIGHTLINE_CACHE_TTL: %w", err)
		}
		cfg.Cache.Redis.TTL = d
	}
	return nil
}

// ApplyDefaults fills every unset field.
func ApplyDefaults(cfg *Config) {
	if cfg.Socket == "" {
		cfg.Socket = DefaultSocket()
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DSN == "" && cfg.Storage.Driver == "sqlite" {
		cfg.Storage.DSN = defaultDatabase()
	}
	if cfg.Cache.Redis.Addr == "" {
		cfg.Cache.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.Cache.Redis.KeyPrefix == "" {
		cfg.Cache.Redis.KeyPrefix = "sightline:query"
	}
	if cfg.Cache.Redis.TTL == 0 {
		cfg.Cache.Redis.TTL = 5 * time.Minute
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// DefaultSocket returns the socket path under $XDG_RUNTIME_DIR, or /tmp.
func DefaultSocket() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "timelined.sock")
	}
	return "/tmp/timelined.sock"
}

func defaultDatabase() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "sightline", "timelines.db")
	}
	return "timelines.db"
}

// SlogLevel maps the configured level name to a slog level.
func (c LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
