package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate checks the config for structural correctness.
func Validate(c *Config) []error {
	var errs []error

	if c.Socket == "" {
		errs = append(errs, fmt.Errorf("socket is required"))
	}

	switch c.Storage.Driver {
	case "sqlite", "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, fmt.Errorf("storage (%s): dsn is required", c.Storage.Driver))
		}
		if c.Storage.Driver == "postgres" && c.Storage.DSN != "" &&
			!strings.HasPrefix(c.Storage.DSN, "postgres://") && !strings.HasPrefix(c.Storage.DSN, "postgresql://") &&
			!strings.Contains(c.Storage.DSN, "=") {
			errs = append(errs, fmt.Errorf("storage (postgres): dsn must be a URL or key=value connection string"))
		}
	case "":
		errs = append(errs, fmt.Errorf("storage: driver is required"))
	default:
		errs = append(errs, fmt.Errorf("storage: unknown driver %q", c.Storage.Driver))
	}

	if c.Cache.Enabled {
		if _, _, err := net.SplitHostPort(c.Cache.Redis.Addr); err != nil {
			errs = append(errs, fmt.Errorf("cache.redis: addr %q: %w", c.Cache.Redis.Addr, err))
		}
		if c.Cache.Redis.DB < 0 {
			errs = append(errs, fmt.Errorf("cache.redis: db must not be negative, got %d", c.Cache.Redis.DB))
		}
		if c.Cache.Redis.TTL < 0 {
			errs = append(errs, fmt.Errorf("cache.redis: ttl must not be negative, got %s", c.Cache.Redis.TTL))
		}
	}

	if c.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			errs = append(errs, fmt.Errorf("metrics: addr %q: %w", c.Metrics.Addr, err))
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging: unknown level %q", c.Logging.Level))
	}

	return errs
}
