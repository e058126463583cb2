package config

import (
	"fmt"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis port: %d", c.Redis.Port)
	}

	if c.Dispatch.SweepInterval <= 0 {
		return fmt.Errorf("dispatch sweep interval must be positive")
	}
	if c.Dispatch.BatchSize < 1 {
		return fmt.Errorf("dispatch batch size must be at least 1")
	}
	if c.Dispatch.DefaultMaxAttempts < 1 {
		return fmt.Errorf("dispatch default max attempts must be at least 1")
	}
	if c.Dispatch.BackoffBase <= 0 {
		return fmt.Errorf("dispatch backoff base must be positive")
	}
	if c.Dispatch.BackoffMax < c.Dispatch.BackoffBase {
		return fmt.Errorf("dispatch backoff max must be >= backoff base")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}
