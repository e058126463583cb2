package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()

	// Set defaults from DefaultConfig
	setDefaults(v, cfg)

	// Read from config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Config file not found is ok - we use defaults and env vars
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Read from environment variables
	v.SetEnvPrefix("OFFERTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal into config struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	// Server defaults
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)

	// Database defaults
	v.SetDefault("database.host", cfg.Database.Host)
	v.SetDefault("database.port", cfg.Database.Port)
	v.SetDefault("database.user", cfg.Database.User)
	v.SetDefault("database.name", cfg.Database.Name)
	v.SetDefault("database.ssl_mode", cfg.Database.SSLMode)

	// Redis defaults
	v.SetDefault("redis.host", cfg.Redis.Host)
	v.SetDefault("redis.port", cfg.Redis.Port)
	v.SetDefault("redis.db", cfg.Redis.DB)
	v.SetDefault("redis.pool_size", cfg.Redis.PoolSize)

	// Signal provider defaults
	v.SetDefault("ipintel.base_url", cfg.IPIntel.BaseURL)
	v.SetDefault("ipintel.timeout", cfg.IPIntel.Timeout)
	v.SetDefault("ipintel.cache_ttl", cfg.IPIntel.CacheTTL)

	// Dispatcher defaults
	v.SetDefault("dispatch.sweep_interval", cfg.Dispatch.SweepInterval)
	v.SetDefault("dispatch.request_timeout", cfg.Dispatch.RequestTimeout)
	v.SetDefault("dispatch.backoff_base", cfg.Dispatch.BackoffBase)
	v.SetDefault("dispatch.backoff_max", cfg.Dispatch.BackoffMax)
	v.SetDefault("dispatch.batch_size", cfg.Dispatch.BatchSize)
	v.SetDefault("dispatch.default_max_attempts", cfg.Dispatch.DefaultMaxAttempts)

	// Log defaults
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
}
