package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Tracking TrackingConfig `mapstructure:"tracking"`
}

// ServerConfig defines the local API and metrics endpoints
type ServerConfig struct {
	BindAddress string `mapstructure:"bind_address"`
	APIPort     int    `mapstructure:"api_port"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type  string      `mapstructure:"type"` // "bolt" or "redis"
	Path  string      `mapstructure:"path"` // bolt database file
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

// TrackingConfig defines session tracking behavior
type TrackingConfig struct {
	MaxDeltaMs         int64    `mapstructure:"max_delta_ms"`
	TickInterval       string   `mapstructure:"tick_interval"`
	EventRetentionDays int      `mapstructure:"event_retention_days"`
	StatCategories     []string `mapstructure:"stat_categories"`
	Timezone           string   `mapstructure:"timezone"` // "utc" or "local"
	DedupeCacheSize    int      `mapstructure:"dedupe_cache_size"`
	RecentEventsLimit  int      `mapstructure:"recent_events_limit"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetEnvPrefix("VIDWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults. The API binds loopback: the collaborators are
	// co-located with the engine and tracked data never leaves the host.
	v.SetDefault("server.bind_address", "127.0.0.1")
	v.SetDefault("server.api_port", 8479)
	v.SetDefault("server.metrics_port", 9479)

	// Storage defaults
	v.SetDefault("storage.type", "bolt")
	v.SetDefault("storage.path", "vidwatch.db")
	v.SetDefault("storage.redis.host", "127.0.0.1")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Tracking defaults
	v.SetDefault("tracking.max_delta_ms", 60000)
	v.SetDefault("tracking.tick_interval", "1s")
	v.SetDefault("tracking.event_retention_days", 30)
	v.SetDefault("tracking.stat_categories", []string{"shorts", "regular"})
	v.SetDefault("tracking.timezone", "utc")
	v.SetDefault("tracking.dedupe_cache_size", 4096)
	v.SetDefault("tracking.recent_events_limit", 100)
}

// validate checks configuration invariants
func validate(cfg *Config) error {
	switch cfg.Storage.Type {
	case "bolt":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the bolt backend")
		}
	case "redis":
		if cfg.Storage.Redis.Host == "" {
			return fmt.Errorf("storage.redis.host is required for the redis backend")
		}
	default:
		return fmt.Errorf("storage.type must be \"bolt\" or \"redis\", got %q", cfg.Storage.Type)
	}

	if cfg.Tracking.MaxDeltaMs <= 0 {
		return fmt.Errorf("tracking.max_delta_ms must be positive")
	}
	if cfg.Tracking.EventRetentionDays <= 0 {
		return fmt.Errorf("tracking.event_retention_days must be positive")
	}
	if len(cfg.Tracking.StatCategories) == 0 {
		return fmt.Errorf("tracking.stat_categories must not be empty")
	}
	if cfg.Tracking.Timezone != "utc" && cfg.Tracking.Timezone != "local" {
		return fmt.Errorf("tracking.timezone must be \"utc\" or \"local\", got %q", cfg.Tracking.Timezone)
	}
	if _, err := time.ParseDuration(cfg.Tracking.TickInterval); err != nil {
		return fmt.Errorf("invalid tracking.tick_interval: %w", err)
	}
	if cfg.Server.APIPort <= 0 || cfg.Server.APIPort > 65535 {
		return fmt.Errorf("server.api_port out of range: %d", cfg.Server.APIPort)
	}
	if cfg.Server.MetricsPort <= 0 || cfg.Server.MetricsPort > 65535 {
		return fmt.Errorf("server.metrics_port out of range: %d", cfg.Server.MetricsPort)
	}

	return nil
}

// Location resolves the configured timezone. The choice is fixed
// process-wide; every date key derives from it.
func (c *Config) Location() *time.Location {
	if c.Tracking.Timezone == "local" {
		return time.Local
	}
	return time.UTC
}

// EventRetention returns the raw event retention window.
func (c *Config) EventRetention() time.Duration {
	return time.Duration(c.Tracking.EventRetentionDays) * 24 * time.Hour
}

// TickInterval returns the stats broadcast interval.
func (c *Config) TickInterval() time.Duration {
	d, err := time.ParseDuration(c.Tracking.TickInterval)
	if err != nil {
		return time.Second
	}
	return d
}
