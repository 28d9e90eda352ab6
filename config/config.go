package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Gate      GateConfig
	Consumer  ConsumerConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// RedisConfig holds the shared Redis connection configuration
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// CacheConfig holds cache-related configuration. The cache backs both the
// duplicate gate and the aggregate read cache.
type CacheConfig struct {
	Type       string        `mapstructure:"type"` // "memory" or "redis"
	ListingTTL time.Duration `mapstructure:"listing_ttl"`
}

// GateConfig holds duplicate/rate gate configuration
type GateConfig struct {
	TTL      time.Duration `mapstructure:"ttl"`
	FailOpen bool          `mapstructure:"fail_open"`
}

// ConsumerConfig holds queue consumer configuration
type ConsumerConfig struct {
	// Enabled runs the consumer inside the API process. Disable it when a
	// separate worker deployment drains the queue.
	Enabled    bool          `mapstructure:"enabled"`
	Queue      string        `mapstructure:"queue"`
	PopTimeout time.Duration `mapstructure:"pop_timeout"`
	Backoff    time.Duration `mapstructure:"backoff"`
	DeadLetter bool          `mapstructure:"dead_letter"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/chaniweb/")

	// Environment variable settings
	v.SetEnvPrefix("CHANIWEB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Database has no usable default; registering the key lets viper bind
	// CHANIWEB_DATABASE_URL from the environment.
	v.SetDefault("database.url", "")

	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Redis defaults
	v.SetDefault("redis.url", "redis://localhost:6379")

	// Cache defaults
	v.SetDefault("cache.type", "redis")
	v.SetDefault("cache.listing_ttl", "60s")

	// Gate defaults: 1 hour duplicate-suppression window, fail-closed
	v.SetDefault("gate.ttl", "3600s")
	v.SetDefault("gate.fail_open", false)

	// Consumer defaults
	v.SetDefault("consumer.enabled", false)
	v.SetDefault("consumer.queue", "products_queue")
	v.SetDefault("consumer.pop_timeout", "5s")
	v.SetDefault("consumer.backoff", "5s")
	v.SetDefault("consumer.dead_letter", true)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Database.URL == "" {
		return fmt.Errorf("database URL is required (set CHANIWEB_DATABASE_URL)")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Redis.URL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Consumer.Queue == "" {
		return fmt.Errorf("consumer queue name must not be empty")
	}

	if config.Gate.TTL <= 0 {
		return fmt.Errorf("gate TTL must be positive, got: %s", config.Gate.TTL)
	}

	return nil
}

// DeadLetterQueue returns the dead-letter list name derived from the main
// queue name.
func (c *ConsumerConfig) DeadLetterQueue() string {
	return c.Queue + ":dead"
}
