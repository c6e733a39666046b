package cache

import (
	"fmt"
	"time"
)

// Supported cache backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds cache configuration
type Config struct {
	Enabled    bool          `json:"enabled" yaml:"enabled" env:"CACHE_ENABLED"`
	Backend    string        `json:"backend" yaml:"backend" env:"CACHE_BACKEND"` // memory, redis
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl" env:"CACHE_DEFAULT_TTL"`
	KeyPrefix  string        `json:"key_prefix" yaml:"key_prefix" env:"CACHE_KEY_PREFIX"`

	// Capacity bounds the number of entries held by the memory backend
	Capacity int `json:"capacity" yaml:"capacity" env:"CACHE_CAPACITY"`

	// Redis Connection
	Redis RedisConfig `json:"redis" yaml:"redis"`

	EnableMetrics bool          `json:"enable_metrics" yaml:"enable_metrics"`
	Logging       LoggingConfig `json:"logging" yaml:"logging"`
}

// RedisConfig holds Redis connection settings for the redis backend
type RedisConfig struct {
	Host     string `json:"host" yaml:"host" env:"REDIS_HOST"`
	Port     int    `json:"port" yaml:"port" env:"REDIS_PORT"`
	Password string `json:"password" yaml:"password" env:"REDIS_PASSWORD"`
	Database int    `json:"database" yaml:"database" env:"REDIS_DB"`

	// Connection Pool
	PoolSize     int           `json:"pool_size" yaml:"pool_size"`
	MinIdleConns int           `json:"min_idle_conns" yaml:"min_idle_conns"`
	MaxConnAge   time.Duration `json:"max_conn_age" yaml:"max_conn_age"`
	PoolTimeout  time.Duration `json:"pool_timeout" yaml:"pool_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout"`

	// Performance
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout"`

	// Clustering (for Redis Cluster)
	Cluster ClusterConfig `json:"cluster" yaml:"cluster"`
}

// ClusterConfig for Redis Cluster setup
type ClusterConfig struct {
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	Addresses []string `json:"addresses" yaml:"addresses"`
	Username  string   `json:"username" yaml:"username"`
	Password  string   `json:"password" yaml:"password"`
}

// LoggingConfig controls cache logging behavior
type LoggingConfig struct {
	LogCacheHits     bool `json:"log_cache_hits" yaml:"log_cache_hits"`
	LogCacheMisses   bool `json:"log_cache_misses" yaml:"log_cache_misses"`
	LogInvalidations bool `json:"log_invalidations" yaml:"log_invalidations"`
}

// DefaultConfig returns a cache configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Enabled:    true,
		Backend:    BackendMemory,
		DefaultTTL: time.Hour,
		KeyPrefix:  "repokit",
		Capacity:   10000,
		Redis: RedisConfig{
			Host:         "localhost",
			Port:         6379,
			PoolSize:     10,
			MinIdleConns: 3,
			MaxConnAge:   time.Hour,
			PoolTimeout:  time.Second * 4,
			IdleTimeout:  time.Minute * 5,
			ReadTimeout:  time.Second * 3,
			WriteTimeout: time.Second * 3,
			DialTimeout:  time.Second * 5,
		},
		EnableMetrics: true,
		Logging: LoggingConfig{
			LogCacheMisses:   true,
			LogInvalidations: true,
		},
	}
}

// Validate checks if the cache configuration is valid
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.DefaultTTL <= 0 {
		return fmt.Errorf("default_ttl must be positive when cache is enabled")
	}

	switch c.Backend {
	case "", BackendMemory:
		if c.Capacity < 1 {
			return fmt.Errorf("capacity must be at least 1")
		}
	case BackendRedis:
		if c.IsClusterMode() {
			return nil
		}
		if c.Redis.Host == "" {
			return fmt.Errorf("redis host is required when cache is enabled")
		}
		if c.Redis.Port <= 0 {
			return fmt.Errorf("redis port must be positive")
		}
		if c.Redis.PoolSize < 1 {
			return fmt.Errorf("pool_size must be at least 1")
		}
	default:
		return fmt.Errorf("unsupported cache backend %q", c.Backend)
	}

	return nil
}

// GetAddr returns the Redis connection address
func (c *Config) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// IsClusterMode returns true if Redis cluster is enabled
func (c *Config) IsClusterMode() bool {
	return c.Redis.Cluster.Enabled && len(c.Redis.Cluster.Addresses) > 0
}
