// Package config loads proxy settings from an optional config file, a .env
// file in the working directory, and the process environment, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/Sternrassler/ig-profile-proxy/pkg/logging"
	"github.com/Sternrassler/ig-profile-proxy/pkg/ratelimit"
)

// Cache backends.
const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// DotEnvFile is read from the working directory when present.
const DotEnvFile = ".env"

// Config holds all proxy settings.
type Config struct {
	APIKey     string
	ListenAddr string

	Redis RedisConfig

	CacheBackend string
	CacheTTL     time.Duration

	UpstreamBaseURL string
	UpstreamTimeout time.Duration
	RequestTimeout  time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBackend  string

	LogLevel  string
	LogPretty bool

	ShutdownTimeout time.Duration
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("listen_addr", ":8000")
	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", 6379)
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("cache_backend", CacheBackendRedis)
	v.SetDefault("cache_ttl", "600s")
	v.SetDefault("upstream_base_url", "https://i.instagram.com")
	v.SetDefault("upstream_timeout", "10s")
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("rate_limit_requests", ratelimit.DefaultRequests)
	v.SetDefault("rate_limit_window", ratelimit.DefaultWindow.String())
	v.SetDefault("rate_limit_backend", ratelimit.BackendRedis)
	v.SetDefault("log_level", string(logging.LevelInfo))
	v.SetDefault("log_pretty", false)
	v.SetDefault("shutdown_timeout", "10s")
}

// Load reads configuration. configFile may be empty; when set it must exist.
// The result is not validated.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := mergeDotEnv(v, DotEnvFile); err != nil {
		return nil, err
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	v.AutomaticEnv()

	return &Config{
		APIKey:     v.GetString("api_key"),
		ListenAddr: v.GetString("listen_addr"),
		Redis: RedisConfig{
			Host:     v.GetString("redis_host"),
			Port:     v.GetInt("redis_port"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		CacheBackend:      v.GetString("cache_backend"),
		CacheTTL:          v.GetDuration("cache_ttl"),
		UpstreamBaseURL:   v.GetString("upstream_base_url"),
		UpstreamTimeout:   v.GetDuration("upstream_timeout"),
		RequestTimeout:    v.GetDuration("request_timeout"),
		RateLimitRequests: v.GetInt("rate_limit_requests"),
		RateLimitWindow:   v.GetDuration("rate_limit_window"),
		RateLimitBackend:  v.GetString("rate_limit_backend"),
		LogLevel:          v.GetString("log_level"),
		LogPretty:         v.GetBool("log_pretty"),
		ShutdownTimeout:   v.GetDuration("shutdown_timeout"),
	}, nil
}

// mergeDotEnv merges a dotenv file if it exists.
func mergeDotEnv(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}

	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	// An explicit --config file picks its own type from the extension.
	v.SetConfigType("")
	return nil
}

// Validate checks everything needed to serve HTTP.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive (got %s)", c.ShutdownTimeout)
	}
	switch c.RateLimitBackend {
	case ratelimit.BackendRedis, ratelimit.BackendLocal:
	default:
		return fmt.Errorf("unknown rate_limit_backend %q", c.RateLimitBackend)
	}
	if err := c.RateLimit().Validate(); err != nil {
		return err
	}
	return c.ValidateLookup()
}

// ValidateLookup checks the settings a single profile lookup depends on.
func (c *Config) ValidateLookup() error {
	switch c.CacheBackend {
	case CacheBackendRedis, CacheBackendMemory:
	default:
		return fmt.Errorf("unknown cache_backend %q", c.CacheBackend)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive (got %s)", c.CacheTTL)
	}
	if c.UpstreamBaseURL == "" {
		return fmt.Errorf("upstream_base_url is required")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream_timeout must be positive (got %s)", c.UpstreamTimeout)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive (got %s)", c.RequestTimeout)
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		return fmt.Errorf("redis_port out of range (got %d)", c.Redis.Port)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// NeedsRedis reports whether any configured backend uses Redis.
func (c *Config) NeedsRedis() bool {
	return c.CacheBackend == CacheBackendRedis || c.RateLimitBackend == ratelimit.BackendRedis
}

// RateLimit returns the limiter settings.
func (c *Config) RateLimit() ratelimit.Config {
	return ratelimit.Config{
		Requests: c.RateLimitRequests,
		Window:   c.RateLimitWindow,
	}
}

// Logging returns the logger settings. Unknown levels fall back to info.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.LogLevel); err == nil {
		cfg.Level = level
	}
	cfg.Pretty = c.LogPretty
	return cfg
}
