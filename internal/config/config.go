package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Zara      ZaraConfig      `mapstructure:"zara"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Refresh   RefreshConfig   `mapstructure:"refresh"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	Host           string `mapstructure:"host"`
	RequestTimeout int    `mapstructure:"request_timeout"`
}

// ZaraConfig holds the upstream category endpoint configuration
type ZaraConfig struct {
	BaseURL              string   `mapstructure:"base_url"`
	CategoriesPath       string   `mapstructure:"categories_path"`
	Timeout              int      `mapstructure:"timeout"`
	MaxRetries           int      `mapstructure:"max_retries"`
	MaxRequestsPerSecond int      `mapstructure:"max_requests_per_second"`
	CircuitBreakerDelay  int      `mapstructure:"circuit_breaker_delay"`
	Proxies              []string `mapstructure:"proxies"`

	// Browser-like headers sent with every request
	UserAgent      string `mapstructure:"user_agent"`
	Accept         string `mapstructure:"accept"`
	AcceptLanguage string `mapstructure:"accept_language"`
}

// ExtractorConfig bounds the JSON tree walk
type ExtractorConfig struct {
	MaxDepth int `mapstructure:"max_depth"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Password      string `mapstructure:"password"`
	Database      int    `mapstructure:"database"`
	CacheTTL      int    `mapstructure:"cache_ttl"`
	ConsumerGroup string `mapstructure:"consumer_group"`
	MinIdleTime   int    `mapstructure:"min_idle_time"`
}

// RefreshConfig controls the snapshot workers and scheduler
type RefreshConfig struct {
	Workers  int `mapstructure:"workers"`
	Interval int `mapstructure:"interval"`
}

// LogConfig controls logrus output
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config.yaml from path (or the working directory when path is
// empty) with environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.request_timeout", 60)

	v.SetDefault("zara.base_url", "https://www.zara.com")
	v.SetDefault("zara.categories_path", "/az/ru/categories?ajax=true")
	v.SetDefault("zara.timeout", 30)
	v.SetDefault("zara.max_retries", 2)
	v.SetDefault("zara.max_requests_per_second", 5)
	v.SetDefault("zara.circuit_breaker_delay", 600)
	v.SetDefault("zara.proxies", []string{})
	v.SetDefault("zara.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("zara.accept", "application/json, text/javascript, */*; q=0.01")
	v.SetDefault("zara.accept_language", "az,en;q=0.9")

	v.SetDefault("extractor.max_depth", 512)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "zara")
	v.SetDefault("database.user", "zara_user")
	v.SetDefault("database.password", "zara_pass")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.cache_ttl", 300)
	v.SetDefault("redis.consumer_group", "zara_consumer")
	v.SetDefault("redis.min_idle_time", 120)

	v.SetDefault("refresh.workers", 1)
	v.SetDefault("refresh.interval", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate rejects values the application cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Zara.BaseURL == "" {
		return fmt.Errorf("zara.base_url is required")
	}
	if c.Zara.Timeout <= 0 {
		return fmt.Errorf("zara.timeout must be > 0")
	}
	if c.Zara.MaxRetries < 0 {
		return fmt.Errorf("zara.max_retries must be >= 0")
	}
	if c.Zara.MaxRequestsPerSecond < 0 {
		return fmt.Errorf("zara.max_requests_per_second must be >= 0")
	}
	if c.Extractor.MaxDepth <= 0 {
		return fmt.Errorf("extractor.max_depth must be > 0")
	}
	if c.Redis.Enabled && c.Redis.MinIdleTime <= 0 {
		return fmt.Errorf("redis.min_idle_time must be > 0")
	}
	if c.Refresh.Workers < 0 {
		return fmt.Errorf("refresh.workers must be >= 0")
	}
	if c.Refresh.Interval < 0 {
		return fmt.Errorf("refresh.interval must be >= 0")
	}
	if c.Refresh.Interval > 0 && !c.Redis.Enabled {
		return fmt.Errorf("refresh.interval requires redis.enabled")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Address is the listen address of the HTTP server.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CategoriesURL is the full URL of the upstream category listing.
func (c ZaraConfig) CategoriesURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(c.CategoriesPath, "/")
}

func (c RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c RedisConfig) TTL() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// DSN is the pgx connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}
