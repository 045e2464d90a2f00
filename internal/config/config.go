package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/joshdurbin/shortlink/internal/auth"
	"github.com/joshdurbin/shortlink/internal/logging"
	"github.com/joshdurbin/shortlink/internal/ratelimit"
	"github.com/joshdurbin/shortlink/internal/shortener"
)

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const minSecretLength = 16

// Config holds the application configuration
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Database  DatabaseConfig   `yaml:"database"`
	Redis     RedisConfig      `yaml:"redis"`
	Shortener shortener.Config `yaml:"shortener"`
	RateLimit ratelimit.Config `yaml:"ratelimit"`
	Cache     CacheConfig      `yaml:"cache"`
	Auth      auth.Config      `yaml:"auth"`
	Events    EventsConfig     `yaml:"events"`
	Logging   logging.Config   `yaml:"logging"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `yaml:"port"`
	BaseURL         string        `yaml:"base_url"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// TrustProxy takes the client address from X-Forwarded-For
	TrustProxy bool `yaml:"trust_proxy"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
}

// RedisConfig holds the shared counter store connection. An empty Addr keeps
// rate limit counters and token revocations in process.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CacheConfig holds lookup cache configuration
type CacheConfig struct {
	// TTL of cached lookups, 0 disables the cache
	TTL time.Duration `yaml:"ttl"`
}

// EventsConfig holds click event fan-out configuration. An empty NATSURL disables publishing.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			BaseURL:         "http://localhost:8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:   DriverSQLite,
			Path:     "shortlink.db",
			MaxConns: 10,
		},
		Shortener: shortener.DefaultConfig(),
		RateLimit: ratelimit.DefaultConfig(),
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Auth: auth.DefaultConfig(),
		Events: EventsConfig{
			Subject: "shortlink.clicks",
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load builds the configuration from defaults, the YAML file at path (if any),
// a .env file in the working directory, the environment and finally overrides.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.applyEnv(os.LookupEnv)

	for _, override := range overrides {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays the environment variables that commonly differ per deployment
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		c.Database.Driver = DriverPostgres
		c.Database.DSN = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
	if v, ok := lookup("REDIS_PASSWORD"); ok {
		c.Redis.Password = v
	}
	if v, ok := lookup("JWT_SECRET"); ok {
		c.Auth.Secret = v
	}
	if v, ok := lookup("NATS_URL"); ok {
		c.Events.NATSURL = v
	}
	if v, ok := lookup("SHORTLINK_BASE_URL"); ok && v != "" {
		c.Server.BaseURL = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		c.Server.Port = v
	}
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	if c.Server.BaseURL == "" {
		return fmt.Errorf("server base URL cannot be empty")
	}
	if !strings.HasPrefix(c.Server.BaseURL, "http://") && !strings.HasPrefix(c.Server.BaseURL, "https://") {
		return fmt.Errorf("server base URL must start with http:// or https://, got: %s", c.Server.BaseURL)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path cannot be empty")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database DSN cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unknown database driver: %q", c.Database.Driver)
	}

	if c.Shortener.Length < 4 || c.Shortener.Length > 32 {
		return fmt.Errorf("short code length must be between 4 and 32, got: %d", c.Shortener.Length)
	}
	if c.Shortener.MaxAttempts <= 0 {
		return fmt.Errorf("short code max attempts must be positive, got: %d", c.Shortener.MaxAttempts)
	}

	if err := c.RateLimit.Validate(); err != nil {
		return err
	}

	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache TTL cannot be negative, got: %v", c.Cache.TTL)
	}

	if len(c.Auth.Secret) < minSecretLength {
		return fmt.Errorf("JWT secret must be at least %d bytes", minSecretLength)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive, got: %v", c.Auth.TokenTTL)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format: %q", c.Logging.Format)
	}

	return nil
}
