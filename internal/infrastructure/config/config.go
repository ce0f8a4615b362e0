// Package config loads the front end's settings from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// JWTSecret verifies the access token's signature at the edge. When
	// empty the role claim is decoded without verification; the backend
	// still checks every call.
	JWTSecret string `env:"JWT_SECRET"`

	API     APIConfig
	Cookie  CookieConfig
	Search  SearchConfig
	Access  AccessConfig
	Limiter LimiterConfig

	Mongo MongoConfig
	Redis RedisConfig
}

type APIConfig struct {
	BaseURL string        `env:"API_BASE_URL, default=http://localhost:8000/api"`
	Timeout time.Duration `env:"API_TIMEOUT,  default=10s"`
}

type CookieConfig struct {
	Secure bool          `env:"COOKIE_SECURE,  default=false"`
	MaxAge time.Duration `env:"COOKIE_MAX_AGE, default=24h"`
}

type SearchConfig struct {
	Debounce time.Duration `env:"SEARCH_DEBOUNCE,  default=500ms"`
	CacheTTL time.Duration `env:"SEARCH_CACHE_TTL, default=30s"`
}

type AccessConfig struct {
	// TableFile optionally overrides the built-in route access table.
	TableFile string `env:"ROUTE_TABLE_FILE"`
}

type LimiterConfig struct {
	// Rate is login/register submissions per second per client IP.
	Rate  float64 `env:"LOGIN_RATE_LIMIT, default=1"`
	Burst int     `env:"LOGIN_RATE_BURST, default=5"`
}

// MongoConfig is optional: an empty URI disables the search audit log.
type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=evently"`
}

// RedisConfig is optional: an empty address disables caching and purchase
// deduplication.
type RedisConfig struct {
	Addr        string        `env:"REDIS_ADDR"`
	Password    string        `env:"REDIS_PASSWORD"`
	DB          int           `env:"REDIS_DB,           default=0"`
	PoolSize    int           `env:"REDIS_POOL_SIZE,    default=10"`
	DialTimeout time.Duration `env:"REDIS_DIAL_TIMEOUT, default=2s"`
}

// IsProduction reports whether the front end runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the front end cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("API_BASE_URL is required"))
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("API_BASE_URL %q must be an absolute http(s) URL", c.API.BaseURL))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("API_TIMEOUT must be positive"))
	}
	if c.Cookie.MaxAge <= 0 {
		errs = append(errs, errors.New("COOKIE_MAX_AGE must be positive"))
	}
	if c.Search.Debounce <= 0 {
		errs = append(errs, errors.New("SEARCH_DEBOUNCE must be positive"))
	}
	if c.Search.CacheTTL <= 0 {
		errs = append(errs, errors.New("SEARCH_CACHE_TTL must be positive"))
	}
	if c.Limiter.Rate <= 0 || c.Limiter.Burst <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT and LOGIN_RATE_BURST must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
