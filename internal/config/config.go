package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Catalog store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Security  SecurityConfig  `mapstructure:"security"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cache     CacheConfig     `mapstructure:"cache"`
	AI        AIConfig        `mapstructure:"ai"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Log       LogConfig       `mapstructure:"log"`
	Features  FeaturesConfig  `mapstructure:"features"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	EnableTLS       bool          `mapstructure:"enable_tls"`
	CertFile        string        `mapstructure:"cert_file"`
	KeyFile         string        `mapstructure:"key_file"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects and configures the scheme catalog store.
type DatabaseConfig struct {
	Driver        string `mapstructure:"driver"`
	Path          string `mapstructure:"path"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	// Max request body size in bytes
	MaxRequestBodySize int64 `mapstructure:"max_request_body_size"`
	// Allowed CORS origins (comma-separated)
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Rate    int  `mapstructure:"rate"`
	Window  int  `mapstructure:"window"` // in seconds
}

// CacheConfig configures the active scheme list cache.
type CacheConfig struct {
	Backend       string        `mapstructure:"backend"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// AIConfig locates the external AI eligibility service.
type AIConfig struct {
	ServiceURL string        `mapstructure:"service_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	Environment string `mapstructure:"environment"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// FeaturesConfig holds the initial state of the feature flags.
type FeaturesConfig struct {
	CacheEnabled      bool `mapstructure:"cache_enabled"`
	EventHooksEnabled bool `mapstructure:"event_hooks_enabled"`
	AIMatching        bool `mapstructure:"ai_matching"`
}

var defaults = map[string]any{
	"server.port":                    "5000",
	"server.host":                    "",
	"server.enable_tls":              false,
	"server.cert_file":               "",
	"server.key_file":                "",
	"server.shutdown_timeout":        "10s",
	"database.driver":                DriverSQLite,
	"database.path":                  "./jansahyog.db",
	"database.mongo_uri":             "mongodb://localhost:27017",
	"database.mongo_database":        "welfare",
	"security.max_request_body_size": int64(10 << 20),
	"security.allowed_origins":       "*",
	"rate_limit.enabled":             true,
	"rate_limit.rate":                100,
	"rate_limit.window":              60,
	"cache.backend":                  CacheMemory,
	"cache.redis_addr":               "localhost:6379",
	"cache.redis_password":           "",
	"cache.redis_db":                 0,
	"cache.ttl":                      "5m",
	"ai.service_url":                 "http://localhost:8000",
	"ai.timeout":                     "10s",
	"tracing.enabled":                false,
	"tracing.endpoint":               "http://localhost:14268/api/traces",
	"tracing.environment":            "development",
	"log.level":                      "info",
	"log.format":                     "console",
	"features.cache_enabled":         true,
	"features.event_hooks_enabled":   true,
	"features.ai_matching":           true,
}

// Extra environment names kept for deployments of the previous backend.
var envAliases = map[string][]string{
	"server.port":              {"SERVER_PORT", "BACKEND_PORT"},
	"security.allowed_origins": {"SECURITY_ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
	"database.mongo_uri":       {"DATABASE_MONGO_URI", "MONGODB_URI"},
}

// LoadConfig loads configuration from defaults, an optional config file
// (YAML or JSON) and environment variables, in increasing precedence.
// A .env file in the working directory is loaded first when present.
func LoadConfig(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, nil
}

// AllowedOrigins splits the configured CORS origins.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.Security.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required")
		}
	case DriverMongo:
		if c.Database.MongoURI == "" || c.Database.MongoDatabase == "" {
			return fmt.Errorf("mongo uri and database are required")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("redis address is required")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}

	if c.Server.EnableTLS && (c.Server.CertFile == "" || c.Server.KeyFile == "") {
		return fmt.Errorf("tls requires both cert and key files")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 {
			return fmt.Errorf("rate limit rate must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}

	if c.AI.ServiceURL != "" && c.AI.Timeout <= 0 {
		return fmt.Errorf("ai timeout must be positive")
	}

	if c.Security.MaxRequestBodySize <= 0 {
		return fmt.Errorf("max request body size must be positive")
	}

	return nil
}
