package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	HostRedis HostRedisConfig
	Redis     RedisConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Browser   BrowserConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// HostRedisConfig is the Redis connection supplied by the surrounding
// application. It is read once at process start and never written.
type HostRedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	Database int
}

// Configured reports whether the host configuration is usable
func (h HostRedisConfig) Configured() bool {
	return h.Enabled && h.Host != ""
}

// RedisConfig holds pool sizing and timeouts applied to every connection attempt
type RedisConfig struct {
	ConnectTimeout time.Duration
	SocketTimeout  time.Duration
	MaxTotal       int
	MaxIdle        int
	MinIdle        int
}

// StoreConfig selects the backend of the plugin configuration document store
type StoreConfig struct {
	Type          string // "memory" or "postgres"
	ConfigMapName string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// BrowserConfig bounds the key browser endpoints
type BrowserConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// TelemetryConfig holds the optional profiling listener port. Zero disables it.
type TelemetryConfig struct {
	PprofPort int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
		},
		HostRedis: HostRedisConfig{
			Enabled:  getEnvBool("HOST_REDIS_ENABLED", false),
			Host:     getEnv("HOST_REDIS_HOST", ""),
			Port:     getEnvInt("HOST_REDIS_PORT", 6379),
			Password: getEnv("HOST_REDIS_PASSWORD", ""),
			Database: getEnvInt("HOST_REDIS_DATABASE", 0),
		},
		Redis: RedisConfig{
			ConnectTimeout: getEnvDuration("REDIS_CONNECT_TIMEOUT", 10*time.Second),
			SocketTimeout:  getEnvDuration("REDIS_SOCKET_TIMEOUT", 5*time.Second),
			MaxTotal:       getEnvInt("REDIS_POOL_MAX_TOTAL", 10),
			MaxIdle:        getEnvInt("REDIS_POOL_MAX_IDLE", 5),
			MinIdle:        getEnvInt("REDIS_POOL_MIN_IDLE", 1),
		},
		Store: StoreConfig{
			Type:          getEnv("STORE_TYPE", "memory"),
			ConfigMapName: getEnv("STORE_CONFIGMAP_NAME", "redis-connector-configmap"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "connector"),
			User:        getEnv("POSTGRES_USER", "connector"),
			Password:    getEnv("POSTGRES_PASSWORD", "connector"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 4),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 1),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Browser: BrowserConfig{
			DefaultLimit: getEnvInt("BROWSER_DEFAULT_LIMIT", 100),
			MaxLimit:     getEnvInt("BROWSER_MAX_LIMIT", 1000),
		},
		Telemetry: TelemetryConfig{
			PprofPort: getEnvInt("TELEMETRY_PPROF_PORT", 0),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.HostRedis.Port < 1 || c.HostRedis.Port > 65535 {
		return fmt.Errorf("invalid host redis port: %d", c.HostRedis.Port)
	}

	if c.HostRedis.Database < 0 {
		return fmt.Errorf("invalid host redis database: %d", c.HostRedis.Database)
	}

	if c.Redis.MaxTotal < 1 {
		return fmt.Errorf("redis pool max total must be positive")
	}

	if c.Redis.MinIdle > c.Redis.MaxIdle || c.Redis.MaxIdle > c.Redis.MaxTotal {
		return fmt.Errorf("redis pool sizes must satisfy min_idle <= max_idle <= max_total")
	}

	if c.Redis.ConnectTimeout <= 0 || c.Redis.SocketTimeout <= 0 {
		return fmt.Errorf("redis timeouts must be positive")
	}

	switch c.Store.Type {
	case "memory":
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			return fmt.Errorf("max_conns must be >= min_conns")
		}
	default:
		return fmt.Errorf("unknown store type: %s", c.Store.Type)
	}

	if c.Browser.DefaultLimit < 1 || c.Browser.MaxLimit < c.Browser.DefaultLimit {
		return fmt.Errorf("browser limits must satisfy 1 <= default_limit <= max_limit")
	}

	if c.Telemetry.PprofPort < 0 || c.Telemetry.PprofPort > 65535 {
		return fmt.Errorf("invalid pprof port: %d", c.Telemetry.PprofPort)
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
