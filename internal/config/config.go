package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mohamedkhairy/session-intel/internal/models"
)

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string

	// Session engine
	Session SessionConfig

	// Redis
	Redis RedisConfig

	// Delivery
	HTTP      HTTPConfig
	WSGateway WSGatewayConfig
	API       APIConfig
}

// SessionConfig holds the session table and driver cadence
type SessionConfig struct {
	TickInterval    time.Duration
	DefinitionsFile string
	Definitions     []models.SessionDefinition
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled         bool
	Host            string
	Port            int
	Password        string
	DB              int
	PoolSize        int
	MinIdleConns    int
	SnapshotKey     string
	SnapshotTTL     time.Duration
	SnapshotChannel string
	VerdictStream   string
}

// HTTPConfig holds the HTTP listener configuration
type HTTPConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// WSGatewayConfig holds WebSocket gateway configuration
type WSGatewayConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	MaxConnections int
}

// APIConfig holds REST API configuration
type APIConfig struct {
	RateLimitRPS int
	CORSOrigins  []string
}

// definitionsFile is the on-disk layout of SESSION_DEFINITIONS_FILE
type definitionsFile struct {
	Sessions []models.SessionDefinition `yaml:"sessions"`
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Session: SessionConfig{
			TickInterval:    getEnvAsDuration("SESSION_TICK_INTERVAL", 1*time.Second),
			DefinitionsFile: getEnv("SESSION_DEFINITIONS_FILE", ""),
		},
		Redis: RedisConfig{
			Enabled:         getEnvAsBool("REDIS_ENABLED", false),
			Host:            getEnv("REDIS_HOST", "localhost"),
			Port:            getEnvAsInt("REDIS_PORT", 6379),
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              getEnvAsInt("REDIS_DB", 0),
			PoolSize:        getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns:    getEnvAsInt("REDIS_MIN_IDLE_CONNS", 2),
			SnapshotKey:     getEnv("REDIS_SNAPSHOT_KEY", "sessions:latest"),
			SnapshotTTL:     getEnvAsDuration("REDIS_SNAPSHOT_TTL", 10*time.Second),
			SnapshotChannel: getEnv("REDIS_SNAPSHOT_CHANNEL", "sessions.snapshots"),
			VerdictStream:   getEnv("REDIS_VERDICT_STREAM", "sessions.verdicts"),
		},
		HTTP: HTTPConfig{
			Port:            getEnvAsInt("HTTP_PORT", 8080),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		WSGateway: WSGatewayConfig{
			ReadTimeout:    getEnvAsDuration("WS_READ_TIMEOUT", 60*time.Second),
			WriteTimeout:   getEnvAsDuration("WS_WRITE_TIMEOUT", 10*time.Second),
			PingInterval:   getEnvAsDuration("WS_PING_INTERVAL", 30*time.Second),
			MaxConnections: getEnvAsInt("WS_MAX_CONNECTIONS", 1000),
		},
		API: APIConfig{
			RateLimitRPS: getEnvAsInt("API_RATE_LIMIT_RPS", 100),
			CORSOrigins:  getEnvAsStringSlice("API_CORS_ORIGINS", []string{"*"}),
		},
	}

	definitions, err := LoadSessionDefinitions(cfg.Session.DefinitionsFile)
	if err != nil {
		return nil, err
	}
	cfg.Session.Definitions = definitions

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadSessionDefinitions reads the session table from a YAML file.
// An empty path returns the built-in table.
func LoadSessionDefinitions(path string) ([]models.SessionDefinition, error) {
	if path == "" {
		return models.DefaultSessionDefinitions(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session definitions %s: %w", path, err)
	}

	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse session definitions %s: %w", path, err)
	}

	return file.Sessions, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Session.TickInterval <= 0 {
		return fmt.Errorf("SESSION_TICK_INTERVAL must be positive")
	}
	if err := models.ValidateDefinitions(c.Session.Definitions); err != nil {
		return fmt.Errorf("session definitions: %w", err)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Redis.Enabled {
		if c.Redis.Host == "" {
			return fmt.Errorf("REDIS_HOST is required when REDIS_ENABLED is set")
		}
		if c.Redis.SnapshotKey == "" {
			return fmt.Errorf("REDIS_SNAPSHOT_KEY is required when REDIS_ENABLED is set")
		}
	}
	if c.WSGateway.MaxConnections <= 0 {
		return fmt.Errorf("WS_MAX_CONNECTIONS must be positive")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Split by comma and trim spaces
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
