package config

import (
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// DevJWTSecret signs staff sessions when JWT_SECRET is unset.
const DevJWTSecret = "encuestas-dev-secret"

// Config holds all configuration for the application.
type Config struct {
	AppEnv                string
	DBPath                string
	DBDriver              string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	HTTPAddr              string
	GRPCPort              int
	GRPCReflectionEnabled bool
	Timezone              string
	Location              *time.Location
	JWTSecret             string
	SessionTTL            time.Duration
}

// LoadFromEnv loads configuration from environment variables. Invalid values
// fall back to their defaults.
func LoadFromEnv() *Config {
	cfg := &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		DBPath:                getEnv("DB_PATH", "./data/encuestas.db"),
		DBDriver:              getEnv("DB_DRIVER", "sqlite3"),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		RedisDB:               getEnvInt("REDIS_DB", 0),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8000"),
		GRPCPort:              getEnvInt("GRPC_PORT", 50051),
		GRPCReflectionEnabled: getEnvBool("GRPC_REFLECTION_ENABLED", false),
		Timezone:              getEnv("TIMEZONE", "America/Santiago"),
		JWTSecret:             getEnv("JWT_SECRET", DevJWTSecret),
		SessionTTL:            getEnvDuration("SESSION_TTL", 12*time.Hour),
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.Local
	}
	cfg.Location = loc
	return cfg
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// DataSource is the sqlite DSN for DBPath with foreign keys enforced.
func (c *Config) DataSource() string {
	if c.DBPath == ":memory:" {
		return ":memory:?_foreign_keys=on"
	}
	return "file:" + c.DBPath + "?_foreign_keys=on&_busy_timeout=5000"
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
