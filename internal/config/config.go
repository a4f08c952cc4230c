package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the gateway.
type Config struct {
	HTTPPort     string
	JWTSecret    []byte
	CreditCost   int
	Database     DatabaseConfig
	Redis        RedisConfig
	RateLimit    RateLimitConfig
	AccessLogger AccessLoggerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds Redis connection settings. An empty address
// disables Redis-backed features (rate limiting falls back to noop).
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RateLimitConfig holds per-account rate limit settings
type RateLimitConfig struct {
	PerMinute int // 0 = unlimited
}

// AccessLoggerConfig holds settings for the JSONL access logger
type AccessLoggerConfig struct {
	FilePathTemplate string
	MaxSize          int64
	MaxFiles         int
	BufferSize       int
	FlushInterval    time.Duration
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvInt64(key string, defaultValue int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	intVal, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return defaultValue
	}
	return intVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	creditCost := getEnvInt("CREDIT_COST", 5)
	if creditCost <= 0 {
		return nil, fmt.Errorf("CREDIT_COST must be positive, got %d", creditCost)
	}

	cfg := &Config{
		HTTPPort:   getEnvString("HTTP_PORT", "8080"),
		JWTSecret:  []byte(getEnvString("JWT_SECRET", "supersecretkey")),
		CreditCost: creditCost,
		Database: DatabaseConfig{
			URL:             dbURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		},
		Redis: RedisConfig{
			Address:      getEnvString("REDIS_ADDR", ""),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		RateLimit: RateLimitConfig{
			PerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		AccessLogger: AccessLoggerConfig{
			FilePathTemplate: getEnvString("ACCESS_LOG_TEMPLATE", "logs/access-%s.jsonl"),
			MaxSize:          getEnvInt64("ACCESS_LOG_MAX_SIZE", 10*1024*1024),
			MaxFiles:         getEnvInt("ACCESS_LOG_MAX_FILES", 5),
			BufferSize:       getEnvInt("ACCESS_LOG_BUFFER_SIZE", 1024),
			FlushInterval:    getEnvDuration("ACCESS_LOG_FLUSH_INTERVAL", 5*time.Second),
		},
	}

	return cfg, nil
}
