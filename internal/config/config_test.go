package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil without DATABASE_URL")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/gateway_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q, want 8080", cfg.HTTPPort)
	}
	if cfg.CreditCost != 5 {
		t.Errorf("CreditCost = %d, want 5", cfg.CreditCost)
	}
	if cfg.RateLimit.PerMinute != 60 {
		t.Errorf("RateLimit.PerMinute = %d, want 60", cfg.RateLimit.PerMinute)
	}
	if cfg.Redis.Address != "" {
		t.Errorf("Redis.Address = %q, want empty", cfg.Redis.Address)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("Database.MaxOpenConns = %d, want 25", cfg.Database.MaxOpenConns)
	}
	if cfg.AccessLogger.MaxSize != 10*1024*1024 {
		t.Errorf("AccessLogger.MaxSize = %d, want 10MiB", cfg.AccessLogger.MaxSize)
	}
	if cfg.AccessLogger.FlushInterval != 5*time.Second {
		t.Errorf("AccessLogger.FlushInterval = %v, want 5s", cfg.AccessLogger.FlushInterval)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/gateway_test")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("CREDIT_COST", "10")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("DB_CONN_MAX_LIFETIME", "90s")
	t.Setenv("JWT_SECRET", "custom-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTPPort != "9090" {
		t.Errorf("HTTPPort = %q, want 9090", cfg.HTTPPort)
	}
	if cfg.CreditCost != 10 {
		t.Errorf("CreditCost = %d, want 10", cfg.CreditCost)
	}
	if cfg.RateLimit.PerMinute != 0 {
		t.Errorf("RateLimit.PerMinute = %d, want 0", cfg.RateLimit.PerMinute)
	}
	if cfg.Redis.Address != "localhost:6379" {
		t.Errorf("Redis.Address = %q, want localhost:6379", cfg.Redis.Address)
	}
	if cfg.Database.ConnMaxLifetime != 90*time.Second {
		t.Errorf("Database.ConnMaxLifetime = %v, want 90s", cfg.Database.ConnMaxLifetime)
	}
	if string(cfg.JWTSecret) != "custom-secret" {
		t.Errorf("JWTSecret = %q, want custom-secret", cfg.JWTSecret)
	}
}

func TestLoad_RejectsNonPositiveCreditCost(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/gateway_test")
	t.Setenv("CREDIT_COST", "-1")

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil with negative CREDIT_COST")
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/gateway_test")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")
	t.Setenv("ACCESS_LOG_FLUSH_INTERVAL", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("Database.MaxOpenConns = %d, want default 25", cfg.Database.MaxOpenConns)
	}
	if cfg.AccessLogger.FlushInterval != 5*time.Second {
		t.Errorf("AccessLogger.FlushInterval = %v, want default 5s", cfg.AccessLogger.FlushInterval)
	}
}
