package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"ai_gateway/internal/auth"
	"ai_gateway/internal/config"
	"ai_gateway/internal/logging"
	"ai_gateway/internal/metering"
	"ai_gateway/internal/middleware"
	"ai_gateway/internal/ratelimit"
	"ai_gateway/internal/storage"
)

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	DB        *storage.DB
	APIKeys   auth.APIKeyStore
	Metering  metering.Service
	RateLimit ratelimit.Limiter
	AccessLog *logging.AccessLogger
	Redis     *redis.Client
}

// NewRouter creates an HTTP router with all dependencies wired up
func NewRouter(cfg *config.Config) (*http.ServeMux, *Dependencies, error) {
	db, err := storage.NewDB(storage.DBConfig{
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.Migrate(context.Background()); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// Repositories
	accountRepo := storage.NewAccountRepository(db)
	apiKeyRepo := storage.NewAPIKeyRepository(db)
	logRepo := storage.NewRequestLogRepository(db)
	ledgerRepo := storage.NewLedgerRepository(db)

	// Rate limiting is Redis-backed when Redis is configured, noop otherwise.
	var redisClient *redis.Client
	var limiter ratelimit.Limiter = ratelimit.NewNoopLimiter()
	if cfg.Redis.Address != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit.PerMinute)
	}

	accessLog, err := logging.NewAccessLogger(
		cfg.AccessLogger.FilePathTemplate,
		cfg.AccessLogger.MaxSize,
		cfg.AccessLogger.MaxFiles,
		cfg.AccessLogger.BufferSize,
		cfg.AccessLogger.FlushInterval,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize access logger: %w", err)
	}

	deps := &Dependencies{
		DB:        db,
		APIKeys:   auth.NewVerifier(apiKeyRepo, accountRepo),
		Metering:  metering.NewMeteringService(ledgerRepo, logRepo, cfg.CreditCost),
		RateLimit: limiter,
		AccessLog: accessLog,
		Redis:     redisClient,
	}

	mux := http.NewServeMux()
	registerRoutes(mux, deps, cfg, accountRepo, apiKeyRepo, logRepo)

	return mux, deps, nil
}

func registerRoutes(mux *http.ServeMux, deps *Dependencies, cfg *config.Config,
	accountRepo *storage.AccountRepository, apiKeyRepo *storage.APIKeyRepository,
	logRepo *storage.RequestLogRepository) {

	// Protected completion endpoint - bearer credential, verified in-handler
	// so that payload validation can run before any credential scan.
	completions := NewCompletionsHandler(deps.APIKeys, deps.Metering, deps.RateLimit, deps.AccessLog)
	mux.Handle("/v1/chat/completions", completions)

	// Dashboard endpoints - session token
	session := middleware.SessionMiddleware(cfg)
	keysHandler := NewKeysHandler(apiKeyRepo)
	logsHandler := NewLogsHandler(logRepo, accountRepo)

	mux.Handle("/api/keys/generate", session(http.HandlerFunc(keysHandler.Generate)))
	mux.Handle("/api/keys/current", session(http.HandlerFunc(keysHandler.Current)))
	mux.Handle("/api/logs", session(http.HandlerFunc(logsHandler.List)))
	mux.Handle("/api/logs/user", session(http.HandlerFunc(logsHandler.Account)))

	// Health check endpoint - public
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}
