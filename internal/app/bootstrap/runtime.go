package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/appointment-intake/internal/config"
	httpmiddleware "github.com/wolfman30/appointment-intake/internal/http/middleware"
	"github.com/wolfman30/appointment-intake/internal/records"
	"github.com/wolfman30/appointment-intake/internal/velocity"
	"github.com/wolfman30/appointment-intake/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildRateLimiter prefers the shared Redis counter and falls back to a
// per-process token bucket. The returned func releases the limiter.
func BuildRateLimiter(redisClient *redis.Client, cfg *appconfig.Config, logger *logging.Logger) (httpmiddleware.Limiter, func()) {
	if cfg == nil || cfg.RateLimitPerMinute <= 0 {
		return nil, func() {}
	}
	if logger == nil {
		logger = logging.Default()
	}
	if redisClient != nil {
		logger.Info("rate limiting via redis", "per_minute", cfg.RateLimitPerMinute)
		return velocity.NewLimiter(redisClient, cfg.RateLimitPerMinute, time.Minute, logger), func() {}
	}
	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitPerMinute)
	logger.Info("rate limiting in memory", "per_minute", cfg.RateLimitPerMinute)
	return limiter, limiter.Close
}

// BuildRecordsRepository connects to Postgres when DATABASE_URL is set and
// keeps records in memory otherwise.
func BuildRecordsRepository(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (records.Repository, func(), error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Warn("DATABASE_URL not set; intake records kept in memory")
		return records.NewInMemoryRepository(), func() {}, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	logger.Info("intake records stored in postgres")
	return records.NewPostgresRepository(pool), pool.Close, nil
}
