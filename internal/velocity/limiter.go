// Package velocity caps how many intake requests one client may send per
// window, using Redis counters shared by every API instance.
package velocity

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/appointment-intake/pkg/logging"
)

var tracer = otel.Tracer("intake.internal.velocity")

// Result describes one counted request.
type Result struct {
	Allowed      bool
	CurrentCount int
	MaxAllowed   int
	WindowExpiry time.Time
}

// Limiter is a fixed-window counter keyed by client.
type Limiter struct {
	redis  *redis.Client
	logger *logging.Logger
	max    int
	window time.Duration
	prefix string
}

// NewLimiter allows max requests per window for each key.
func NewLimiter(redisClient *redis.Client, max int, window time.Duration, logger *logging.Logger) *Limiter {
	if logger == nil {
		logger = logging.Default()
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		redis:  redisClient,
		logger: logger,
		max:    max,
		window: window,
		prefix: "velocity:intake",
	}
}

// Check counts one request for key.
func (l *Limiter) Check(ctx context.Context, key string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "velocity.check_intake")
	defer span.End()
	span.SetAttributes(attribute.Int("velocity.max", l.max))

	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)
	count, expiry, err := l.incrementAndGet(ctx, redisKey)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("velocity: increment %s: %w", redisKey, err)
	}

	result := &Result{
		Allowed:      count <= l.max,
		CurrentCount: count,
		MaxAllowed:   l.max,
		WindowExpiry: expiry,
	}
	if !result.Allowed {
		l.logger.Warn("intake velocity exceeded", "key", key, "count", count, "max", l.max)
		span.SetAttributes(attribute.Bool("velocity.exceeded", true))
	}
	return result, nil
}

// Allow reports whether key is still within its window.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	res, err := l.Check(ctx, key)
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}

// Reset clears the counter for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.redis.Del(ctx, fmt.Sprintf("%s:%s", l.prefix, key)).Err()
}

func (l *Limiter) incrementAndGet(ctx context.Context, key string) (int, time.Time, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, err
	}

	// Set expiry only on first increment
	if count == 1 {
		l.redis.Expire(ctx, key, l.window)
	}

	ttl, err := l.redis.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = l.window
	}
	return int(count), time.Now().Add(ttl), nil
}
