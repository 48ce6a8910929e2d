package velocity

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestLimiter_Check(t *testing.T) {
	_, client := setupTestRedis(t)
	limiter := NewLimiter(client, 3, time.Minute, nil)
	ctx := context.Background()

	tests := []struct {
		name        string
		key         string
		attempts    int
		wantAllowed bool
	}{
		{name: "first attempt allowed", key: "10.0.0.1", attempts: 1, wantAllowed: true},
		{name: "at limit allowed", key: "10.0.0.2", attempts: 3, wantAllowed: true},
		{name: "over limit blocked", key: "10.0.0.3", attempts: 4, wantAllowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result *Result
			var err error
			for i := 0; i < tt.attempts; i++ {
				result, err = limiter.Check(ctx, tt.key)
				require.NoError(t, err)
			}

			assert.Equal(t, tt.wantAllowed, result.Allowed)
			assert.Equal(t, tt.attempts, result.CurrentCount)
			assert.Equal(t, 3, result.MaxAllowed)
			assert.True(t, result.WindowExpiry.After(time.Now()))
		})
	}
}

func TestLimiter_WindowExpires(t *testing.T) {
	mr, client := setupTestRedis(t)
	limiter := NewLimiter(client, 1, time.Minute, nil)
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "10.0.0.9")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = limiter.Allow(ctx, "10.0.0.9")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(61 * time.Second)

	ok, err = limiter.Allow(ctx, "10.0.0.9")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiter_Reset(t *testing.T) {
	_, client := setupTestRedis(t)
	limiter := NewLimiter(client, 1, time.Minute, nil)
	ctx := context.Background()

	_, _ = limiter.Allow(ctx, "k")
	require.NoError(t, limiter.Reset(ctx, "k"))

	ok, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiter_RedisUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	limiter := NewLimiter(client, 1, time.Minute, nil)
	mr.Close()

	ok, err := limiter.Allow(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
}
