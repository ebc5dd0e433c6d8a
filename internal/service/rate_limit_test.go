package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"music_stream/internal/repository"
	"music_stream/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimit_Local(t *testing.T) {
	svc := NewRateLimitService(nil, 3, logger.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, _, err := svc.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, remaining, err := svc.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, remaining)

	ok, _, err = svc.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimit_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	svc := NewRateLimitService(repository.NewRateLimitRepository(rdb, logger.Nop()), 2, logger.Nop())
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		ok, _, err := svc.Allow(ctx, "client")
		require.NoError(t, err)
		assert.Equal(t, want, ok, fmt.Sprintf("request %d", i))
	}

	mr.FastForward(2 * time.Minute)
	ok, remaining, err := svc.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)
	assert.Equal(t, 2, svc.Limit())
}
