package repository

import (
	"context"
	"testing"
	"time"

	"music_stream/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitRepository_Hit(t *testing.T) {
	mr, rdb := newTestRedis(t)
	repo := NewRateLimitRepository(rdb, logger.Nop())
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, err := repo.Hit(ctx, "1.2.3.4", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, count)
	}

	assert.Equal(t, time.Minute, mr.TTL("ratelimit:1.2.3.4"))

	mr.FastForward(time.Minute + time.Second)

	count, err := repo.Hit(ctx, "1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
