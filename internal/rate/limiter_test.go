package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_PerKey(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "ip:1")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "hit %d", i)
	}
	res, err := l.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	other, err := l.Allow(ctx, "ip:2")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys do not share a bucket")
	assert.Equal(t, int64(2), other.Remaining)
}

func TestPool_ReusesLimiterPerConfig(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPool()

	_, err := p.AllowWithLimits(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	res, err := p.AllowWithLimits(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	res, err = p.AllowWithLimits(ctx, "k", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "a different limit gets its own limiter")
	assert.Len(t, p.limiters, 2)
}
