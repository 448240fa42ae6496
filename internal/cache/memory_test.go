package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("sess", time.Minute)

	_, err := c.Get(ctx, "a")
	assert.True(t, IsNotFound(err))

	require.NoError(t, c.Set(ctx, "a", "1", 0))
	v, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	ok, err := c.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "a"))
	ok, _ = c.Exists(ctx, "a")
	assert.False(t, ok)

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "memory", st.Driver)
	assert.EqualValues(t, 1, st.Hits)
	assert.EqualValues(t, 1, st.Misses)
}

func TestMemory_TTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("", 0)
	require.NoError(t, c.Set(ctx, "short", "x", 20*time.Millisecond))
	require.Eventually(t, func() bool {
		_, err := c.Get(ctx, "short")
		return IsNotFound(err)
	}, time.Second, 10*time.Millisecond)
}

func TestNew_Drivers(t *testing.T) {
	c, err := New(context.Background(), Config{Driver: "memory"})
	require.NoError(t, err)
	assert.NoError(t, c.Ping(context.Background()))

	_, err = New(context.Background(), Config{Driver: "memcached"})
	assert.Error(t, err)
}

func TestRedisOptions(t *testing.T) {
	o, err := redisOptions(Config{Addr: "redis://:pw@cache.internal:6380/2"})
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", o.Addr)
	assert.Equal(t, "pw", o.Password)
	assert.Equal(t, 2, o.DB)

	o, err = redisOptions(Config{Addr: "localhost", DB: 1})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", o.Addr)
	assert.Equal(t, 1, o.DB)

	_, err = redisOptions(Config{})
	assert.Error(t, err)
}
