package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/dpp-browser/backend/internal/config"
)

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2, time.Hour)

	require.NoError(t, m.Set(ctx, "a", []byte("1")))
	require.NoError(t, m.Set(ctx, "b", []byte("2")))
	_, err := m.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, m.Set(ctx, "c", []byte("3")))

	_, err = m.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrMiss)
	v, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
	assert.Equal(t, 2, m.Len())
}

func TestMemoryExpires(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(4, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", []byte("v")))
	now = now.Add(59 * time.Second)
	_, err := m.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryClear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0, 0)
	require.NoError(t, m.Set(ctx, "k", []byte("v")))
	require.NoError(t, m.Set(ctx, "k", []byte("w")))
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.Clear(ctx))
	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisGetSetWithTTL(t *testing.T) {
	ctx := context.Background()
	mr, rdb := setupRedis(t)
	c := NewRedis(rdb, "dpp:story:", time.Minute)

	_, err := c.Get(ctx, "B01_778_FAM_IT")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "B01_778_FAM_IT", []byte("C'era una volta")))
	v, err := c.Get(ctx, "B01_778_FAM_IT")
	require.NoError(t, err)
	assert.Equal(t, "C'era una volta", string(v))
	assert.True(t, mr.Exists("dpp:story:B01_778_FAM_IT"))
	assert.Equal(t, time.Minute, mr.TTL("dpp:story:B01_778_FAM_IT"))

	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "B01_778_FAM_IT")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisClearOnlyTouchesPrefix(t *testing.T) {
	ctx := context.Background()
	mr, rdb := setupRedis(t)
	stories := NewRedis(rdb, "dpp:story:", 0)
	audio := NewRedis(rdb, "dpp:audio:", 0)

	for i := 0; i < 250; i++ {
		require.NoError(t, stories.Set(ctx, fmt.Sprintf("k%d", i), []byte("x")))
	}
	require.NoError(t, audio.Set(ctx, "a", []byte("mp3")))

	require.NoError(t, stories.Clear(ctx))
	assert.Len(t, mr.Keys(), 1)
	_, err := audio.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestBuild(t *testing.T) {
	cfg := config.Default().Cache
	c, err := Build(cfg, nil, "story")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	cfg.Backend = "redis"
	_, err = Build(cfg, nil, "story")
	assert.Error(t, err)

	_, rdb := setupRedis(t)
	c, err = Build(cfg, rdb, "story")
	require.NoError(t, err)
	assert.Equal(t, "dpp:story:", c.(*Redis).prefix)

	cfg.Backend = "memcached"
	_, err = Build(cfg, nil, "story")
	assert.Error(t, err)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default().Cache
	cfg.RedisAddr = mr.Addr()

	rdb, err := NewRedisClient(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, rdb.Close())
}
