package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/config"
)

func TestNewSelectsMemoryWithoutAddr(t *testing.T) {
	c, err := New(config.RedisConfig{})
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.(*Memory)
	assert.True(t, ok)
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, BaselineKey("example.com"), "<html></html>", time.Minute))
	require.NoError(t, m.Set(ctx, "forever", "v", 0))

	got, err := m.Get(ctx, BaselineKey("example.com"))
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", got)

	now = now.Add(2 * time.Minute)
	_, err = m.Get(ctx, BaselineKey("example.com"))
	assert.ErrorIs(t, err, ErrMiss)

	got, err = m.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, m.Close())
	_, err = m.Get(ctx, "forever")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCacheSweepsExpiredOnSet(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	for i := 0; i < 1000; i++ {
		require.NoError(t, m.Set(ctx, BaselineKey(fmt.Sprintf("site%d.com", i)), "<html></html>", time.Minute))
	}
	require.NoError(t, m.Set(ctx, "forever", "v", 0))
	assert.Equal(t, 1001, m.Len())

	now = now.Add(time.Hour)
	require.NoError(t, m.Set(ctx, BaselineKey("example.com"), "<html></html>", time.Minute))

	assert.Equal(t, 2, m.Len())
	_, err := m.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestBaselineKey(t *testing.T) {
	assert.Equal(t, "squatwatch:baseline:example.com", BaselineKey("example.com"))
}

func TestNewRedisUnreachable(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
	})
	assert.Error(t, err)
}

func TestRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	cfg := config.DefaultConfig().Redis
	cfg.Addr = endpoint
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Get(ctx, BaselineKey("example.com"))
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, BaselineKey("example.com"), "<html>base</html>", time.Minute))
	got, err := c.Get(ctx, BaselineKey("example.com"))
	require.NoError(t, err)
	assert.Equal(t, "<html>base</html>", got)

	require.NoError(t, c.Set(ctx, "short", "v", time.Second))
	time.Sleep(1500 * time.Millisecond)
	_, err = c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrMiss)
}
