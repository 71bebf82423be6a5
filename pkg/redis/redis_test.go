package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipIfNoIntegration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}
}

func getTestConfig() *Config {
	cfg := DefaultConfig()
	if host := os.Getenv("TEST_REDIS_HOST"); host != "" {
		cfg.Host = host
	}
	if password := os.Getenv("TEST_REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
	cfg.MaxRetries = 1
	cfg.RetryInterval = 100 * time.Millisecond
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6379, cfg.Port)
	assert.Equal(t, "localhost:6379", cfg.Addr())
}

func TestConfig_Options(t *testing.T) {
	cfg := &Config{Host: "cache", Port: 6380, DB: 2, PoolSize: 7}
	opts := cfg.options()
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
}

func TestNewClient_Unreachable(t *testing.T) {
	cfg := &Config{
		Host:          "127.0.0.1",
		Port:          1,
		MaxRetries:    0,
		RetryInterval: 10 * time.Millisecond,
		DialTimeout:   200 * time.Millisecond,
	}
	_, err := NewClient(context.Background(), cfg)
	assert.Error(t, err)
}

func TestLock_Integration(t *testing.T) {
	skipIfNoIntegration(t)

	ctx := context.Background()
	client, err := NewClient(ctx, getTestConfig())
	require.NoError(t, err)
	defer client.Close()

	key := "test:lock:" + time.Now().Format("150405.000000")
	defer client.Del(ctx, key)

	first, err := client.TryLock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := client.TryLock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	assert.Nil(t, second, "lock must have a single holder")

	require.NoError(t, first.Release(ctx))
	assert.ErrorIs(t, first.Release(ctx), ErrLockNotHeld)

	third, err := client.TryLock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	assert.NotNil(t, third)
}

func TestLockExtend_Integration(t *testing.T) {
	skipIfNoIntegration(t)

	ctx := context.Background()
	client, err := NewClient(ctx, getTestConfig())
	require.NoError(t, err)
	defer client.Close()

	key := "test:lock-extend:" + time.Now().Format("150405.000000")
	defer client.Del(ctx, key)

	lock, err := client.TryLock(ctx, key, time.Second)
	require.NoError(t, err)
	require.NotNil(t, lock)

	require.NoError(t, lock.Extend(ctx, time.Minute))
	ttl, err := client.Client().PTTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 30*time.Second)

	require.NoError(t, lock.Release(ctx))
	assert.ErrorIs(t, lock.Extend(ctx, time.Minute), ErrLockNotHeld)
}
