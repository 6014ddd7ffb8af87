package database

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itzcole03/A1forBolt-sub001/internal/config"
)

func redisConfigFor(t *testing.T, mr *miniredis.Miniredis) config.RedisConfig {
	t.Helper()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	return config.RedisConfig{Host: mr.Host(), Port: port}
}

func TestNewPostgresConnection_InvalidDSN(t *testing.T) {
	db, err := NewPostgresConnection(config.DatabaseConfig{DatabaseURL: "invalid-url"})

	require.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "failed to parse database config")
}

func TestNewRedisConnection_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisConnection(redisConfigFor(t, mr))
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.HealthCheck(ctx))

	require.NoError(t, client.Set(ctx, "snapshot", "payload", time.Minute))

	got, err := client.Get(ctx, "snapshot")
	require.NoError(t, err)
	assert.Equal(t, "payload", got)

	n, err := client.Exists(ctx, "snapshot")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, client.Delete(ctx, "snapshot"))
	n, err = client.Exists(ctx, "snapshot")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestNewRedisConnection_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := redisConfigFor(t, mr)
	mr.Close()

	client, err := NewRedisConnection(cfg)

	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}
