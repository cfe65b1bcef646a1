package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "localhost:3000", cfg.Server.Addr())
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 4*1024*1024, cfg.Server.BodyLimit)
	assert.Equal(t, uint64(10), cfg.Mongo.MaxPoolSize)
	assert.Equal(t, 10*time.Second, cfg.Mongo.ConnectionTimeout)
	assert.Equal(t, "databases", cfg.Routing.DatabasesKeyword)
	assert.Equal(t, "", cfg.Routing.Prefix)
	assert.Equal(t, 100, cfg.Manager.MaxConnections)
	assert.Equal(t, "admin", cfg.Dispatcher.AdminDatabase)
	assert.Equal(t, time.Duration(0), cfg.Dispatcher.OperationTimeout)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.GetAddr())
	assert.Equal(t, int64(10000), cfg.Redis.StreamMaxLength)
	assert.Equal(t, "logrus", cfg.Log.Backend)
	assert.Equal(t, 30*time.Second, cfg.Feed.PingInterval)
	assert.Equal(t, 3, cfg.Events.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Events.RetryDelay)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("API_PREFIX", "/api")
	t.Setenv("DATABASES_KEYWORD", "dbs")
	t.Setenv("MAX_CONNECTIONS", "5")
	t.Setenv("OPERATION_TIMEOUT", "2s")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
	assert.Equal(t, "/api", cfg.Routing.Prefix)
	assert.Equal(t, "dbs", cfg.Routing.DatabasesKeyword)
	assert.Equal(t, 5, cfg.Manager.MaxConnections)
	assert.Equal(t, 2*time.Second, cfg.Dispatcher.OperationTimeout)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SERVER_HOST=0.0.0.0\nLOG_BACKEND=zap\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("SERVER_HOST")
		os.Unsetenv("LOG_BACKEND")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "zap", cfg.Log.Backend)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("MAX_CONNECTIONS", "many")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	bad := *cfg
	bad.Routing.DatabasesKeyword = "a/b"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Mongo.URI = ""
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Mongo.MinPoolSize = 50
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Manager.MaxConnections = -1
	assert.Error(t, bad.Validate())
}

func TestNewRedisClient(t *testing.T) {
	client := NewRedisClient(&RedisConfig{Host: "cache", Port: "6380", Database: 2, PoolSize: 4})
	defer client.Close()

	assert.Equal(t, "cache:6380", client.Options().Addr)
	assert.Equal(t, 2, client.Options().DB)
	assert.Equal(t, 4, client.Options().PoolSize)
}
