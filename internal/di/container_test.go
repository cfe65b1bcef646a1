package di

import (
	"context"
	"testing"
	"time"

	"mongodb-rest/internal/gateway/config"
	"mongodb-rest/internal/gateway/testutil"
	"mongodb-rest/internal/gateway/usecase"
	"mongodb-rest/internal/shared/database"
	"mongodb-rest/internal/shared/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:     config.ServerConfig{ShutdownTimeout: time.Second},
		Routing:    config.RoutingConfig{DatabasesKeyword: "databases"},
		Manager:    database.ManagerConfig{MaxConnections: 4},
		Dispatcher: usecase.DispatcherConfig{AdminDatabase: "admin"},
	}
}

func TestContainer_Lifecycle(t *testing.T) {
	store := testutil.NewMemoryStore()
	c := NewContainer(testConfig(), logger.NewLoggerWithConfig("error", "text"))

	assert.Error(t, c.HealthCheck(context.Background()))

	require.NoError(t, c.InitializeRedis(context.Background()))
	assert.Nil(t, c.RedisClient)

	require.NoError(t, c.InitializeGateway(store.Connect))
	module := c.GetGatewayModule()
	require.NotNil(t, module)
	assert.Nil(t, module.Journal)

	require.NoError(t, c.HealthCheck(context.Background()))
	assert.EqualValues(t, 1, store.Dials.Load())

	require.NoError(t, c.Close())
	assert.Nil(t, c.GetGatewayModule())
	assert.EqualValues(t, 1, store.Closes.Load())
}

func TestContainer_InitializeGatewayRequiresConnector(t *testing.T) {
	c := NewContainer(testConfig(), nil)
	assert.Error(t, c.InitializeGateway(nil))
}

func TestContainer_UnreachableRedisDisablesJournal(t *testing.T) {
	cfg := testConfig()
	cfg.Redis = config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: "1", MaxRetries: -1}
	c := NewContainer(cfg, logger.NewLoggerWithConfig("error", "text"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.InitializeRedis(ctx))
	assert.Nil(t, c.RedisClient)
}
