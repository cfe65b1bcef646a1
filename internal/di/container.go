package di

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mongodb-rest/internal/gateway"
	"mongodb-rest/internal/gateway/config"
	"mongodb-rest/internal/gateway/domain/repository"
	"mongodb-rest/internal/shared/database"
	"mongodb-rest/internal/shared/logger"

	"github.com/redis/go-redis/v9"
)

// Container owns the process-wide services and their shutdown order
type Container struct {
	mu sync.RWMutex

	Config *config.Config
	Logger logger.Logger

	// RedisClient is nil when the change journal is disabled or unreachable
	RedisClient   *redis.Client
	GatewayModule *gateway.GatewayModule
}

// NewContainer creates a container for cfg
func NewContainer(cfg *config.Config, log logger.Logger) *Container {
	if log == nil {
		log = logger.NewLogger()
	}
	return &Container{
		Config: cfg,
		Logger: log,
	}
}

// InitializeRedis connects the change journal client when enabled. An
// unreachable Redis is logged and the gateway runs without a journal.
func (c *Container) InitializeRedis(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.Config.Redis.Enabled {
		c.Logger.Info("Redis change journal disabled")
		return nil
	}

	client := config.NewRedisClient(&c.Config.Redis)
	if err := client.Ping(ctx).Err(); err != nil {
		c.Logger.Warnf("Redis at %s unreachable, change journal disabled: %v", c.Config.Redis.GetAddr(), err)
		_ = client.Close()
		return nil
	}

	c.RedisClient = client
	c.Logger.Infof("Redis connection established at %s", c.Config.Redis.GetAddr())
	return nil
}

// InitializeGateway builds the gateway module. connect dials store
// connections by database name.
func (c *Container) InitializeGateway(connect database.Connector[repository.Connection]) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var redisClient redis.UniversalClient
	if c.RedisClient != nil {
		redisClient = c.RedisClient
	}

	module, err := gateway.NewGatewayModule(c.Config, c.Logger, connect, redisClient)
	if err != nil {
		return fmt.Errorf("failed to create gateway module: %w", err)
	}

	c.GatewayModule = module
	return nil
}

// GetGatewayModule returns the gateway module instance
func (c *Container) GetGatewayModule() *gateway.GatewayModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.GatewayModule
}

// HealthCheck performs health check on all initialized services
func (c *Container) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.GatewayModule == nil {
		return errors.New("gateway module not initialized")
	}
	return c.GatewayModule.HealthCheck(ctx)
}

// Cleanup stops services in reverse order of initialization
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.GatewayModule != nil {
		if err := c.GatewayModule.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop gateway module: %w", err))
		}
		c.GatewayModule = nil
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
		c.RedisClient = nil
	}

	return errors.Join(errs...)
}

// Close shuts down all services within the configured shutdown timeout
func (c *Container) Close() error {
	c.Logger.Info("Closing container resources...")

	timeout := 30 * time.Second
	if c.Config != nil && c.Config.Server.ShutdownTimeout > 0 {
		timeout = c.Config.Server.ShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := c.Cleanup(ctx); err != nil {
		c.Logger.Warnf("Cleanup errors occurred: %v", err)
		return err
	}

	c.Logger.Info("Container resources closed")
	return nil
}
