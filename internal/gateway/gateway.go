package gateway

import (
	"context"
	"errors"

	httpadapter "mongodb-rest/internal/gateway/adapter/http"
	"mongodb-rest/internal/gateway/adapter/persistence"
	"mongodb-rest/internal/gateway/config"
	"mongodb-rest/internal/gateway/domain/model"
	"mongodb-rest/internal/gateway/domain/repository"
	"mongodb-rest/internal/gateway/usecase"
	"mongodb-rest/internal/shared/database"
	"mongodb-rest/internal/shared/eventbus"
	"mongodb-rest/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// GatewayModule wires the REST gateway: routing, dispatch, the connection
// cache and the change feed.
type GatewayModule struct {
	Config      *config.Config
	Logger      logger.Logger
	Router      *model.Router
	Connections *database.ConnectionManager[repository.Connection]
	EventBus    *eventbus.EventBus
	Dispatcher  *usecase.Dispatcher
	ChangeFeed  *usecase.ChangeFeed

	// Journal is nil unless a Redis client was supplied
	Journal *persistence.RedisChangeJournal
}

// NewGatewayModule creates the module. connect dials one store connection
// per database name; redisClient may be nil, which disables the journal.
func NewGatewayModule(
	cfg *config.Config,
	log logger.Logger,
	connect database.Connector[repository.Connection],
	redisClient redis.UniversalClient,
) (*GatewayModule, error) {
	if cfg == nil {
		return nil, errors.New("gateway config is required")
	}
	if connect == nil {
		return nil, errors.New("store connector is required")
	}
	log.Info("Initializing gateway module...")

	bus := eventbus.NewEventBusWithConfig(log, cfg.Events)
	connections := database.NewConnectionManager(connect, &cfg.Manager, log)

	var journal *persistence.RedisChangeJournal
	var changeJournal repository.ChangeJournal
	if redisClient != nil {
		journal = persistence.NewRedisChangeJournal(redisClient, cfg.Redis.StreamMaxLength, log)
		changeJournal = journal
		log.Info("Redis change journal enabled")
	}

	feed := usecase.NewChangeFeed(changeJournal, cfg.Feed.SubscriberBuffer, log)
	feed.Attach(bus)

	return &GatewayModule{
		Config:      cfg,
		Logger:      log,
		Router:      model.NewRouter(cfg.Routing.Prefix, cfg.Routing.DatabasesKeyword),
		Connections: connections,
		EventBus:    bus,
		Dispatcher:  usecase.NewDispatcher(connections, bus, cfg.Dispatcher, log),
		ChangeFeed:  feed,
		Journal:     journal,
	}, nil
}

// RegisterRoutes registers reserved endpoints first, then the catch-all
// resource handler.
func (m *GatewayModule) RegisterRoutes(router fiber.Router) {
	httpadapter.NewHealthHandler(m.HealthChecks(), m.Logger).RegisterRoutes(router)
	httpadapter.NewChangeFeedHandler(m.ChangeFeed, m.Config.Feed.PingInterval, m.Logger).RegisterRoutes(router)
	httpadapter.NewGatewayHandler(m.Router, m.Dispatcher, m.Config.Routing.Prefix, m.Logger).RegisterRoutes(router)

	m.Logger.Info("Gateway routes registered")
}

// HealthChecks returns the dependency checks served by /_health
func (m *GatewayModule) HealthChecks() map[string]httpadapter.HealthCheck {
	checks := map[string]httpadapter.HealthCheck{
		"mongodb": m.pingStore,
	}
	if m.Journal != nil {
		checks["redis"] = m.Journal.Ping
	}
	return checks
}

// HealthCheck runs every dependency check and returns the first failure
func (m *GatewayModule) HealthCheck(ctx context.Context) error {
	for name, check := range m.HealthChecks() {
		if err := check(ctx); err != nil {
			return errors.New(name + " health check failed: " + err.Error())
		}
	}
	return nil
}

func (m *GatewayModule) pingStore(ctx context.Context) error {
	admin := m.Config.Dispatcher.AdminDatabase
	if admin == "" {
		admin = "admin"
	}
	conn, err := m.Connections.Get(ctx, admin)
	if err != nil {
		return err
	}
	return conn.Ping(ctx)
}

// Stop closes change feed subscribers and every cached connection
func (m *GatewayModule) Stop(ctx context.Context) error {
	m.Logger.Info("Stopping gateway module...")
	if err := m.EventBus.Drain(ctx); err != nil {
		m.Logger.Warnf("Pending change events not delivered: %v", err)
	}
	m.ChangeFeed.Close()

	if err := m.Connections.CloseAll(ctx); err != nil {
		return err
	}
	m.Logger.Info("Gateway module stopped")
	return nil
}
