package mongodb

import (
	"context"
	"time"

	"mongodb-rest/internal/gateway/domain/repository"
	"mongodb-rest/internal/shared/database"
	"mongodb-rest/internal/shared/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config holds the store connection settings
type Config struct {
	URI               string        `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	ConnectionTimeout time.Duration `env:"CONNECTION_TIMEOUT" envDefault:"10s"`
	MaxPoolSize       uint64        `env:"MAX_POOL_SIZE" envDefault:"10"`
	MinPoolSize       uint64        `env:"MIN_POOL_SIZE" envDefault:"0"`
	AppName           string        `env:"MONGODB_APP_NAME" envDefault:"mongodb-rest"`
}

// ClientOptions builds driver options from cfg
func (cfg *Config) ClientOptions() *options.ClientOptions {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize)
	if cfg.ConnectionTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectionTimeout).
			SetServerSelectionTimeout(cfg.ConnectionTimeout)
	}
	if cfg.AppName != "" {
		opts.SetAppName(cfg.AppName)
	}
	return opts
}

// NewConnector returns a connector that opens one client per database name
// and verifies it with a ping before handing it out.
func NewConnector(cfg *Config, log logger.Logger) database.Connector[repository.Connection] {
	log = log.WithComponent("mongodb_connector")

	return func(ctx context.Context, name string) (repository.Connection, error) {
		if cfg.ConnectionTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.ConnectionTimeout)
			defer cancel()
		}

		client, err := mongo.Connect(ctx, cfg.ClientOptions())
		if err != nil {
			return nil, err
		}

		adapter := NewMongoClientAdapter(client)
		if err := adapter.Ping(ctx); err != nil {
			if discErr := client.Disconnect(context.Background()); discErr != nil {
				log.Warnf("Failed to disconnect unreachable client for %s: %v", name, discErr)
			}
			return nil, err
		}

		log.Infof("Connected to database %s", name)
		return NewConnection(adapter, name, log), nil
	}
}
