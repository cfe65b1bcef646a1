package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"mongodb-rest/internal/gateway/adapter/persistence/mongodb"
	"mongodb-rest/internal/gateway/usecase"
	"mongodb-rest/internal/shared/database"
	"mongodb-rest/internal/shared/eventbus"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" envDefault:"localhost"`
	Port            string        `env:"SERVER_PORT" envDefault:"3000"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	BodyLimit       int           `env:"BODY_LIMIT" envDefault:"4194304"`
	CORSOrigins     string        `env:"CORS_ORIGINS" envDefault:"*"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

// RoutingConfig controls how request paths map to resources
type RoutingConfig struct {
	// Prefix is stripped from every path before routing, e.g. "/api"
	Prefix string `env:"API_PREFIX" envDefault:""`
	// DatabasesKeyword is the single segment that lists databases
	DatabasesKeyword string `env:"DATABASES_KEYWORD" envDefault:"databases"`
}

// RedisConfig holds the change journal connection settings
type RedisConfig struct {
	Enabled         bool          `env:"REDIS_ENABLED" envDefault:"false"`
	Host            string        `env:"REDIS_HOST" envDefault:"localhost"`
	Port            string        `env:"REDIS_PORT" envDefault:"6379"`
	Password        string        `env:"REDIS_PASSWORD" envDefault:""`
	Database        int           `env:"REDIS_DB" envDefault:"0"`
	MaxRetries      int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	PoolSize        int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns    int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	EnableTLS       bool          `env:"REDIS_TLS" envDefault:"false"`
	ConnMaxIdleTime time.Duration `env:"REDIS_CONN_MAX_IDLE_TIME" envDefault:"30m"`
	StreamMaxLength int64         `env:"REDIS_STREAM_MAX_LEN" envDefault:"10000"`
}

// GetAddr returns the Redis address
func (r RedisConfig) GetAddr() string {
	return r.Host + ":" + r.Port
}

// LogConfig selects the logging backend
type LogConfig struct {
	Level   string `env:"LOG_LEVEL" envDefault:"info"`
	Format  string `env:"LOG_FORMAT" envDefault:"text"`
	Backend string `env:"LOG_BACKEND" envDefault:"logrus"`
}

// FeedConfig holds change feed settings
type FeedConfig struct {
	SubscriberBuffer int           `env:"FEED_SUBSCRIBER_BUFFER" envDefault:"64"`
	PingInterval     time.Duration `env:"FEED_PING_INTERVAL" envDefault:"30s"`
}

// Config holds all configuration for the gateway
type Config struct {
	Server     ServerConfig
	Routing    RoutingConfig
	Mongo      mongodb.Config
	Manager    database.ManagerConfig
	Dispatcher usecase.DispatcherConfig
	Redis      RedisConfig
	Feed       FeedConfig
	Events     eventbus.BusConfig
	Log        LogConfig
}

// Load reads optional .env files and then the environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load configuration from environment: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have no usable default
func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return errors.New("MONGODB_URI must not be empty")
	}
	if c.Routing.DatabasesKeyword == "" || strings.Contains(c.Routing.DatabasesKeyword, "/") {
		return fmt.Errorf("DATABASES_KEYWORD %q must be a single path segment", c.Routing.DatabasesKeyword)
	}
	if c.Manager.MaxConnections < 0 {
		return errors.New("MAX_CONNECTIONS must not be negative")
	}
	if c.Mongo.MinPoolSize > c.Mongo.MaxPoolSize && c.Mongo.MaxPoolSize != 0 {
		return errors.New("MIN_POOL_SIZE must not exceed MAX_POOL_SIZE")
	}
	if c.Dispatcher.OperationTimeout < 0 {
		return errors.New("OPERATION_TIMEOUT must not be negative")
	}
	return nil
}
