package database

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	apperrors "mongodb-rest/internal/shared/errors"
	"mongodb-rest/internal/shared/logger"

	"golang.org/x/sync/singleflight"
)

// Connection is an open handle to one named database
type Connection interface {
	Close(ctx context.Context) error
}

// Connector dials a new connection for the given database name
type Connector[C Connection] func(ctx context.Context, name string) (C, error)

// ManagerConfig holds configuration for connection management
type ManagerConfig struct {
	// MaxConnections bounds the number of cached databases; 0 means unbounded.
	// Dialing a new name at the bound evicts the least recently used one.
	MaxConnections int           `env:"MAX_CONNECTIONS" envDefault:"100"`
	CloseTimeout   time.Duration `env:"CLOSE_TIMEOUT" envDefault:"10s"`
}

// ConnectionManager owns the process-wide mapping from database name to an
// open connection. Connections are dialed lazily on first use and reused
// until evicted or CloseAll.
type ConnectionManager[C Connection] struct {
	connect     Connector[C]
	connections map[string]*cachedConn[C]
	mu          sync.RWMutex
	dials       singleflight.Group
	useClock    atomic.Uint64
	closed      bool
	logger      logger.Logger
	config      *ManagerConfig
}

// cachedConn records when its connection was last handed out, as a tick of
// the manager's use clock
type cachedConn[C Connection] struct {
	conn     C
	lastUsed atomic.Uint64
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager[C Connection](connect Connector[C], config *ManagerConfig, log logger.Logger) *ConnectionManager[C] {
	if config == nil {
		config = &ManagerConfig{
			MaxConnections: 100,
			CloseTimeout:   10 * time.Second,
		}
	}

	return &ConnectionManager[C]{
		connect:     connect,
		connections: make(map[string]*cachedConn[C]),
		logger:      log.WithComponent("connection_manager"),
		config:      config,
	}
}

// Get returns the connection for name, dialing it on first request.
// Concurrent first requests for the same name share a single dial.
func (m *ConnectionManager[C]) Get(ctx context.Context, name string) (C, error) {
	var zero C
	if name == "" {
		return zero, apperrors.NewValidationError("database name cannot be empty").
			WithCause(apperrors.ErrInvalidDatabaseID)
	}

	m.mu.RLock()
	if entry, exists := m.connections[name]; exists {
		m.touch(entry)
		m.mu.RUnlock()
		return entry.conn, nil
	}
	m.mu.RUnlock()

	// The dial outlives any single caller's cancellation since other
	// callers may be waiting on the same result.
	dialCtx := context.WithoutCancel(ctx)

	v, err, shared := m.dials.Do(name, func() (interface{}, error) {
		return m.dial(dialCtx, name)
	})
	if err != nil {
		return zero, err
	}
	if shared {
		m.logger.Debugf("Joined in-flight dial for database %s", name)
	}
	return v.(C), nil
}

// dial runs inside the singleflight group for name
func (m *ConnectionManager[C]) dial(ctx context.Context, name string) (C, error) {
	var zero C

	m.mu.RLock()
	entry, exists := m.connections[name]
	closed := m.closed
	m.mu.RUnlock()

	switch {
	case exists:
		m.touch(entry)
		return entry.conn, nil
	case closed:
		return zero, apperrors.NewConnectionError(name, apperrors.ErrManagerClosed)
	}

	started := time.Now()
	conn, err := m.connect(ctx, name)
	if err != nil {
		m.logger.WithFields(map[string]interface{}{
			"database": name,
			"error":    err.Error(),
		}).Error("Failed to connect to database")
		return zero, apperrors.NewConnectionError(name, err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.closeConn(ctx, name, conn)
		return zero, apperrors.NewConnectionError(name, apperrors.ErrManagerClosed)
	}
	evictedName, evicted, hasEvicted := m.evictOldest()
	entry = &cachedConn[C]{conn: conn}
	m.touch(entry)
	m.connections[name] = entry
	count := len(m.connections)
	m.mu.Unlock()

	if hasEvicted {
		m.logger.Infof("Evicting least recently used connection to %s", evictedName)
		m.closeConn(ctx, evictedName, evicted)
	}

	m.logger.WithFields(map[string]interface{}{
		"database":    name,
		"connections": count,
		"elapsed_ms":  time.Since(started).Milliseconds(),
	}).Info("Created new database connection")

	return conn, nil
}

func (m *ConnectionManager[C]) touch(entry *cachedConn[C]) {
	entry.lastUsed.Store(m.useClock.Add(1))
}

// evictOldest removes the least recently used entry when the cache is full.
// It must be called with mu held for writing.
func (m *ConnectionManager[C]) evictOldest() (string, C, bool) {
	var zero C
	if m.config.MaxConnections <= 0 || len(m.connections) < m.config.MaxConnections {
		return "", zero, false
	}

	var oldestName string
	var oldest *cachedConn[C]
	for name, entry := range m.connections {
		if oldest == nil || entry.lastUsed.Load() < oldest.lastUsed.Load() {
			oldestName, oldest = name, entry
		}
	}
	delete(m.connections, oldestName)
	return oldestName, oldest.conn, true
}

func (m *ConnectionManager[C]) closeConn(ctx context.Context, name string, conn C) {
	if m.config.CloseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.CloseTimeout)
		defer cancel()
	}
	if err := conn.Close(ctx); err != nil {
		m.logger.Warnf("Failed to close connection to %s: %v", name, err)
	}
}

// CloseAll closes every cached connection. Later calls to Get fail.
func (m *ConnectionManager[C]) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	connections := m.connections
	m.connections = make(map[string]*cachedConn[C])
	m.closed = true
	m.mu.Unlock()

	if m.config.CloseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.CloseTimeout)
		defer cancel()
	}

	var errs []error
	for name, entry := range connections {
		if err := entry.conn.Close(ctx); err != nil {
			m.logger.Errorf("Failed to close connection to %s: %v", name, err)
			errs = append(errs, err)
		}
	}

	m.logger.Infof("Closed %d database connections", len(connections))
	return errors.Join(errs...)
}

// Count returns the number of cached connections
func (m *ConnectionManager[C]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// Names returns the cached database names in sorted order
func (m *ConnectionManager[C]) Names() []string {
	m.mu.RLock()
	names := make([]string, 0, len(m.connections))
	for name := range m.connections {
		names = append(names, name)
	}
	m.mu.RUnlock()

	sort.Strings(names)
	return names
}
