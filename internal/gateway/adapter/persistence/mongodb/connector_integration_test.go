package mongodb

import (
	"context"
	"os"
	"testing"
	"time"

	"mongodb-rest/internal/gateway/domain/model"
	"mongodb-rest/internal/shared/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

const integrationDatabase = "mongodb_rest_test"

func integrationConfig(t *testing.T) *Config {
	t.Helper()
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set, skipping MongoDB integration test")
	}
	return &Config{URI: uri, ConnectionTimeout: 5 * time.Second, MaxPoolSize: 5}
}

func TestConnector_Integration_CRUD(t *testing.T) {
	cfg := integrationConfig(t)
	ctx := context.Background()
	connect := NewConnector(cfg, logger.NewLoggerWithConfig("error", "text"))

	conn, err := connect(ctx, integrationDatabase)
	require.NoError(t, err)
	defer func() { _ = conn.Close(ctx) }()

	coll := "connector_crud"
	id, err := conn.Insert(ctx, coll, bson.M{"item": int64(2)})
	require.NoError(t, err)

	doc, err := conn.FindOne(ctx, coll, id)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, model.EncodeID(id), doc["_id"])

	matched, err := conn.Update(ctx, coll, id, bson.M{"item": int64(50)})
	require.NoError(t, err)
	assert.True(t, matched)

	names, err := conn.ListCollectionNames(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, coll)

	dbs, err := conn.ListDatabaseNames(ctx)
	require.NoError(t, err)
	assert.Contains(t, dbs, integrationDatabase)

	deleted, err := conn.Remove(ctx, coll, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = conn.Remove(ctx, coll, id)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestConnector_Integration_Unreachable(t *testing.T) {
	if os.Getenv("MONGODB_URI") == "" {
		t.Skip("MONGODB_URI not set, skipping MongoDB integration test")
	}
	cfg := &Config{URI: "mongodb://127.0.0.1:1", ConnectionTimeout: 500 * time.Millisecond}
	connect := NewConnector(cfg, logger.NewLoggerWithConfig("error", "text"))

	_, err := connect(context.Background(), integrationDatabase)
	assert.Error(t, err)
}
