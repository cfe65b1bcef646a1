package repository

import (
	"context"

	"mongodb-rest/internal/gateway/domain/model"

	"go.mongodb.org/mongo-driver/bson"
)

// Connection is a live session with one database of the store.
// Implementations report absence through the returned values, never as an
// error: FindOne returns nil, Update and Remove return false.
type Connection interface {
	// Database is the name this connection was opened for
	Database() string

	ListDatabaseNames(ctx context.Context) ([]string, error)
	ListCollectionNames(ctx context.Context) ([]string, error)

	Find(ctx context.Context, collection string) ([]model.Document, error)
	FindOne(ctx context.Context, collection string, id model.DocumentID) (model.Document, error)
	Insert(ctx context.Context, collection string, doc bson.M) (model.DocumentID, error)
	Update(ctx context.Context, collection string, id model.DocumentID, fields bson.M) (bool, error)
	Remove(ctx context.Context, collection string, id model.DocumentID) (bool, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// ConnectionSource hands out cached connections by database name
type ConnectionSource interface {
	Get(ctx context.Context, database string) (Connection, error)
}
