package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ClientInterface is the part of *mongo.Client a connection uses
type ClientInterface interface {
	ListDatabaseNames(ctx context.Context, filter interface{}) ([]string, error)
	Database(name string) DatabaseInterface
	Ping(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// DatabaseInterface is the part of *mongo.Database a connection uses
type DatabaseInterface interface {
	ListCollectionNames(ctx context.Context, filter interface{}) ([]string, error)
	Collection(name string) CollectionInterface
}

// CollectionInterface is the part of *mongo.Collection a connection uses
type CollectionInterface interface {
	InsertOne(ctx context.Context, doc interface{}) (interface{}, error)
	FindOne(ctx context.Context, filter interface{}) SingleResultInterface
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) (UpdateResultInterface, error)
	DeleteOne(ctx context.Context, filter interface{}) (DeleteResultInterface, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (CursorInterface, error)
}

type SingleResultInterface interface {
	Decode(v interface{}) error
}
type UpdateResultInterface interface{ Matched() int64 }
type DeleteResultInterface interface{ Deleted() int64 }
type CursorInterface interface {
	All(ctx context.Context, results interface{}) error
	Close(ctx context.Context) error
}

// MongoClientAdapter makes *mongo.Client compatible with ClientInterface
type MongoClientAdapter struct {
	client *mongo.Client
}

func NewMongoClientAdapter(client *mongo.Client) *MongoClientAdapter {
	return &MongoClientAdapter{client: client}
}

func (m *MongoClientAdapter) ListDatabaseNames(ctx context.Context, filter interface{}) ([]string, error) {
	return m.client.ListDatabaseNames(ctx, filter)
}

func (m *MongoClientAdapter) Database(name string) DatabaseInterface {
	return &MongoDatabaseAdapter{db: m.client.Database(name)}
}

func (m *MongoClientAdapter) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *MongoClientAdapter) Disconnect(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// MongoDatabaseAdapter makes *mongo.Database compatible with DatabaseInterface
type MongoDatabaseAdapter struct {
	db *mongo.Database
}

func (m *MongoDatabaseAdapter) ListCollectionNames(ctx context.Context, filter interface{}) ([]string, error) {
	return m.db.ListCollectionNames(ctx, filter)
}

func (m *MongoDatabaseAdapter) Collection(name string) CollectionInterface {
	return NewMongoCollectionAdapter(m.db.Collection(name))
}

// MongoCollectionAdapter makes *mongo.Collection compatible with CollectionInterface
type MongoCollectionAdapter struct {
	col *mongo.Collection
}

func NewMongoCollectionAdapter(col *mongo.Collection) *MongoCollectionAdapter {
	return &MongoCollectionAdapter{col: col}
}

func (m *MongoCollectionAdapter) InsertOne(ctx context.Context, doc interface{}) (interface{}, error) {
	res, err := m.col.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	return res.InsertedID, nil
}

func (m *MongoCollectionAdapter) FindOne(ctx context.Context, filter interface{}) SingleResultInterface {
	return &MongoSingleResultAdapter{res: m.col.FindOne(ctx, filter)}
}

func (m *MongoCollectionAdapter) UpdateOne(ctx context.Context, filter interface{}, update interface{}) (UpdateResultInterface, error) {
	res, err := m.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	return &MongoUpdateResultAdapter{matched: res.MatchedCount}, nil
}

func (m *MongoCollectionAdapter) DeleteOne(ctx context.Context, filter interface{}) (DeleteResultInterface, error) {
	res, err := m.col.DeleteOne(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &MongoDeleteResultAdapter{deleted: res.DeletedCount}, nil
}

func (m *MongoCollectionAdapter) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (CursorInterface, error) {
	cur, err := m.col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

type MongoSingleResultAdapter struct {
	res *mongo.SingleResult
}

func (m *MongoSingleResultAdapter) Decode(v interface{}) error {
	return m.res.Decode(v)
}

// MongoUpdateResultAdapter wraps the matched count
type MongoUpdateResultAdapter struct {
	matched int64
}

func (m *MongoUpdateResultAdapter) Matched() int64 { return m.matched }

// MongoDeleteResultAdapter wraps the deleted count
type MongoDeleteResultAdapter struct {
	deleted int64
}

func (m *MongoDeleteResultAdapter) Deleted() int64 { return m.deleted }
