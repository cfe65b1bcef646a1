package mongodb

import (
	"context"
	"errors"
	"fmt"

	"mongodb-rest/internal/gateway/domain/model"
	"mongodb-rest/internal/gateway/domain/repository"
	apperrors "mongodb-rest/internal/shared/errors"
	"mongodb-rest/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Connection is a client session bound to one database name
type Connection struct {
	client ClientInterface
	db     DatabaseInterface
	name   string
	logger logger.Logger
}

var _ repository.Connection = (*Connection)(nil)

// NewConnection binds client to the named database
func NewConnection(client ClientInterface, name string, log logger.Logger) *Connection {
	return &Connection{
		client: client,
		db:     client.Database(name),
		name:   name,
		logger: log.WithFields(map[string]interface{}{"database": name}),
	}
}

func (c *Connection) Database() string {
	return c.name
}

// ListDatabaseNames lists every database on the server the connection points at
func (c *Connection) ListDatabaseNames(ctx context.Context) ([]string, error) {
	names, err := c.client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil, apperrors.NewStoreError("list databases", err)
	}
	return names, nil
}

// ListCollectionNames lists the collections of the bound database
func (c *Connection) ListCollectionNames(ctx context.Context) ([]string, error) {
	names, err := c.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, apperrors.NewStoreError("list collections", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Find returns every document of the collection in natural order
func (c *Connection) Find(ctx context.Context, collection string) ([]model.Document, error) {
	cur, err := c.db.Collection(collection).Find(ctx, bson.D{})
	if err != nil {
		return nil, apperrors.NewStoreError("find", err)
	}
	defer cur.Close(ctx)

	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, apperrors.NewStoreError("find", err)
	}

	docs := make([]model.Document, 0, len(raw))
	for _, r := range raw {
		docs = append(docs, model.ToWire(r))
	}
	return docs, nil
}

// FindOne returns the document with id, or nil when there is none
func (c *Connection) FindOne(ctx context.Context, collection string, id model.DocumentID) (model.Document, error) {
	var raw bson.M
	err := c.db.Collection(collection).FindOne(ctx, byID(id)).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreError("find one", err)
	}
	return model.ToWire(raw), nil
}

// Insert stores doc. A missing _id is generated here so that the
// identifier is known even when the driver would not report it.
func (c *Connection) Insert(ctx context.Context, collection string, doc bson.M) (model.DocumentID, error) {
	if _, ok := doc[model.IDField]; !ok {
		doc[model.IDField] = primitive.NewObjectID()
	}

	inserted, err := c.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.DocumentID{}, apperrors.NewConflictError("document with this _id already exists", err).
				WithDetail("database", c.name).
				WithDetail("collection", collection)
		}
		return model.DocumentID{}, apperrors.NewStoreError("insert", err)
	}

	oid, ok := inserted.(primitive.ObjectID)
	if !ok {
		return model.DocumentID{}, apperrors.NewStoreError("insert", fmt.Errorf("unexpected _id type %T", inserted))
	}
	return model.DocumentIDFromObjectID(oid), nil
}

// Update applies fields as a $set merge and reports whether a document matched
func (c *Connection) Update(ctx context.Context, collection string, id model.DocumentID, fields bson.M) (bool, error) {
	res, err := c.db.Collection(collection).UpdateOne(ctx, byID(id), bson.M{"$set": fields})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, apperrors.NewConflictError("update violates a unique index", err)
		}
		return false, apperrors.NewStoreError("update", err)
	}
	return res.Matched() > 0, nil
}

// Remove deletes the document with id and reports whether one was deleted
func (c *Connection) Remove(ctx context.Context, collection string, id model.DocumentID) (bool, error) {
	res, err := c.db.Collection(collection).DeleteOne(ctx, byID(id))
	if err != nil {
		return false, apperrors.NewStoreError("remove", err)
	}
	return res.Deleted() > 0, nil
}

// Ping checks that the server is reachable
func (c *Connection) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

// Close disconnects the underlying client
func (c *Connection) Close(ctx context.Context) error {
	c.logger.Debug("Disconnecting database client")
	return c.client.Disconnect(ctx)
}

func byID(id model.DocumentID) bson.M {
	return bson.M{model.IDField: id.ObjectID()}
}
