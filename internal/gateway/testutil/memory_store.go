package testutil

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"mongodb-rest/internal/gateway/domain/model"
	"mongodb-rest/internal/gateway/domain/repository"
	apperrors "mongodb-rest/internal/shared/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is an in-process document store shared by every connection
// it dials. It mirrors the store semantics the gateway relies on: implicit
// collection creation, $set merges and duplicate _id rejection.
type MemoryStore struct {
	mu        sync.Mutex
	databases map[string]map[string]*memoryCollection

	// Dials counts successful Connect calls
	Dials atomic.Int32
	// Closes counts Close calls across all connections
	Closes atomic.Int32

	// DialErr, when set, makes Connect fail for every name
	DialErr error
	// OpErr, when set, makes every CRUD call fail
	OpErr error
}

type memoryCollection struct {
	order []primitive.ObjectID
	docs  map[primitive.ObjectID]bson.M
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{databases: make(map[string]map[string]*memoryCollection)}
}

// Connect matches database.Connector[repository.Connection]
func (s *MemoryStore) Connect(ctx context.Context, name string) (repository.Connection, error) {
	if s.DialErr != nil {
		return nil, s.DialErr
	}
	s.Dials.Add(1)
	return &MemoryConnection{store: s, database: name}, nil
}

// Seed inserts doc directly, bypassing the gateway; it returns the _id used
func (s *MemoryStore) Seed(database, collection string, doc bson.M) primitive.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()

	oid, ok := doc[model.IDField].(primitive.ObjectID)
	if !ok {
		oid = primitive.NewObjectID()
	}
	stored := cloneDoc(doc)
	stored[model.IDField] = oid

	coll := s.collection(database, collection, true)
	if _, exists := coll.docs[oid]; !exists {
		coll.order = append(coll.order, oid)
	}
	coll.docs[oid] = stored
	return oid
}

// Raw returns a copy of the stored document, or nil
func (s *MemoryStore) Raw(database, collection string, oid primitive.ObjectID) bson.M {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collection(database, collection, false)
	if coll == nil || coll.docs[oid] == nil {
		return nil
	}
	return cloneDoc(coll.docs[oid])
}

// collection must be called with mu held
func (s *MemoryStore) collection(database, name string, create bool) *memoryCollection {
	db, ok := s.databases[database]
	if !ok {
		if !create {
			return nil
		}
		db = make(map[string]*memoryCollection)
		s.databases[database] = db
	}
	coll, ok := db[name]
	if !ok && create {
		coll = &memoryCollection{docs: make(map[primitive.ObjectID]bson.M)}
		db[name] = coll
	}
	return coll
}

// MemoryConnection is a MemoryStore view bound to one database
type MemoryConnection struct {
	store    *MemoryStore
	database string
	closed   atomic.Bool
}

var _ repository.Connection = (*MemoryConnection)(nil)

func (c *MemoryConnection) Database() string { return c.database }

func (c *MemoryConnection) ListDatabaseNames(ctx context.Context) ([]string, error) {
	if c.store.OpErr != nil {
		return nil, c.store.OpErr
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	names := make([]string, 0, len(c.store.databases))
	for name := range c.store.databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (c *MemoryConnection) ListCollectionNames(ctx context.Context) ([]string, error) {
	if c.store.OpErr != nil {
		return nil, c.store.OpErr
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	names := make([]string, 0)
	for name := range c.store.databases[c.database] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (c *MemoryConnection) Find(ctx context.Context, collection string) ([]model.Document, error) {
	if c.store.OpErr != nil {
		return nil, c.store.OpErr
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	docs := make([]model.Document, 0)
	coll := c.store.collection(c.database, collection, false)
	if coll == nil {
		return docs, nil
	}
	for _, oid := range coll.order {
		docs = append(docs, model.ToWire(coll.docs[oid]))
	}
	return docs, nil
}

func (c *MemoryConnection) FindOne(ctx context.Context, collection string, id model.DocumentID) (model.Document, error) {
	if c.store.OpErr != nil {
		return nil, c.store.OpErr
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	coll := c.store.collection(c.database, collection, false)
	if coll == nil {
		return nil, nil
	}
	doc, ok := coll.docs[id.ObjectID()]
	if !ok {
		return nil, nil
	}
	return model.ToWire(doc), nil
}

func (c *MemoryConnection) Insert(ctx context.Context, collection string, doc bson.M) (model.DocumentID, error) {
	if c.store.OpErr != nil {
		return model.DocumentID{}, c.store.OpErr
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	oid, ok := doc[model.IDField].(primitive.ObjectID)
	if !ok {
		oid = primitive.NewObjectID()
	}
	coll := c.store.collection(c.database, collection, true)
	if _, exists := coll.docs[oid]; exists {
		return model.DocumentID{}, apperrors.NewConflictError("document with this _id already exists", apperrors.ErrDuplicateKey)
	}

	stored := cloneDoc(doc)
	stored[model.IDField] = oid
	coll.docs[oid] = stored
	coll.order = append(coll.order, oid)
	return model.DocumentIDFromObjectID(oid), nil
}

func (c *MemoryConnection) Update(ctx context.Context, collection string, id model.DocumentID, fields bson.M) (bool, error) {
	if c.store.OpErr != nil {
		return false, c.store.OpErr
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	coll := c.store.collection(c.database, collection, false)
	if coll == nil {
		return false, nil
	}
	doc, ok := coll.docs[id.ObjectID()]
	if !ok {
		return false, nil
	}
	for k, v := range fields {
		doc[k] = v
	}
	return true, nil
}

func (c *MemoryConnection) Remove(ctx context.Context, collection string, id model.DocumentID) (bool, error) {
	if c.store.OpErr != nil {
		return false, c.store.OpErr
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	coll := c.store.collection(c.database, collection, false)
	if coll == nil {
		return false, nil
	}
	oid := id.ObjectID()
	if _, ok := coll.docs[oid]; !ok {
		return false, nil
	}
	delete(coll.docs, oid)
	for i, o := range coll.order {
		if o == oid {
			coll.order = append(coll.order[:i], coll.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (c *MemoryConnection) Ping(ctx context.Context) error {
	return c.store.OpErr
}

func (c *MemoryConnection) Close(ctx context.Context) error {
	if c.closed.CompareAndSwap(false, true) {
		c.store.Closes.Add(1)
	}
	return nil
}

// Closed reports whether Close was called
func (c *MemoryConnection) Closed() bool {
	return c.closed.Load()
}

func cloneDoc(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
