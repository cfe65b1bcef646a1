package mongodb

import (
	"context"
	"reflect"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) ListDatabaseNames(ctx context.Context, filter interface{}) ([]string, error) {
	args := m.Called(ctx, filter)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func (m *MockClient) Database(name string) DatabaseInterface {
	return m.Called(name).Get(0).(DatabaseInterface)
}

func (m *MockClient) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockClient) Disconnect(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockDatabase struct {
	mock.Mock
}

func (m *MockDatabase) ListCollectionNames(ctx context.Context, filter interface{}) ([]string, error) {
	args := m.Called(ctx, filter)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func (m *MockDatabase) Collection(name string) CollectionInterface {
	return m.Called(name).Get(0).(CollectionInterface)
}

type MockCollection struct {
	mock.Mock
}

func (m *MockCollection) InsertOne(ctx context.Context, doc interface{}) (interface{}, error) {
	args := m.Called(ctx, doc)
	if fn, ok := args.Get(0).(func(context.Context, interface{}) interface{}); ok {
		return fn(ctx, doc), args.Error(1)
	}
	return args.Get(0), args.Error(1)
}

func (m *MockCollection) FindOne(ctx context.Context, filter interface{}) SingleResultInterface {
	return m.Called(ctx, filter).Get(0).(SingleResultInterface)
}

func (m *MockCollection) UpdateOne(ctx context.Context, filter interface{}, update interface{}) (UpdateResultInterface, error) {
	args := m.Called(ctx, filter, update)
	res, _ := args.Get(0).(UpdateResultInterface)
	return res, args.Error(1)
}

func (m *MockCollection) DeleteOne(ctx context.Context, filter interface{}) (DeleteResultInterface, error) {
	args := m.Called(ctx, filter)
	res, _ := args.Get(0).(DeleteResultInterface)
	return res, args.Error(1)
}

func (m *MockCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (CursorInterface, error) {
	args := m.Called(ctx, filter)
	cur, _ := args.Get(0).(CursorInterface)
	return cur, args.Error(1)
}

// stubSingleResult decodes a fixed document or returns err
type stubSingleResult struct {
	doc bson.M
	err error
}

func (s *stubSingleResult) Decode(v interface{}) error {
	if s.err != nil {
		return s.err
	}
	reflect.ValueOf(v).Elem().Set(reflect.ValueOf(s.doc))
	return nil
}

// stubCursor yields a fixed batch of documents
type stubCursor struct {
	docs   []bson.M
	err    error
	closed bool
}

func (s *stubCursor) All(ctx context.Context, results interface{}) error {
	if s.err != nil {
		return s.err
	}
	reflect.ValueOf(results).Elem().Set(reflect.ValueOf(s.docs))
	return nil
}

func (s *stubCursor) Close(ctx context.Context) error {
	s.closed = true
	return nil
}
