package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"mongodb-rest/internal/gateway/domain/model"
	apperrors "mongodb-rest/internal/shared/errors"
	"mongodb-rest/internal/shared/eventbus"
	"mongodb-rest/internal/shared/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockJournal struct {
	mock.Mock
}

func (m *mockJournal) Append(ctx context.Context, event model.ChangeEvent) (model.ResumeToken, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(model.ResumeToken), args.Error(1)
}

func (m *mockJournal) Since(ctx context.Context, database, collection string, token model.ResumeToken) ([]model.ChangeEvent, error) {
	args := m.Called(ctx, database, collection, token)
	events, _ := args.Get(0).([]model.ChangeEvent)
	return events, args.Error(1)
}

func testLogger() logger.Logger {
	return logger.NewLoggerWithConfig("error", "text")
}

func TestChangeFeed_DeliversToCollectionSubscribers(t *testing.T) {
	feed := NewChangeFeed(nil, 4, testLogger())
	id, events := feed.Subscribe("shop", "orders")
	_, other := feed.Subscribe("shop", "customers")
	assert.Equal(t, 1, feed.SubscriberCount("shop", "orders"))

	feed.Publish(context.Background(), model.ChangeEvent{Type: model.ChangeInserted, Database: "shop", Collection: "orders", ID: "a"})

	got := <-events
	assert.Equal(t, "a", got.ID)
	assert.Empty(t, got.ResumeToken)
	assert.Len(t, other, 0)

	feed.Unsubscribe("shop", "orders", id)
	_, open := <-events
	assert.False(t, open)
	assert.Equal(t, 0, feed.SubscriberCount("shop", "orders"))

	feed.Unsubscribe("shop", "orders", id)
}

func TestChangeFeed_JournalsBeforeDelivery(t *testing.T) {
	journal := &mockJournal{}
	journal.On("Append", mock.Anything, mock.MatchedBy(func(e model.ChangeEvent) bool { return e.ID == "a" })).
		Return(model.ResumeToken("1-0"), nil)

	feed := NewChangeFeed(journal, 4, testLogger())
	_, events := feed.Subscribe("shop", "orders")
	feed.Publish(context.Background(), model.ChangeEvent{Type: model.ChangeInserted, Database: "shop", Collection: "orders", ID: "a"})

	got := <-events
	assert.Equal(t, model.ResumeToken("1-0"), got.ResumeToken)
	journal.AssertExpectations(t)
}

func TestChangeFeed_JournalFailureStillDelivers(t *testing.T) {
	journal := &mockJournal{}
	journal.On("Append", mock.Anything, mock.Anything).Return(model.ResumeToken(""), errors.New("redis down"))

	feed := NewChangeFeed(journal, 4, testLogger())
	_, events := feed.Subscribe("shop", "orders")
	feed.Publish(context.Background(), model.ChangeEvent{Database: "shop", Collection: "orders", ID: "a"})

	got := <-events
	assert.Equal(t, "a", got.ID)
	assert.Empty(t, got.ResumeToken)
}

func TestChangeFeed_SlowSubscriberDropsEvents(t *testing.T) {
	feed := NewChangeFeed(nil, 1, testLogger())
	_, events := feed.Subscribe("shop", "orders")

	for i := 0; i < 3; i++ {
		feed.Publish(context.Background(), model.ChangeEvent{Database: "shop", Collection: "orders"})
	}
	assert.Len(t, events, 1)
}

func TestChangeFeed_Replay(t *testing.T) {
	feed := NewChangeFeed(nil, 1, testLogger())
	_, err := feed.Replay(context.Background(), "shop", "orders", "")
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatus(err))

	journal := &mockJournal{}
	journal.On("Since", mock.Anything, "shop", "orders", model.ResumeToken("1-0")).
		Return([]model.ChangeEvent{{ID: "b", ResumeToken: "2-0"}}, nil)

	feed = NewChangeFeed(journal, 1, testLogger())
	events, err := feed.Replay(context.Background(), "shop", "orders", "1-0")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "b", events[0].ID)
}

func TestChangeFeed_AttachToBus(t *testing.T) {
	bus := eventbus.NewEventBus(testLogger())
	feed := NewChangeFeed(nil, 4, testLogger())
	feed.Attach(bus)
	for _, eventType := range eventbus.DocumentEventTypes {
		assert.Equal(t, 1, bus.GetSubscriberCount(eventType))
	}

	_, events := feed.Subscribe("shop", "orders")
	change := model.ChangeEvent{Type: model.ChangeUpdated, Database: "shop", Collection: "orders", ID: "x"}
	require.NoError(t, bus.Publish(context.Background(), eventbus.NewBasicEvent(eventbus.EventTypeDocumentUpdated, change)))

	select {
	case got := <-events:
		assert.Equal(t, "x", got.ID)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	feed.Close()
	for _, eventType := range eventbus.DocumentEventTypes {
		assert.Equal(t, 0, bus.GetSubscriberCount(eventType))
	}
	_, open := <-events
	assert.False(t, open)
}

func TestChangeFeed_RejectsForeignPayload(t *testing.T) {
	feed := NewChangeFeed(nil, 1, testLogger())
	err := feed.handle(context.Background(), eventbus.NewBasicEvent(eventbus.EventTypeDocumentCreated, "nope"))
	assert.Error(t, err)
}
