package usecase

import (
	"context"
	"fmt"
	"sync"

	"mongodb-rest/internal/gateway/domain/model"
	"mongodb-rest/internal/gateway/domain/repository"
	apperrors "mongodb-rest/internal/shared/errors"
	"mongodb-rest/internal/shared/eventbus"
	"mongodb-rest/internal/shared/logger"

	"github.com/google/uuid"
)

// ChangeFeed fans change events out to live subscribers of a collection,
// journaling each event first when a journal is configured.
type ChangeFeed struct {
	journal repository.ChangeJournal
	logger  logger.Logger
	buffer  int

	mu          sync.RWMutex
	subscribers map[string]map[string]chan model.ChangeEvent

	bus     eventbus.EventBusInterface
	handles map[string]string
}

// NewChangeFeed creates a feed. journal may be nil, in which case events
// are delivered live only and Replay is unavailable.
func NewChangeFeed(journal repository.ChangeJournal, buffer int, log logger.Logger) *ChangeFeed {
	if buffer <= 0 {
		buffer = 16
	}
	return &ChangeFeed{
		journal:     journal,
		logger:      log.WithComponent("change_feed"),
		buffer:      buffer,
		subscribers: make(map[string]map[string]chan model.ChangeEvent),
		handles:     make(map[string]string),
	}
}

// Attach subscribes the feed to document write events on bus
func (f *ChangeFeed) Attach(bus eventbus.EventBusInterface) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.bus = bus
	for _, eventType := range eventbus.DocumentEventTypes {
		f.handles[eventType] = bus.Subscribe(eventType, f.handle)
	}
}

// Detach removes the feed's bus subscriptions
func (f *ChangeFeed) Detach() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bus == nil {
		return
	}
	for eventType, id := range f.handles {
		f.bus.UnsubscribeHandler(eventType, id)
	}
	f.handles = make(map[string]string)
	f.bus = nil
}

func (f *ChangeFeed) handle(ctx context.Context, event eventbus.Event) error {
	change, ok := event.Data().(model.ChangeEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for event %s", event.Data(), event.Type())
	}
	f.Publish(ctx, change)
	return nil
}

// Publish journals change, then delivers it to the collection's subscribers.
// A journal failure is logged and the event is still delivered live.
func (f *ChangeFeed) Publish(ctx context.Context, change model.ChangeEvent) {
	if f.journal != nil {
		token, err := f.journal.Append(ctx, change)
		if err != nil {
			f.logger.Warnf("Change event for %s not journaled: %v", change.Stream(), err)
		} else {
			change.ResumeToken = token
		}
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for id, ch := range f.subscribers[change.Stream()] {
		select {
		case ch <- change:
		default:
			f.logger.Warnf("Dropped change event for slow subscriber %s on %s", id, change.Stream())
		}
	}
}

// Subscribe registers a live subscriber for db/collection
func (f *ChangeFeed) Subscribe(database, collection string) (string, <-chan model.ChangeEvent) {
	id := uuid.NewString()
	ch := make(chan model.ChangeEvent, f.buffer)
	stream := model.Stream(database, collection)

	f.mu.Lock()
	if _, ok := f.subscribers[stream]; !ok {
		f.subscribers[stream] = make(map[string]chan model.ChangeEvent)
	}
	f.subscribers[stream][id] = ch
	f.mu.Unlock()

	f.logger.Debugf("Subscriber %s listening on %s", id, stream)
	return id, ch
}

// Unsubscribe removes the subscriber and closes its channel
func (f *ChangeFeed) Unsubscribe(database, collection, id string) {
	stream := model.Stream(database, collection)

	f.mu.Lock()
	defer f.mu.Unlock()

	subs, ok := f.subscribers[stream]
	if !ok {
		return
	}
	if ch, ok := subs[id]; ok {
		close(ch)
		delete(subs, id)
	}
	if len(subs) == 0 {
		delete(f.subscribers, stream)
	}
}

// SubscriberCount returns the number of live subscribers for db/collection
func (f *ChangeFeed) SubscriberCount(database, collection string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers[model.Stream(database, collection)])
}

// Replay returns journaled events for db/collection after token
func (f *ChangeFeed) Replay(ctx context.Context, database, collection string, token model.ResumeToken) ([]model.ChangeEvent, error) {
	if f.journal == nil {
		return nil, apperrors.NewServiceUnavailableError("change journal is not enabled").
			WithCause(apperrors.ErrJournalUnavailable)
	}
	return f.journal.Since(ctx, database, collection, token)
}

// Close detaches from the bus and closes every subscriber channel
func (f *ChangeFeed) Close() {
	f.Detach()

	f.mu.Lock()
	defer f.mu.Unlock()
	for stream, subs := range f.subscribers {
		for _, ch := range subs {
			close(ch)
		}
		delete(f.subscribers, stream)
	}
}
