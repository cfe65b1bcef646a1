package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mongodb-rest/internal/shared/logger"

	"github.com/google/uuid"
)

// Event types published by the gateway after successful writes
const (
	EventTypeDocumentCreated = "document.created"
	EventTypeDocumentUpdated = "document.updated"
	EventTypeDocumentDeleted = "document.deleted"
)

// DocumentEventTypes lists every write event type
var DocumentEventTypes = []string{
	EventTypeDocumentCreated,
	EventTypeDocumentUpdated,
	EventTypeDocumentDeleted,
}

// Event represents a generic event
type Event interface {
	Type() string
	Data() interface{}
	Timestamp() time.Time
	Source() string
}

// Keyed is implemented by events that must be delivered in publish order
// relative to other events with the same key
type Keyed interface {
	Key() string
}

// Handler defines the event handler function type
type Handler func(ctx context.Context, event Event) error

// EventBusInterface defines the contract for event bus implementations
type EventBusInterface interface {
	Subscribe(eventType string, handler Handler) string
	UnsubscribeHandler(eventType string, subscriptionID string)
	Publish(ctx context.Context, event Event) error
	PublishAndForget(ctx context.Context, event Event)
	GetSubscriberCount(eventType string) int
}

// BusConfig holds configuration for the event bus
type BusConfig struct {
	// MaxRetries is the number of extra attempts for a failing handler
	MaxRetries int           `env:"EVENT_BUS_MAX_RETRIES" envDefault:"3"`
	RetryDelay time.Duration `env:"EVENT_BUS_RETRY_DELAY" envDefault:"100ms"`
}

// DefaultBusConfig returns default configuration
func DefaultBusConfig() BusConfig {
	return BusConfig{
		MaxRetries: 3,
		RetryDelay: 100 * time.Millisecond,
	}
}

type subscription struct {
	id      string
	handler Handler
}

type pendingEvent struct {
	ctx   context.Context
	event Event
}

// EventBus is an in-process publish/subscribe bus. Handlers of one event run
// in subscription order; a failing handler is retried and does not prevent
// later handlers from running.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]subscription

	// queues holds undelivered keyed events; a key has an entry only while
	// its worker goroutine runs
	queueMu sync.Mutex
	queues  map[string][]pendingEvent

	inflight sync.WaitGroup
	logger   logger.Logger
	config   BusConfig
}

// NewEventBus creates a new event bus with default configuration
func NewEventBus(log logger.Logger) *EventBus {
	return NewEventBusWithConfig(log, DefaultBusConfig())
}

// NewEventBusWithConfig creates a new event bus. log may be nil.
func NewEventBusWithConfig(log logger.Logger, config BusConfig) *EventBus {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	return &EventBus{
		handlers: make(map[string][]subscription),
		queues:   make(map[string][]pendingEvent),
		logger:   log.WithComponent("eventbus"),
		config:   config,
	}
}

// Subscribe adds a handler for a specific event type and returns its subscription ID
func (eb *EventBus) Subscribe(eventType string, handler Handler) string {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	id := uuid.NewString()
	eb.handlers[eventType] = append(eb.handlers[eventType], subscription{id: id, handler: handler})
	eb.logger.Debugf("Subscribed handler %s for event type: %s", id, eventType)
	return id
}

// UnsubscribeHandler removes a single handler previously returned by Subscribe
func (eb *EventBus) UnsubscribeHandler(eventType string, subscriptionID string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.handlers[eventType]
	for i, sub := range subs {
		if sub.id != subscriptionID {
			continue
		}
		// copy so in-flight publishes keep iterating their own snapshot
		remaining := make([]subscription, 0, len(subs)-1)
		remaining = append(remaining, subs[:i]...)
		remaining = append(remaining, subs[i+1:]...)
		if len(remaining) == 0 {
			delete(eb.handlers, eventType)
		} else {
			eb.handlers[eventType] = remaining
		}
		eb.logger.Debugf("Unsubscribed handler %s for event type: %s", subscriptionID, eventType)
		return
	}
}

// Publish runs every handler for the event and returns their joined errors
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	eb.mu.RLock()
	handlers := eb.handlers[event.Type()]
	eb.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}

	var errs []error
	for _, sub := range handlers {
		if err := eb.execute(ctx, event, sub); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// execute runs one handler, retrying until it succeeds, retries run out or
// ctx is done
func (eb *EventBus) execute(ctx context.Context, event Event, sub subscription) error {
	var lastErr error
	for attempt := 0; attempt <= eb.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("handler %s abandoned for %s: %w", sub.id, event.Type(), ctx.Err())
			case <-time.After(eb.config.RetryDelay):
			}
		}

		if lastErr = sub.handler(ctx, event); lastErr == nil {
			return nil
		}
		eb.logger.Warnf("Handler %s failed for event %s (attempt %d/%d): %v",
			sub.id, event.Type(), attempt+1, eb.config.MaxRetries+1, lastErr)
	}
	return fmt.Errorf("handler %s failed after %d attempts: %w", sub.id, eb.config.MaxRetries+1, lastErr)
}

// PublishAndForget publishes without waiting for handlers. Events sharing a
// Keyed key are delivered one at a time in call order; other events each get
// their own goroutine. Drain waits for all of them.
func (eb *EventBus) PublishAndForget(ctx context.Context, event Event) {
	eb.inflight.Add(1)

	keyed, ok := event.(Keyed)
	if !ok || keyed.Key() == "" {
		go func() {
			defer eb.inflight.Done()
			eb.deliver(ctx, event)
		}()
		return
	}

	key := keyed.Key()
	eb.queueMu.Lock()
	pending, running := eb.queues[key]
	eb.queues[key] = append(pending, pendingEvent{ctx: ctx, event: event})
	eb.queueMu.Unlock()

	if !running {
		go eb.runQueue(key)
	}
}

// runQueue delivers the key's events in order until the queue is empty
func (eb *EventBus) runQueue(key string) {
	for {
		eb.queueMu.Lock()
		pending := eb.queues[key]
		if len(pending) == 0 {
			delete(eb.queues, key)
			eb.queueMu.Unlock()
			return
		}
		next := pending[0]
		eb.queues[key] = pending[1:]
		eb.queueMu.Unlock()

		eb.deliver(next.ctx, next.event)
		eb.inflight.Done()
	}
}

func (eb *EventBus) deliver(ctx context.Context, event Event) {
	if err := eb.Publish(ctx, event); err != nil {
		eb.logger.Errorf("Failed to publish event %s: %v", event.Type(), err)
	}
}

// Drain waits for PublishAndForget deliveries to finish or ctx to end
func (eb *EventBus) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		eb.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetSubscriberCount returns the number of handlers for an event type
func (eb *EventBus) GetSubscriberCount(eventType string) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.handlers[eventType])
}

// BasicEvent implements the Event and Keyed interfaces
type BasicEvent struct {
	eventType string
	key       string
	data      interface{}
	timestamp time.Time
	source    string
}

// NewBasicEvent creates a new basic event
func NewBasicEvent(eventType string, data interface{}) Event {
	return NewBasicEventWithSource(eventType, data, "unknown")
}

// NewBasicEventWithSource creates a new basic event with source
func NewBasicEventWithSource(eventType string, data interface{}, source string) Event {
	return &BasicEvent{
		eventType: eventType,
		data:      data,
		timestamp: time.Now(),
		source:    source,
	}
}

// NewOrderedEvent creates an event that PublishAndForget delivers in order
// with other events of the same key
func NewOrderedEvent(eventType, key string, data interface{}, source string) Event {
	return &BasicEvent{
		eventType: eventType,
		key:       key,
		data:      data,
		timestamp: time.Now(),
		source:    source,
	}
}

func (e *BasicEvent) Type() string         { return e.eventType }
func (e *BasicEvent) Key() string          { return e.key }
func (e *BasicEvent) Data() interface{}    { return e.data }
func (e *BasicEvent) Timestamp() time.Time { return e.timestamp }
func (e *BasicEvent) Source() string       { return e.source }
