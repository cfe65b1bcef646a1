package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"mongodb-rest/internal/gateway/domain/model"
	"mongodb-rest/internal/gateway/domain/repository"
	apperrors "mongodb-rest/internal/shared/errors"
	"mongodb-rest/internal/shared/logger"

	"github.com/redis/go-redis/v9"
)

// replayLimit caps the events returned by a single Since call
const replayLimit = 1000

// RedisChangeJournal implements ChangeJournal using one Redis Stream per
// collection. Stream entry IDs double as resume tokens.
type RedisChangeJournal struct {
	client    redis.UniversalClient
	logger    logger.Logger
	maxLength int64
}

var _ repository.ChangeJournal = (*RedisChangeJournal)(nil)

// NewRedisChangeJournal creates a journal. Streams are trimmed to roughly
// maxLength entries; 0 keeps everything.
func NewRedisChangeJournal(client redis.UniversalClient, maxLength int64, log logger.Logger) *RedisChangeJournal {
	return &RedisChangeJournal{
		client:    client,
		logger:    log.WithComponent("change_journal"),
		maxLength: maxLength,
	}
}

// Append stores event at the tail of its collection stream
func (r *RedisChangeJournal) Append(ctx context.Context, event model.ChangeEvent) (model.ResumeToken, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return "", apperrors.NewInfrastructureError("failed to encode change event").WithCause(err)
	}

	args := &redis.XAddArgs{
		Stream: event.Stream(),
		Values: map[string]interface{}{
			"type":       string(event.Type),
			"database":   event.Database,
			"collection": event.Collection,
			"id":         event.ID,
			"data":       string(data),
			"timestamp":  event.Timestamp.UnixNano(),
		},
	}
	if r.maxLength > 0 {
		args.MaxLen = r.maxLength
		args.Approx = true
	}

	id, err := r.client.XAdd(ctx, args).Result()
	if err != nil {
		r.logger.WithFields(map[string]interface{}{
			"stream": event.Stream(),
			"type":   string(event.Type),
			"error":  err.Error(),
		}).Error("Failed to append change event")
		return "", apperrors.NewInfrastructureError("failed to append change event").
			WithCause(errors.Join(apperrors.ErrJournalUnavailable, err))
	}

	r.logger.Debugf("Appended %s event to %s as %s", event.Type, event.Stream(), id)
	return model.ResumeToken(id), nil
}

// Since returns events stored strictly after token, oldest first
func (r *RedisChangeJournal) Since(ctx context.Context, database, collection string, token model.ResumeToken) ([]model.ChangeEvent, error) {
	stream := model.Stream(database, collection)
	start := "-"
	if token != "" {
		start = "(" + string(token)
	}

	msgs, err := r.client.XRangeN(ctx, stream, start, "+", replayLimit).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []model.ChangeEvent{}, nil
		}
		r.logger.WithFields(map[string]interface{}{
			"stream": stream,
			"token":  string(token),
			"error":  err.Error(),
		}).Error("Failed to read change events")
		return nil, apperrors.NewInfrastructureError("failed to read change events").
			WithCause(errors.Join(apperrors.ErrJournalUnavailable, err))
	}

	events := make([]model.ChangeEvent, 0, len(msgs))
	for _, msg := range msgs {
		events = append(events, parseChangeEvent(msg))
	}
	return events, nil
}

// Ping reports whether Redis is reachable
func (r *RedisChangeJournal) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func parseChangeEvent(msg redis.XMessage) model.ChangeEvent {
	event := model.ChangeEvent{ResumeToken: model.ResumeToken(msg.ID)}

	if v, ok := msg.Values["type"].(string); ok {
		event.Type = model.ChangeType(v)
	}
	if v, ok := msg.Values["database"].(string); ok {
		event.Database = v
	}
	if v, ok := msg.Values["collection"].(string); ok {
		event.Collection = v
	}
	if v, ok := msg.Values["id"].(string); ok {
		event.ID = v
	}
	if v, ok := msg.Values["timestamp"].(string); ok {
		if nanos, err := strconv.ParseInt(v, 10, 64); err == nil {
			event.Timestamp = time.Unix(0, nanos).UTC()
		}
	}
	if v, ok := msg.Values["data"].(string); ok && v != "" && v != "null" {
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(v), &data); err == nil {
			event.Data = data
		}
	}
	return event
}
