package repository

import (
	"context"

	"mongodb-rest/internal/gateway/domain/model"
)

// ChangeJournal persists change events per collection so that feed
// subscribers can resume after a disconnect.
type ChangeJournal interface {
	// Append stores the event and returns its resume token
	Append(ctx context.Context, event model.ChangeEvent) (model.ResumeToken, error)

	// Since returns the events of db/collection stored after token, oldest
	// first. An empty token returns the whole retained history.
	Since(ctx context.Context, database, collection string, token model.ResumeToken) ([]model.ChangeEvent, error)
}
