package utils

import (
	"context"
	"errors"

	"mongodb-rest/internal/shared/contextkeys"
)

// Common context errors
var (
	ErrRequestIDNotFound  = errors.New("requestID not found in context")
	ErrRequestIDNotString = errors.New("requestID in context is not a string")
)

// GetRequestIDFromContext retrieves the request ID from the context.
// It returns the request ID and an error if it is not found or is not a string.
func GetRequestIDFromContext(ctx context.Context) (string, error) {
	val := ctx.Value(contextkeys.RequestIDKey)
	if val == nil {
		return "", ErrRequestIDNotFound
	}
	requestID, ok := val.(string)
	if !ok {
		return "", ErrRequestIDNotString
	}
	return requestID, nil
}

// GetRequestIDOrDefault returns the request ID or def when absent
func GetRequestIDOrDefault(ctx context.Context, def string) string {
	if id, err := GetRequestIDFromContext(ctx); err == nil {
		return id
	}
	return def
}

// WithRequestID returns a copy of ctx carrying the request ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextkeys.RequestIDKey, requestID)
}

// WithResource tags ctx with the addressed database, collection and store
// operation so log lines written under it carry them. Empty names are skipped.
func WithResource(ctx context.Context, database, collection, operation string) context.Context {
	if database != "" {
		ctx = context.WithValue(ctx, contextkeys.DatabaseKey, database)
	}
	if collection != "" {
		ctx = context.WithValue(ctx, contextkeys.CollectionKey, collection)
	}
	return context.WithValue(ctx, contextkeys.OperationKey, operation)
}
