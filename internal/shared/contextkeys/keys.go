package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "mongodb-rest context key " + string(c)
}

// RequestIDKey is the key for the per-request correlation ID
const RequestIDKey = contextKey("requestID")

// DatabaseKey is the key for the addressed database name
const DatabaseKey = contextKey("database")

// CollectionKey is the key for the addressed collection name
const CollectionKey = contextKey("collection")

// OperationKey is the key for the store operation being dispatched
const OperationKey = contextKey("operation")
