package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error types for the gateway error taxonomy
type ErrorType string

const (
	ErrorTypeNotARoute          ErrorType = "NOT_A_ROUTE"
	ErrorTypeMethodNotAllowed   ErrorType = "METHOD_NOT_ALLOWED"
	ErrorTypeValidation         ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound           ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeConflict           ErrorType = "CONFLICT_ERROR"
	ErrorTypeConnection         ErrorType = "CONNECTION_ERROR"
	ErrorTypeInfrastructure     ErrorType = "INFRASTRUCTURE_ERROR"
	ErrorTypeInternal           ErrorType = "INTERNAL_ERROR"
	ErrorTypeServiceUnavailable ErrorType = "SERVICE_UNAVAILABLE"
)

// ErrNotFound is the generic absence sentinel
var ErrNotFound = errors.New("resource not found")

// Gateway-specific errors
var (
	ErrNotARoute          = errors.New("path does not address a resource")
	ErrMethodNotAllowed   = errors.New("method not allowed")
	ErrInvalidIdentifier  = errors.New("invalid document identifier")
	ErrInvalidDocument    = errors.New("invalid document body")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrConnectionFailure  = errors.New("database connection failure")
	ErrStoreOperation     = errors.New("store operation failed")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrManagerClosed      = errors.New("connection manager closed")
	ErrInvalidDatabaseID  = errors.New("invalid database name")
	ErrJournalUnavailable = errors.New("change journal unavailable")
)

// AppError represents a custom application error with context
type AppError struct {
	Type      ErrorType              `json:"type"`
	Message   string                 `json:"message"`
	Code      string                 `json:"code,omitempty"`
	HTTPCode  int                    `json:"-"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Component string                 `json:"component,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, message string, httpCode int) *AppError {
	return &AppError{
		Type:     errorType,
		Message:  message,
		HTTPCode: httpCode,
		Details:  make(map[string]interface{}),
	}
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithCause adds the underlying cause
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithComponent adds the component name
func (e *AppError) WithComponent(component string) *AppError {
	e.Component = component
	return e
}

// WithDetail adds a detail field
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Common error constructors

// NewNotARouteError reports a path that has no resource shape
func NewNotARouteError(path string) *AppError {
	return NewAppError(ErrorTypeNotARoute, "no resource at this path", http.StatusNotFound).
		WithCode("not_a_route").
		WithCause(ErrNotARoute).
		WithDetail("path", path)
}

// NewMethodNotAllowedError reports a method the addressed resource does not support
func NewMethodNotAllowedError(method string, allowed []string) *AppError {
	return NewAppError(ErrorTypeMethodNotAllowed, fmt.Sprintf("method %s not allowed", method), http.StatusMethodNotAllowed).
		WithCode("method_not_allowed").
		WithCause(ErrMethodNotAllowed).
		WithDetail("allowed", allowed)
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrorTypeValidation, message, http.StatusBadRequest)
}

// NewInvalidIdentifierError reports an identifier that fails to decode
func NewInvalidIdentifierError(text string) *AppError {
	return NewValidationError("invalid document identifier").
		WithCode("invalid_identifier").
		WithCause(ErrInvalidIdentifier).
		WithDetail("id", text)
}

// NewInvalidDocumentError reports a request body that is not a usable document
func NewInvalidDocumentError(message string) *AppError {
	return NewValidationError(message).
		WithCode("invalid_document").
		WithCause(ErrInvalidDocument)
}

// NewInfrastructureError creates an infrastructure error
func NewInfrastructureError(message string) *AppError {
	return NewAppError(ErrorTypeInfrastructure, message, http.StatusInternalServerError)
}

// NewConnectionError reports that a database connection could not be established
func NewConnectionError(database string, cause error) *AppError {
	return NewAppError(ErrorTypeConnection, fmt.Sprintf("cannot connect to database %q", database), http.StatusInternalServerError).
		WithCode("connection_failure").
		WithCause(fmt.Errorf("%w: %w", ErrConnectionFailure, cause)).
		WithDetail("database", database)
}

// NewStoreError reports a failed store operation other than absence
func NewStoreError(operation string, cause error) *AppError {
	return NewInfrastructureError(fmt.Sprintf("%s failed", operation)).
		WithCode("store_failure").
		WithCause(fmt.Errorf("%w: %w", ErrStoreOperation, cause)).
		WithDetail("operation", operation)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound).
		WithCode("not_found")
}

// NewDocumentNotFoundError reports an absent document at a valid address
func NewDocumentNotFoundError(database, collection, id string) *AppError {
	return NewNotFoundError("document").
		WithCause(ErrDocumentNotFound).
		WithDetail("database", database).
		WithDetail("collection", collection).
		WithDetail("id", id)
}

// NewConflictError reports a write rejected by a unique index
func NewConflictError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeConflict, message, http.StatusConflict).
		WithCode("duplicate_key").
		WithCause(fmt.Errorf("%w: %w", ErrDuplicateKey, cause))
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, message, http.StatusInternalServerError)
}

// NewServiceUnavailableError reports a dependency that failed its health check
func NewServiceUnavailableError(message string) *AppError {
	return NewAppError(ErrorTypeServiceUnavailable, message, http.StatusServiceUnavailable)
}

// HTTPStatus returns the HTTP status carried by err, or 500 for foreign errors
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.HTTPCode != 0 {
		return appErr.HTTPCode
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == ErrorTypeNotFound
	}
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrDocumentNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == ErrorTypeValidation
	}
	return errors.Is(err, ErrInvalidIdentifier) || errors.Is(err, ErrInvalidDocument)
}

// IsConnectionFailure checks if an error reports an unreachable database
func IsConnectionFailure(err error) bool {
	return errors.Is(err, ErrConnectionFailure)
}

// IsNotARoute checks if an error reports a path with no resource shape
func IsNotARoute(err error) bool {
	return errors.Is(err, ErrNotARoute)
}
