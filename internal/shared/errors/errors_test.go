package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Behavior(t *testing.T) {
	err := NewValidationError("invalid input").WithCode("VAL001").WithDetail("field", "name").WithComponent("test-component")
	assert.Equal(t, ErrorTypeValidation, err.Type)
	assert.Equal(t, "invalid input", err.Message)
	assert.Equal(t, "VAL001", err.Code)
	assert.Equal(t, "test-component", err.Component)
	assert.Equal(t, "name", err.Details["field"])
	assert.Equal(t, "invalid input", err.Error())
}

func TestAppError_WithCause_Unwrap(t *testing.T) {
	cause := ErrNotFound
	err := NewNotFoundError("resource").WithCause(cause)
	assert.Equal(t, cause, err.Unwrap())
	assert.Equal(t, "resource not found: resource not found", err.Error())
}

func TestGatewayErrors_StatusAndSentinel(t *testing.T) {
	dial := errors.New("dial tcp: connection refused")

	tests := []struct {
		name     string
		err      error
		status   int
		sentinel error
	}{
		{"not a route", NewNotARouteError("/a/b/c/d"), http.StatusNotFound, ErrNotARoute},
		{"method not allowed", NewMethodNotAllowedError("PATCH", []string{"GET"}), http.StatusMethodNotAllowed, ErrMethodNotAllowed},
		{"invalid identifier", NewInvalidIdentifierError("xyz"), http.StatusBadRequest, ErrInvalidIdentifier},
		{"invalid document", NewInvalidDocumentError("bad body"), http.StatusBadRequest, ErrInvalidDocument},
		{"document not found", NewDocumentNotFoundError("db", "c", "id"), http.StatusNotFound, ErrDocumentNotFound},
		{"connection failure", NewConnectionError("db", dial), http.StatusInternalServerError, ErrConnectionFailure},
		{"store failure", NewStoreError("find", dial), http.StatusInternalServerError, ErrStoreOperation},
		{"conflict", NewConflictError("duplicate _id", dial), http.StatusConflict, ErrDuplicateKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestNewConnectionError_KeepsCause(t *testing.T) {
	dial := errors.New("server selection timeout")
	err := NewConnectionError("inventory", dial)

	assert.ErrorIs(t, err, dial)
	assert.True(t, IsConnectionFailure(err))
	assert.Equal(t, "inventory", err.Details["database"])
	assert.Contains(t, err.Error(), "inventory")
}

func TestMethodNotAllowed_ListsAllowed(t *testing.T) {
	err := NewMethodNotAllowedError("POST", []string{"GET", "PUT", "DELETE"})
	assert.Equal(t, []string{"GET", "PUT", "DELETE"}, err.Details["allowed"])
	assert.Equal(t, ErrorTypeMethodNotAllowed, err.Type)
}

func TestHTTPStatus_ForeignError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(NewAppError(ErrorTypeInternal, "x", 0)))
}

func TestHTTPStatus_Wrapped(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), NewInvalidIdentifierError("nope"))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(wrapped))
}

func TestIsNotFound_IsValidation_IsNotARoute(t *testing.T) {
	nf := NewDocumentNotFoundError("db", "c", "id")
	assert.True(t, IsNotFound(nf))
	assert.False(t, IsValidation(nf))
	assert.False(t, IsNotARoute(nf))

	val := NewInvalidIdentifierError("bad")
	assert.True(t, IsValidation(val))
	assert.False(t, IsNotFound(val))

	assert.True(t, IsNotARoute(NewNotARouteError("/")))
	assert.True(t, IsNotFound(ErrDocumentNotFound))
	assert.True(t, IsValidation(ErrInvalidIdentifier))
}

func TestNewStoreError(t *testing.T) {
	plain := errors.New("socket closed")
	err := NewStoreError("find", plain)
	assert.Equal(t, ErrorTypeInfrastructure, err.Type)
	assert.Equal(t, "store_failure", err.Code)
	assert.Equal(t, 500, HTTPStatus(err))
	assert.ErrorIs(t, err, ErrStoreOperation)
	assert.ErrorIs(t, err, plain)
	assert.Equal(t, 500, HTTPStatus(plain))
}
