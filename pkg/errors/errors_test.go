package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: gone", (&AppError{Code: "NOT_FOUND", Message: "gone"}).Error())

	wrapped := &AppError{Code: "INTERNAL_ERROR", Message: "boom", Err: fmt.Errorf("redis down")}
	assert.Equal(t, "INTERNAL_ERROR: boom: redis down", wrapped.Error())
}

func TestConstructors(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
	}{
		{"not found", NotFound("product", "p-1"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"already exists", AlreadyExists("product", "name", "Apple"), "ALREADY_EXISTS", http.StatusConflict, ErrAlreadyExists},
		{"invalid input", InvalidInput("cart is empty"), "INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput},
		{"unauthorized", Unauthorized("missing token"), "UNAUTHORIZED", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", Forbidden("admin only"), "FORBIDDEN", http.StatusForbidden, ErrForbidden},
		{"conflict", Conflict("default account in use"), "CONFLICT", http.StatusConflict, ErrConflict},
		{"unavailable", Unavailable("catalog unavailable", cause), "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, ErrServiceUnavail},
		{"internal", Internal(cause), "INTERNAL_ERROR", http.StatusInternalServerError, cause},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestNotFound_Message(t *testing.T) {
	assert.Equal(t, "product with id p-1 not found", NotFound("product", "p-1").Message)
	assert.Equal(t, `product with name "Apple" already exists`, AlreadyExists("product", "name", "Apple").Message)
}

func TestUnavailable_KeepsCause(t *testing.T) {
	cause := errors.New("pool closed")
	assert.ErrorIs(t, Unavailable("catalog unavailable", cause), cause)
}

func TestHTTPStatus_Sentinels(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("get product: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("create: %w", ErrAlreadyExists), http.StatusConflict},
		{ErrConflict, http.StatusConflict},
		{fmt.Errorf("decode: %w", ErrInvalidInput), http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrServiceUnavail, http.StatusServiceUnavailable},
		{errors.New("unexpected"), http.StatusInternalServerError},
		{fmt.Errorf("outer: %w", InvalidInput("bad")), http.StatusBadRequest},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}
