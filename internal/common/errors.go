package common

import (
	"errors"
	"net/http"

	"github.com/noah-isme/toko-checkout/internal/catalog"
	"github.com/noah-isme/toko-checkout/internal/resilience"
	"github.com/noah-isme/toko-checkout/internal/warehouse"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// FromDomain maps checkout errors onto API error codes. Errors that are
// already AppErrors are returned unchanged; anything unrecognised becomes INTERNAL.
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, warehouse.ErrNotListed):
		return NewAppError("NOT_LISTED", err.Error(), http.StatusNotFound, err)
	case errors.Is(err, warehouse.ErrOutOfStock):
		return NewAppError("OUT_OF_STOCK", err.Error(), http.StatusConflict, err)
	case errors.Is(err, catalog.ErrDuplicateIdentifier):
		return NewAppError("DUPLICATE_IDENTIFIER", err.Error(), http.StatusConflict, err)
	case errors.Is(err, catalog.ErrImmutableField):
		return NewAppError("IMMUTABLE_FIELD", err.Error(), http.StatusBadRequest, err)
	case errors.Is(err, catalog.ErrInvalidParameter):
		return NewAppError("INVALID_PARAMETER", err.Error(), http.StatusBadRequest, err)
	case errors.Is(err, resilience.ErrOpenCircuit):
		return NewAppError("STOCK_UNAVAILABLE", "stock ledger unavailable", http.StatusServiceUnavailable, err)
	default:
		return NewAppError("INTERNAL", "internal error", http.StatusInternalServerError, err)
	}
}

// WriteError renders err using the canonical error shape.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromDomain(err)
	if appErr == nil {
		return
	}
	JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
}
