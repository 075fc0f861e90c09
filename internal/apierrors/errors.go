// Package apierrors defines structured error types for the API.
package apierrors

import (
	"fmt"
	"net/http"
)

// ErrorCode defines specific error types for the API.
type ErrorCode string

const (
	// ErrValidationFailed is returned when input data fails validation
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrMissingField is returned when a required field is missing
	ErrMissingField ErrorCode = "MISSING_FIELD"
	// ErrMalformedBlueprint is returned when an uploaded blueprint cannot be applied
	ErrMalformedBlueprint ErrorCode = "MALFORMED_BLUEPRINT"

	// ErrNotFound is returned when a resource is not found
	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrAssetNotFound is returned when an asset key has no stored value
	ErrAssetNotFound ErrorCode = "ASSET_NOT_FOUND"
	// ErrProductNotFound is returned when a catalog product is not found
	ErrProductNotFound ErrorCode = "PRODUCT_NOT_FOUND"

	// ErrPayloadTooLarge is returned when an upload exceeds the size gate
	ErrPayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	// ErrStorageError is returned when a storage operation fails
	ErrStorageError ErrorCode = "STORAGE_ERROR"
	// ErrStorageUnavailable is returned when the media store cannot be opened
	ErrStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"

	// ErrInternal is returned when an unexpected server error occurs
	ErrInternal ErrorCode = "INTERNAL_ERROR"
	// ErrConflict is returned when there is a resource conflict
	ErrConflict ErrorCode = "CONFLICT"
	// ErrConfirmationRequired is returned when a destructive call lacks its confirmation flag
	ErrConfirmationRequired ErrorCode = "CONFIRMATION_REQUIRED"
)

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is a concrete error type with status code, code, and optional details.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{
		statusCode: statusCode,
		code:       code,
		message:    message,
		details:    make(map[string]any),
	}
}

// WithDetails adds details to the error.
func (e *APIError) WithDetails(details map[string]any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	for k, v := range details {
		e.details[k] = v
	}
	return e
}

// WithDetail adds a single detail to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// Predefined error constructors for common cases

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// AssetNotFound creates a 404 for an asset key with no stored value.
func AssetNotFound(key string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrAssetNotFound, fmt.Sprintf("no stored media for %q", key)).
		WithDetail("key", key)
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrValidationFailed, message)
}

// MissingField creates a 400 Bad Request error for a missing field.
func MissingField(fieldName string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrMissingField, fmt.Sprintf("Missing required field: %s", fieldName))
}

// PayloadTooLarge creates a 413 error for uploads over the size gate.
func PayloadTooLarge(limit int64) *APIError {
	return NewAPIError(http.StatusRequestEntityTooLarge, ErrPayloadTooLarge, "upload exceeds the media size limit").
		WithDetail("limitBytes", limit)
}

// ConfirmationRequired creates a 400 error for destructive calls made
// without their confirmation flag.
func ConfirmationRequired(action string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrConfirmationRequired,
		fmt.Sprintf("%s requires confirm=true", action))
}

// StorageUnavailable creates a 503 error wrapping a store open failure.
func StorageUnavailable(err error) *APIError {
	return NewAPIError(http.StatusServiceUnavailable, ErrStorageUnavailable, "media store unavailable").Wrap(err)
}

// Internal returns a 500 Internal Server Error.
func Internal(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrInternal, message)
}

// InternalWithError creates a 500 error wrapping an underlying error.
func InternalWithError(message string, err error) *APIError {
	return Internal(message).Wrap(err)
}
