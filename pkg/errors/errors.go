package errors

import (
	"fmt"
	"net/http"
)

// StandardError represents a standardized error response
type StandardError struct {
	Code    string `json:"error"`   // Error code/type (e.g., "InvalidRequest", "ResourceNotFound")
	Message string `json:"message"` // Human-readable error message
	Details string `json:"details"` // Additional details (field name, backend message, etc.)
}

// Error implements the error interface
func (e *StandardError) Error() string {
	return e.Message
}

// HTTPStatus returns the appropriate HTTP status code for the error
func (e *StandardError) HTTPStatus() int {
	switch e.Code {
	case "InvalidRequest", "ValidationError", "EmptyCart":
		return http.StatusBadRequest
	case "Unauthorized":
		return http.StatusUnauthorized
	case "ResourceNotFound":
		return http.StatusNotFound
	case "InvalidTransition", "IntegrityViolation":
		return http.StatusConflict
	case "BackendRejected":
		return http.StatusUnprocessableEntity
	case "PartialSubmission":
		return http.StatusMultiStatus
	case "BackendUnavailable", "BadBackendResponse":
		return http.StatusBadGateway
	case "DatabaseError", "InternalError":
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewStandardError creates a new StandardError
func NewStandardError(errorCode, message, details string) *StandardError {
	return &StandardError{
		Code:    errorCode,
		Message: message,
		Details: details,
	}
}

func NewInvalidRequest(message, details string) *StandardError {
	return NewStandardError("InvalidRequest", message, details)
}

func NewValidationError(message, field string) *StandardError {
	return NewStandardError("ValidationError", message, fmt.Sprintf("Field: %s", field))
}

func NewUnauthorized(message, details string) *StandardError {
	return NewStandardError("Unauthorized", message, details)
}

func NewResourceNotFound(kind, id string) *StandardError {
	return NewStandardError("ResourceNotFound", kind+" not found", fmt.Sprintf("ID: %s", id))
}

func NewEmptyCart() *StandardError {
	return NewStandardError("EmptyCart", "cart has no items", "Add at least one batch before submitting")
}

func NewPartialSubmission(submitted, failed int) *StandardError {
	return NewStandardError("PartialSubmission", "some supplier orders were not submitted",
		fmt.Sprintf("Submitted: %d, Failed: %d", submitted, failed))
}

func NewInvalidTransition(from, to string) *StandardError {
	return NewStandardError("InvalidTransition", "order transition not allowed",
		fmt.Sprintf("From: %s, To: %s", from, to))
}

// NewBackendRejected wraps a non-2xx backend answer, keeping the backend message when available.
func NewBackendRejected(status int, message string) *StandardError {
	if message == "" {
		message = http.StatusText(status)
	}
	return NewStandardError("BackendRejected", message, fmt.Sprintf("Backend status: %d", status))
}

func NewBackendUnavailable(err error) *StandardError {
	return NewStandardError("BackendUnavailable", "backend is not reachable", err.Error())
}

// NewBadBackendResponse reports a 2xx backend answer missing its entity; the write may have been applied
func NewBadBackendResponse(err error) *StandardError {
	return NewStandardError("BadBackendResponse", "backend accepted the request but returned no entity", err.Error())
}

func NewDatabaseError(operation string, err error) *StandardError {
	return NewStandardError("DatabaseError", fmt.Sprintf("database operation failed: %s", operation), err.Error())
}

func NewInternalError(message string, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return NewStandardError("InternalError", message, details)
}
