package api

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeServerError     ErrorType = "server_error"
	ErrorTypeInvalidRequest  ErrorType = "invalid_request_error"
	ErrorTypeAuthentication  ErrorType = "authentication_error"
	ErrorTypePermission      ErrorType = "permission_error"
	ErrorTypeNotFound        ErrorType = "not_found_error"
	ErrorTypeConflict        ErrorType = "conflict_error"
	ErrorTypeModelError      ErrorType = "model_error"
	ErrorTypeTooManyRequests ErrorType = "rate_limit_error"
)

// APIError represents a structured API error with type, code, param, and message.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// AsAPIError extracts an *APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

func NewAuthenticationError(message string) *APIError {
	return &APIError{Type: ErrorTypeAuthentication, Message: message}
}

func NewPermissionError(message string) *APIError {
	return &APIError{Type: ErrorTypePermission, Message: message}
}

// NewNotFoundError creates an APIError for resources that cannot be found.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewConflictError reports an operation that does not fit the resource's
// current state, such as cancelling a finished response.
func NewConflictError(message string) *APIError {
	return &APIError{Type: ErrorTypeConflict, Message: message}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}

// NewModelError creates an APIError for model-related errors.
func NewModelError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeModelError,
		Message: message,
	}
}

// NewTooManyRequestsError creates an APIError for rate limiting.
func NewTooManyRequestsError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeTooManyRequests,
		Message: message,
	}
}

var errInputShape = errors.New("input must be a string or an array of items")
