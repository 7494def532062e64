package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rhuss/respkit/pkg/api"
	"github.com/rhuss/respkit/pkg/storage"
)

// HTTPStatusFromError maps an APIError type to its HTTP status.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case api.ErrorTypePermission:
		return http.StatusForbidden
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeConflict:
		return http.StatusConflict
	case api.ErrorTypeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// AsAPIError converts any handler error to an APIError. Storage sentinels
// become not_found and conflict errors; anything unrecognized is a server error.
func AsAPIError(err error) *api.APIError {
	if apiErr, ok := api.AsAPIError(err); ok {
		return apiErr
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return api.NewNotFoundError(err.Error())
	case errors.Is(err, storage.ErrConflict):
		return api.NewConflictError(err.Error())
	}
	return api.NewServerError(err.Error())
}

// WriteErrorResponse writes apiErr in the {"error": ...} envelope.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}

// WriteAPIError writes apiErr with the status derived from its type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr))
}
