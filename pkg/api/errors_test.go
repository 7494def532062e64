package api

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestAPIErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			"with param",
			&APIError{Type: ErrorTypeInvalidRequest, Param: "model", Message: "is required"},
			"invalid_request_error: is required (param: model)",
		},
		{
			"without param",
			&APIError{Type: ErrorTypeServerError, Message: "internal failure"},
			"server_error: internal failure",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("APIError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		wantType ErrorType
	}{
		{"invalid request", NewInvalidRequestError("model", "is required"), ErrorTypeInvalidRequest},
		{"authentication", NewAuthenticationError("bad key"), ErrorTypeAuthentication},
		{"permission", NewPermissionError("denied"), ErrorTypePermission},
		{"not found", NewNotFoundError("response not found"), ErrorTypeNotFound},
		{"conflict", NewConflictError("already completed"), ErrorTypeConflict},
		{"server error", NewServerError("internal failure"), ErrorTypeServerError},
		{"model error", NewModelError("model overloaded"), ErrorTypeModelError},
		{"too many requests", NewTooManyRequestsError("rate limit exceeded"), ErrorTypeTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", tt.err.Type, tt.wantType)
			}
		})
	}
}

func TestErrorResponseWireFormat(t *testing.T) {
	got := string(mustMarshal(t, ErrorResponse{Error: NewNotFoundError("no such response")}))
	want := `{"error":{"type":"not_found_error","message":"no such response"}}`
	if got != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}

	var back ErrorResponse
	if err := json.Unmarshal([]byte(`{"error":{"type":"rate_limit_error","code":"rate_limit","message":"slow down","extra":1}}`), &back); err != nil {
		t.Fatal(err)
	}
	if back.Error.Code != "rate_limit" || back.Error.Type != ErrorTypeTooManyRequests {
		t.Errorf("decoded %+v", back.Error)
	}
}

func TestAsAPIError(t *testing.T) {
	wrapped := fmt.Errorf("creating response: %w", NewConflictError("done"))
	got, ok := AsAPIError(wrapped)
	if !ok || got.Type != ErrorTypeConflict {
		t.Errorf("AsAPIError = %v, %v", got, ok)
	}
	if _, ok := AsAPIError(fmt.Errorf("plain")); ok {
		t.Error("AsAPIError matched a plain error")
	}
}
