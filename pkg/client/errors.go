package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rhuss/respkit/pkg/api"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned without contacting the server while the
// circuit breaker is open.
var ErrCircuitOpen = gobreaker.ErrOpenState

// ResponseError is returned for any non-2xx HTTP status.
type ResponseError struct {
	StatusCode int
	// RequestID is the server's x-request-id header, if any.
	RequestID string
	// API is the decoded error body; nil when the body was not an API error.
	API  *api.APIError
	Body string
	// RetryAfter is the server's Retry-After hint, zero when absent.
	RetryAfter time.Duration
}

func (e *ResponseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "respkit: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	switch {
	case e.API != nil:
		b.WriteString(": " + e.API.Error())
	case e.Body != "":
		b.WriteString(": " + e.Body)
	}
	if e.RequestID != "" {
		b.WriteString(" (request " + e.RequestID + ")")
	}
	return b.String()
}

// Unwrap exposes the API error so errors.As finds *api.APIError too.
func (e *ResponseError) Unwrap() error {
	if e.API == nil {
		return nil
	}
	return e.API
}

// Retryable reports whether the status is worth retrying.
func (e *ResponseError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode >= 500
}

const maxErrorBody = 4 << 10

func newResponseError(resp *http.Response, body []byte) *ResponseError {
	e := &ResponseError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("X-Request-Id"),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
	}
	var env api.ErrorResponse
	if json.Unmarshal(body, &env) == nil && env.Error != nil && env.Error.Message != "" {
		e.API = env.Error
		return e
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	e.Body = s
	return e
}

// parseRetryAfter reads either delay-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var re *ResponseError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

func IsBadRequest(err error) bool   { return StatusCode(err) == http.StatusBadRequest }
func IsUnauthorized(err error) bool { return StatusCode(err) == http.StatusUnauthorized }
func IsForbidden(err error) bool    { return StatusCode(err) == http.StatusForbidden }
func IsNotFound(err error) bool     { return StatusCode(err) == http.StatusNotFound }
func IsConflict(err error) bool     { return StatusCode(err) == http.StatusConflict }
func IsRateLimited(err error) bool  { return StatusCode(err) == http.StatusTooManyRequests }
func IsServerError(err error) bool  { return StatusCode(err) >= 500 }
