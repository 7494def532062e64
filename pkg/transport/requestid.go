package transport

import (
	"context"

	"github.com/google/uuid"
	"github.com/rhuss/respkit/pkg/api"
)

// RequestID returns middleware that makes sure every request carries an ID.
// An ID already in the context, taken from the X-Request-Id header by the
// HTTP adapter, is kept.
func RequestID() Middleware {
	return func(next ResponseCreator) ResponseCreator {
		return ResponseCreatorFunc(func(ctx context.Context, req *api.CreateResponsesRequest, w ResponseWriter) error {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, NewRequestID())
			}
			return next.CreateResponse(ctx, req, w)
		})
	}
}

// NewRequestID returns a fresh request ID.
func NewRequestID() string {
	return "req_" + uuid.NewString()
}
