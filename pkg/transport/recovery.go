package transport

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhuss/respkit/pkg/api"
)

// Recovery returns middleware that turns a panic in the handler into a
// server error.
func Recovery() Middleware {
	return func(next ResponseCreator) ResponseCreator {
		return ResponseCreatorFunc(func(ctx context.Context, req *api.CreateResponsesRequest, w ResponseWriter) (retErr error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("handler panicked", "request_id", RequestIDFromContext(ctx), "panic", r)
					retErr = api.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()
			return next.CreateResponse(ctx, req, w)
		})
	}
}
