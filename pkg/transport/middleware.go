package transport

import "context"

// Middleware wraps a ResponseCreator.
type Middleware func(ResponseCreator) ResponseCreator

// Chain composes middleware so that Chain(a, b, c)(h) is a(b(c(h))).
func Chain(middlewares ...Middleware) Middleware {
	return func(next ResponseCreator) ResponseCreator {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

type requestIDKey struct{}

// RequestIDFromContext returns the request ID in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// ContextWithRequestID returns ctx carrying id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}
