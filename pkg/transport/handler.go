package transport

import (
	"context"

	"github.com/rhuss/respkit/pkg/api"
)

// ResponseCreator handles POST /v1/responses. The implementation writes
// either a stream of events or one complete response to w.
type ResponseCreator interface {
	CreateResponse(ctx context.Context, req *api.CreateResponsesRequest, w ResponseWriter) error
}

// ResponseCreatorFunc adapts an ordinary function to ResponseCreator.
type ResponseCreatorFunc func(ctx context.Context, req *api.CreateResponsesRequest, w ResponseWriter) error

// CreateResponse calls f(ctx, req, w).
func (f ResponseCreatorFunc) CreateResponse(ctx context.Context, req *api.CreateResponsesRequest, w ResponseWriter) error {
	return f(ctx, req, w)
}

// ResponseCanceller stops a background response that is still queued or
// in progress and returns it in its cancelled state.
type ResponseCanceller interface {
	CancelResponse(ctx context.Context, id string) (*api.Response, error)
}

// ListOptions pages through responses or input items.
type ListOptions struct {
	After  string
	Before string
	// Limit defaults to 20 and is capped at 100.
	Limit int
	// Model filters responses; ignored for input items.
	Model string
	// Order defaults to desc for responses and asc for input items.
	Order api.Order
}

// ResponseStore persists responses together with the input items they were
// created from.
type ResponseStore interface {
	// SaveResponse stores a new response. It returns storage.ErrConflict
	// when the ID is taken.
	SaveResponse(ctx context.Context, resp *api.Response, input api.Items) error

	// UpdateResponse replaces a stored response, keeping its input items.
	UpdateResponse(ctx context.Context, resp *api.Response) error

	// GetResponse returns storage.ErrNotFound for unknown or deleted IDs.
	GetResponse(ctx context.Context, id string) (*api.Response, error)

	// GetResponseForChain also returns deleted responses, so that
	// previous_response_id keeps working after an intermediate delete.
	GetResponseForChain(ctx context.Context, id string) (*api.Response, error)

	DeleteResponse(ctx context.Context, id string) error

	// ListResponses is scoped to the tenant in ctx and ordered by creation time.
	ListResponses(ctx context.Context, opts ListOptions) (*api.ResponseList, error)

	// GetInputItems returns storage.ErrNotFound if the response does not exist.
	GetInputItems(ctx context.Context, responseID string, opts ListOptions) (*api.ItemList, error)

	HealthCheck(ctx context.Context) error
	Close() error
}

// ResponseWriter abstracts streaming and non-streaming output.
//
// WriteEvent and WriteResponse are mutually exclusive on one writer, and
// no event may follow a terminal one.
type ResponseWriter interface {
	WriteEvent(ctx context.Context, event api.StreamEvent) error
	WriteResponse(ctx context.Context, resp *api.Response) error
	Flush() error
}
