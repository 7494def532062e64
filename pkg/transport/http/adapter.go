package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/rhuss/respkit/pkg/api"
	"github.com/rhuss/respkit/pkg/observability"
	"github.com/rhuss/respkit/pkg/transport"
)

// HeaderRequestID carries the server-side request ID in both directions.
const HeaderRequestID = "X-Request-ID"

// Adapter serves the Responses API over HTTP.
type Adapter struct {
	creator   transport.ResponseCreator
	canceller transport.ResponseCanceller // nil when creator cannot cancel
	store     transport.ResponseStore     // nil if stateless-only
	inflight  *transport.InFlightRegistry
	mux       *http.ServeMux
	config    Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
	Validation  api.ValidationConfig
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 10 << 20,
		Validation:  api.DefaultValidationConfig(),
	}
}

// NewAdapter creates an HTTP adapter. The store is optional; without one the
// read, list and delete routes answer 501. If creator also implements
// transport.ResponseCanceller, POST /v1/responses/{id}/cancel is served by
// it. Middleware wraps the creator in the given order.
func NewAdapter(creator transport.ResponseCreator, store transport.ResponseStore, cfg Config, middlewares ...transport.Middleware) *Adapter {
	canceller, _ := creator.(transport.ResponseCanceller)
	if len(middlewares) > 0 {
		creator = transport.Chain(middlewares...)(creator)
	}

	a := &Adapter{
		creator:   creator,
		canceller: canceller,
		store:     store,
		inflight:  transport.NewInFlightRegistry(),
		mux:       http.NewServeMux(),
		config:    cfg,
	}

	a.mux.HandleFunc("POST /v1/responses", a.handleCreateResponse)
	a.mux.HandleFunc("GET /v1/responses", a.handleListResponses)
	a.mux.HandleFunc("GET /v1/responses/{id}", a.handleGetResponse)
	a.mux.HandleFunc("DELETE /v1/responses/{id}", a.handleDeleteResponse)
	a.mux.HandleFunc("POST /v1/responses/{id}/cancel", a.handleCancelResponse)
	a.mux.HandleFunc("GET /v1/responses/{id}/input_items", a.handleListInputItems)
	a.mux.HandleFunc("GET /healthz", a.handleHealth)

	return a
}

// Handler returns the http.Handler for this adapter, with request metrics
// and X-Request-ID propagation applied.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(observability.MetricsMiddleware(a.mux))
}

// InFlight exposes the registry of streams that can still be interrupted.
func (a *Adapter) InFlight() *transport.InFlightRegistry {
	return a.inflight
}

// httpRequestIDMiddleware moves an incoming X-Request-ID into the context
// and echoes the request ID (incoming or generated) on the response.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = transport.NewRequestID()
		}
		r = r.WithContext(transport.ContextWithRequestID(r.Context(), id))
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r)
	})
}

func (a *Adapter) handleCreateResponse(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
				http.StatusUnsupportedMediaType,
			)
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var req api.CreateResponsesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteAPIError(w, api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()))
		return
	}

	if apiErr := api.ValidateRequest(&req, a.config.Validation); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	if req.IsStreaming() {
		a.handleStreamingResponse(w, r, &req)
		return
	}

	rw := newSSEResponseWriter(w, nil)
	if err := a.creator.CreateResponse(r.Context(), &req, rw); err != nil {
		a.writeHandlerError(w, rw, err)
	}
}

// handleStreamingResponse registers the stream under its response ID as
// soon as response.created is written, so DELETE can interrupt it.
func (a *Adapter) handleStreamingResponse(w http.ResponseWriter, r *http.Request, req *api.CreateResponsesRequest) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var registeredID string
	rw := newSSEResponseWriter(w, func(id string) {
		registeredID = id
		a.inflight.Register(id, cancel)
	})

	err := a.creator.CreateResponse(ctx, req, rw)
	if registeredID != "" {
		a.inflight.Remove(registeredID)
	}
	if err != nil {
		a.writeHandlerError(w, rw, err)
	}
}

func (a *Adapter) handleGetResponse(w http.ResponseWriter, r *http.Request) {
	id, ok := a.responseID(w, r, "response retrieval")
	if !ok {
		return
	}
	resp, err := a.store.GetResponse(r.Context(), id)
	if err != nil {
		transport.WriteAPIError(w, notFoundOr(err, id))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDeleteResponse interrupts a running stream with that ID, then
// deletes the stored response.
func (a *Adapter) handleDeleteResponse(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !api.ValidateResponseID(id) {
		transport.WriteAPIError(w, api.NewInvalidRequestError("id", "malformed response ID"))
		return
	}

	interrupted := a.inflight.Cancel(id)
	if a.store == nil {
		if interrupted {
			writeJSON(w, http.StatusOK, &api.DeleteResponseResult{ID: id, Object: api.ObjectResponseDeleted, Deleted: true})
			return
		}
		writeNotImplemented(w, "response deletion")
		return
	}

	if err := a.store.DeleteResponse(r.Context(), id); err != nil && !interrupted {
		transport.WriteAPIError(w, notFoundOr(err, id))
		return
	}
	writeJSON(w, http.StatusOK, &api.DeleteResponseResult{ID: id, Object: api.ObjectResponseDeleted, Deleted: true})
}

func (a *Adapter) handleCancelResponse(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !api.ValidateResponseID(id) {
		transport.WriteAPIError(w, api.NewInvalidRequestError("id", "malformed response ID"))
		return
	}
	if a.canceller == nil {
		writeNotImplemented(w, "response cancellation")
		return
	}
	resp, err := a.canceller.CancelResponse(r.Context(), id)
	if err != nil {
		transport.WriteAPIError(w, notFoundOr(err, id))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *Adapter) handleListResponses(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeNotImplemented(w, "response listing")
		return
	}
	opts, apiErr := parseListOptions(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}
	result, err := a.store.ListResponses(r.Context(), opts)
	if err != nil {
		transport.WriteAPIError(w, transport.AsAPIError(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *Adapter) handleListInputItems(w http.ResponseWriter, r *http.Request) {
	id, ok := a.responseID(w, r, "input items retrieval")
	if !ok {
		return
	}
	opts, apiErr := parseListOptions(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}
	result, err := a.store.GetInputItems(r.Context(), id, opts)
	if err != nil {
		transport.WriteAPIError(w, notFoundOr(err, id))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	if a.store != nil {
		if err := a.store.HealthCheck(r.Context()); err != nil {
			http.Error(w, "store unavailable: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// responseID checks that a store is configured and the path ID is well
// formed. On failure it has already written the error.
func (a *Adapter) responseID(w http.ResponseWriter, r *http.Request, what string) (string, bool) {
	if a.store == nil {
		writeNotImplemented(w, what)
		return "", false
	}
	id := r.PathValue("id")
	if !api.ValidateResponseID(id) {
		transport.WriteAPIError(w, api.NewInvalidRequestError("id", "malformed response ID"))
		return "", false
	}
	return id, true
}

// parseListOptions reads the pagination parameters. Order defaults to desc
// for both listings.
func parseListOptions(r *http.Request) (transport.ListOptions, *api.APIError) {
	q := r.URL.Query()
	opts := transport.ListOptions{
		After:  q.Get("after"),
		Before: q.Get("before"),
		Model:  q.Get("model"),
		Order:  api.OrderDesc,
	}

	if opts.After != "" && opts.Before != "" {
		return opts, api.NewInvalidRequestError("after", "cannot use both 'after' and 'before' cursors")
	}

	if s := q.Get("order"); s != "" {
		order, ok := api.ParseOrder(s)
		if !ok {
			return opts, api.NewInvalidRequestError("order", "order must be 'asc' or 'desc'")
		}
		opts.Order = order
	}

	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 || limit > 100 {
			return opts, api.NewInvalidRequestError("limit", "limit must be an integer between 1 and 100")
		}
		opts.Limit = limit
	}

	for _, inc := range q["include"] {
		if !api.KnownIncludable(inc) {
			return opts, api.NewInvalidRequestError("include", "unsupported include value: "+inc)
		}
	}

	return opts, nil
}

// writeHandlerError reports a creator error. Once streaming has begun the
// error goes out as an error event; before that it is a JSON error body.
func (a *Adapter) writeHandlerError(w http.ResponseWriter, rw *sseResponseWriter, err error) {
	apiErr := transport.AsAPIError(err)

	if rw.hasStartedStreaming() {
		ev := &api.ErrorEvent{Message: apiErr.Message}
		if apiErr.Code != "" {
			ev.Code = api.Ptr(apiErr.Code)
		}
		if apiErr.Param != "" {
			ev.Param = api.Ptr(apiErr.Param)
		}
		rw.WriteEvent(context.Background(), ev)
		return
	}
	if rw.isCompleted() {
		return
	}
	transport.WriteAPIError(w, apiErr)
}

// notFoundOr names the response in not-found errors.
func notFoundOr(err error, id string) *api.APIError {
	apiErr := transport.AsAPIError(err)
	if apiErr.Type == api.ErrorTypeNotFound {
		return api.NewNotFoundError("response " + id + " not found")
	}
	return apiErr
}

func writeNotImplemented(w http.ResponseWriter, what string) {
	transport.WriteErrorResponse(w,
		api.NewInvalidRequestError("", what+" is not available (no store configured)"),
		http.StatusNotImplemented,
	)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
