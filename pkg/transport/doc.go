// Package transport holds the protocol-neutral side of the stub Responses
// API server: the handler interfaces, the middleware chain wrapped around
// response creation, error-to-status mapping and the registry of responses
// that can still be cancelled.
//
// ResponseCreator produces responses and writes them through a
// ResponseWriter, either as a stream of events or as one JSON document.
// ResponseStore persists responses with their input items. The HTTP binding
// lives in transport/http.
package transport
