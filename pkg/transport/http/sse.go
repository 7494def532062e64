package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rhuss/respkit/pkg/api"
	"github.com/rhuss/respkit/pkg/debug"
	"github.com/rhuss/respkit/pkg/transport"
)

type writerState int

const (
	writerIdle      writerState = iota
	writerStreaming             // at least one event written
	writerCompleted             // terminal event or full response written
)

// sseResponseWriter implements transport.ResponseWriter on top of an
// http.ResponseWriter. Events go out as SSE frames, a full response as JSON.
type sseResponseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu        sync.Mutex
	state     writerState
	onCreated func(id string)
}

var _ transport.ResponseWriter = (*sseResponseWriter)(nil)

// newSSEResponseWriter wraps w. onCreated, if not nil, receives the response
// ID from the first response.created event.
func newSSEResponseWriter(w http.ResponseWriter, onCreated func(id string)) *sseResponseWriter {
	return &sseResponseWriter{
		w:         w,
		rc:        http.NewResponseController(w),
		onCreated: onCreated,
	}
}

// WriteEvent sends one event as
//
//	event: {type}
//	data: {json}
//
// followed by "data: [DONE]" after a terminal event.
func (s *sseResponseWriter) WriteEvent(ctx context.Context, event api.StreamEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerCompleted {
		return errors.New("cannot write event: writer is completed")
	}
	if s.state == writerIdle {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		s.state = writerStreaming
	}

	if created, ok := event.(*api.ResponseCreatedEvent); ok && created.Response != nil && s.onCreated != nil {
		s.onCreated(created.Response.ID)
		s.onCreated = nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	debug.Log("server", "sse event", "type", event.EventType(), "seq", event.Base().SequenceNumber)

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event.EventType(), data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	if api.IsTerminal(event.EventType()) {
		if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
			return fmt.Errorf("failed to write [DONE]: %w", err)
		}
		if err := s.rc.Flush(); err != nil {
			return fmt.Errorf("failed to flush [DONE]: %w", err)
		}
		s.state = writerCompleted
	}
	return nil
}

// WriteResponse sends a complete JSON response. It cannot follow WriteEvent.
func (s *sseResponseWriter) WriteResponse(ctx context.Context, resp *api.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case writerStreaming:
		return errors.New("cannot write response: streaming has already started")
	case writerCompleted:
		return errors.New("cannot write response: writer is completed")
	}

	s.w.Header().Set("Content-Type", "application/json")
	s.state = writerCompleted
	if err := json.NewEncoder(s.w).Encode(resp); err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	return nil
}

func (s *sseResponseWriter) Flush() error {
	return s.rc.Flush()
}

// hasStartedStreaming reports whether events were written and the stream
// is still open.
func (s *sseResponseWriter) hasStartedStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == writerStreaming
}

func (s *sseResponseWriter) isCompleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == writerCompleted
}
