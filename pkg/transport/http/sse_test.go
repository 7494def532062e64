package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rhuss/respkit/pkg/api"
)

func TestWriteResponseJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newSSEResponseWriter(rec, nil)

	resp := &api.Response{ID: "resp_abc123", Object: api.ObjectResponse, Status: api.ResponseStatusCompleted, Model: "test-model"}
	if err := rw.WriteResponse(context.Background(), resp); err != nil {
		t.Fatalf("WriteResponse error: %v", err)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), `"id":"resp_abc123"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if err := rw.WriteResponse(context.Background(), resp); err == nil {
		t.Error("second WriteResponse should fail")
	}
}

func TestWriteEventSSEFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newSSEResponseWriter(rec, nil)

	event := &api.OutputTextDeltaEvent{TextDeltaPayload: api.TextDeltaPayload{
		EventBase: api.EventBase{SequenceNumber: 1},
		ItemID:    "item_001",
		Delta:     "Hello",
	}}
	if err := rw.WriteEvent(context.Background(), event); err != nil {
		t.Fatalf("WriteEvent error: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	frame := rec.Body.String()
	if !strings.HasPrefix(frame, "event: response.output_text.delta\ndata: ") || !strings.HasSuffix(frame, "\n\n") {
		t.Fatalf("frame = %q", frame)
	}

	data := strings.TrimSuffix(strings.TrimPrefix(frame, "event: response.output_text.delta\ndata: "), "\n\n")
	got, err := api.DecodeStreamEvent([]byte(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	delta, ok := got.(*api.OutputTextDeltaEvent)
	if !ok || delta.Delta != "Hello" || delta.SequenceNumber != 1 {
		t.Errorf("decoded %#v", got)
	}
	if strings.Contains(frame, "[DONE]") {
		t.Error("non-terminal event must not end the stream")
	}
}

func TestTerminalEventSendsDone(t *testing.T) {
	tests := []struct {
		name  string
		event api.StreamEvent
	}{
		{"completed", &api.ResponseCompletedEvent{ResponsePayload: api.ResponsePayload{Response: &api.Response{ID: "resp_x"}}}},
		{"failed", &api.ResponseFailedEvent{ResponsePayload: api.ResponsePayload{Response: &api.Response{ID: "resp_x"}}}},
		{"incomplete", &api.ResponseIncompleteEvent{ResponsePayload: api.ResponsePayload{Response: &api.Response{ID: "resp_x"}}}},
		{"error", &api.ErrorEvent{Message: "boom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			rw := newSSEResponseWriter(rec, nil)
			if err := rw.WriteEvent(context.Background(), tt.event); err != nil {
				t.Fatal(err)
			}
			if !strings.HasSuffix(rec.Body.String(), "data: [DONE]\n\n") {
				t.Errorf("body = %q", rec.Body.String())
			}
			if err := rw.WriteEvent(context.Background(), tt.event); err == nil {
				t.Error("event after terminal event should fail")
			}
		})
	}
}

func TestWriteResponseAfterEventFails(t *testing.T) {
	rw := newSSEResponseWriter(httptest.NewRecorder(), nil)
	rw.WriteEvent(context.Background(), &api.ResponseInProgressEvent{})
	if err := rw.WriteResponse(context.Background(), &api.Response{}); err == nil {
		t.Error("WriteResponse after WriteEvent should fail")
	}
	if !rw.hasStartedStreaming() {
		t.Error("hasStartedStreaming = false")
	}
}

func TestOnCreatedCalledOnce(t *testing.T) {
	var ids []string
	rw := newSSEResponseWriter(httptest.NewRecorder(), func(id string) { ids = append(ids, id) })

	created := &api.ResponseCreatedEvent{ResponsePayload: api.ResponsePayload{Response: &api.Response{ID: "resp_1"}}}
	rw.WriteEvent(context.Background(), created)
	rw.WriteEvent(context.Background(), created)

	if len(ids) != 1 || ids[0] != "resp_1" {
		t.Errorf("onCreated calls = %v", ids)
	}
}
