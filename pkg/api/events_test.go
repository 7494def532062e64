package api

import (
	"encoding/json"
	"sort"
	"strings"
	"testing"

	"github.com/rhuss/respkit/pkg/codec"
)

func TestStreamEventRoundTrip(t *testing.T) {
	resp := &Response{ID: "resp_1", Object: ObjectResponse, CreatedAt: 1700000000, Status: ResponseStatusInProgress, Model: "stub", Output: Items{}}
	msg := &Message{ItemBase: ItemBase{ID: "msg_1", Status: ItemStatusInProgress}, Role: RoleAssistant, Content: ContentParts{}}
	base := func(n int) EventBase { return EventBase{SequenceNumber: n} }

	tests := []StreamEvent{
		&ResponseCreatedEvent{ResponsePayload{base(0), resp}},
		&ResponseQueuedEvent{ResponsePayload{base(0), resp}},
		&ResponseInProgressEvent{ResponsePayload{base(1), resp}},
		&ResponseCompletedEvent{ResponsePayload{base(9), resp}},
		&ResponseFailedEvent{ResponsePayload{base(9), resp}},
		&ResponseIncompleteEvent{ResponsePayload{base(9), resp}},
		&OutputItemAddedEvent{OutputItemPayload{EventBase: base(2), OutputIndex: 0, Item: msg}},
		&OutputItemDoneEvent{OutputItemPayload{EventBase: base(8), OutputIndex: 0, Item: &FunctionCall{CallID: "c", Name: "f", Arguments: "{}"}}},
		&ContentPartAddedEvent{ContentPartPayload{EventBase: base(3), ItemID: "msg_1", Part: &OutputText{Text: "", Annotations: Annotations{}}}},
		&ContentPartDoneEvent{ContentPartPayload{EventBase: base(6), ItemID: "msg_1", ContentIndex: 1, Part: &Refusal{Refusal: "no"}}},
		&OutputTextDeltaEvent{TextDeltaPayload{EventBase: base(4), ItemID: "msg_1", Delta: "Hel"}},
		&OutputTextDoneEvent{TextDonePayload{EventBase: base(5), ItemID: "msg_1", Text: "Hello"}},
		&OutputTextAnnotationAddedEvent{AnnotationPayload{EventBase: base(5), ItemID: "msg_1", AnnotationIndex: 0, Annotation: &URLCitation{URL: "https://example.com", EndIndex: 5}}},
		&RefusalDeltaEvent{TextDeltaPayload{EventBase: base(4), ItemID: "msg_1", Delta: "I can"}},
		&RefusalDoneEvent{RefusalDonePayload{EventBase: base(5), ItemID: "msg_1", Refusal: "I cannot"}},
		&FunctionCallArgumentsDeltaEvent{ItemDeltaPayload{EventBase: base(3), ItemID: "fc_1", Delta: `{"ci`}},
		&FunctionCallArgumentsDoneEvent{ArgumentsDonePayload{EventBase: base(4), ItemID: "fc_1", Arguments: `{"city":"Oslo"}`}},
		&MCPCallArgumentsDeltaEvent{ItemDeltaPayload{EventBase: base(3), ItemID: "mcp_1", Delta: "{"}},
		&MCPCallArgumentsDoneEvent{ArgumentsDonePayload{EventBase: base(4), ItemID: "mcp_1", Arguments: "{}"}},
		&CodeInterpreterCodeDeltaEvent{ItemDeltaPayload{EventBase: base(3), ItemID: "ci_1", Delta: "pri"}},
		&CodeInterpreterCodeDoneEvent{CodeDonePayload{EventBase: base(4), ItemID: "ci_1", Code: "print(1)"}},
		&ReasoningSummaryPartAddedEvent{SummaryPartPayload{EventBase: base(3), ItemID: "rs_1", Part: SummaryText{Text: ""}}},
		&ReasoningSummaryPartDoneEvent{SummaryPartPayload{EventBase: base(6), ItemID: "rs_1", Part: SummaryText{Text: "done"}}},
		&ReasoningSummaryTextDeltaEvent{SummaryDeltaPayload{EventBase: base(4), ItemID: "rs_1", Delta: "do"}},
		&ReasoningSummaryTextDoneEvent{SummaryDonePayload{EventBase: base(5), ItemID: "rs_1", Text: "done"}},
		&ImageGenerationPartialImageEvent{PartialImagePayload{EventBase: base(4), ItemID: "ig_1", PartialImageIndex: 1, PartialImageB64: "AAAA"}},
		&ToolProgressEvent{Type: EventWebSearchSearching, ToolProgressPayload: ToolProgressPayload{EventBase: base(3), ItemID: "ws_1", OutputIndex: 2}},
		&ToolProgressEvent{Type: EventMCPListToolsFailed, ToolProgressPayload: ToolProgressPayload{EventBase: base(3), ItemID: "mcpl_1"}},
		&ErrorEvent{EventBase: base(7), Code: Ptr("server_error"), Message: "boom"},
	}

	for _, want := range tests {
		t.Run(string(want.EventType()), func(t *testing.T) {
			data := mustMarshal(t, want)
			if got, _ := codec.Peek(data); got != string(want.EventType()) {
				t.Errorf("encoded type = %q, want %q", got, want.EventType())
			}
			got, err := DecodeStreamEvent(data)
			if err != nil {
				t.Fatalf("DecodeStreamEvent error: %v\nJSON: %s", err, data)
			}
			assertDeepEqual(t, got, want)
		})
	}
}

func TestStreamEventWireShape(t *testing.T) {
	ev := &OutputTextDeltaEvent{TextDeltaPayload{EventBase: EventBase{SequenceNumber: 4}, ItemID: "msg_1", OutputIndex: 0, ContentIndex: 0, Delta: "Hi"}}
	var m map[string]any
	if err := json.Unmarshal(mustMarshal(t, ev), &m); err != nil {
		t.Fatal(err)
	}
	want := []string{"content_index", "delta", "item_id", "output_index", "sequence_number", "type"}
	got := make([]string, 0, len(m))
	for k := range m {
		got = append(got, k)
	}
	sort.Strings(got)
	assertDeepEqual(t, got, want)
}

func TestDecodeStreamEventUnknown(t *testing.T) {
	got, err := DecodeStreamEvent([]byte(`{"type":"response.audio.delta","sequence_number":12,"delta":"AAA"}`))
	if err != nil {
		t.Fatalf("DecodeStreamEvent error: %v", err)
	}
	assertDeepEqual(t, got, &UnknownEvent{Type: "response.audio.delta", EventBase: EventBase{SequenceNumber: 12}})
	if KnownStreamEvent("response.audio.delta") {
		t.Error("KnownStreamEvent reported an unregistered type as known")
	}
}

func TestDecodeStreamEventNestedUnknownItem(t *testing.T) {
	data := []byte(`{"type":"response.output_item.added","sequence_number":2,"output_index":0,"item":{"type":"future_call","id":"fu_1","status":"in_progress"}}`)
	got, err := DecodeStreamEvent(data)
	if err != nil {
		t.Fatalf("DecodeStreamEvent error: %v", err)
	}
	ev, ok := got.(*OutputItemAddedEvent)
	if !ok {
		t.Fatalf("got %T, want *OutputItemAddedEvent", got)
	}
	if _, ok := ev.Item.(*UnknownItem); !ok {
		t.Errorf("Item = %T, want *UnknownItem", ev.Item)
	}
	if ev.Base().SequenceNumber != 2 {
		t.Errorf("sequence = %d, want 2", ev.Base().SequenceNumber)
	}
}

func TestDecodeStreamEventMissingField(t *testing.T) {
	_, err := DecodeStreamEvent([]byte(`{"type":"response.output_text.delta","sequence_number":1}`))
	if err == nil || !strings.Contains(err.Error(), "delta") {
		t.Errorf("error = %v, want missing delta", err)
	}
}

func TestEverySpecificEventTypeIsRegistered(t *testing.T) {
	for _, typ := range toolProgressTypes {
		if !KnownStreamEvent(typ) {
			t.Errorf("%s not registered", typ)
		}
	}
	for _, typ := range []StreamEventType{EventResponseCreated, EventOutputTextDelta, EventOutputTextAnnotation, EventImageGenPartialImage, EventError} {
		if !KnownStreamEvent(typ) {
			t.Errorf("%s not registered", typ)
		}
	}
	if n := len(StreamEventTypes()); n != 45 {
		t.Errorf("registered %d event types, want 45", n)
	}
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		typ  StreamEventType
		want bool
	}{
		{EventResponseCompleted, true},
		{EventResponseFailed, true},
		{EventResponseIncomplete, true},
		{EventError, true},
		{EventResponseCreated, false},
		{EventOutputTextDelta, false},
	}
	for _, tt := range tests {
		if got := IsTerminal(tt.typ); got != tt.want {
			t.Errorf("IsTerminal(%s) = %v, want %v", tt.typ, got, tt.want)
		}
	}
}
