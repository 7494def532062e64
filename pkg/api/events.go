package api

import (
	"encoding/json"

	"github.com/rhuss/respkit/pkg/codec"
)

// StreamEventType identifies the type of a streaming event.
type StreamEventType string

// Lifecycle events carry a snapshot of the whole response.
const (
	EventResponseCreated    StreamEventType = "response.created"
	EventResponseQueued     StreamEventType = "response.queued"
	EventResponseInProgress StreamEventType = "response.in_progress"
	EventResponseCompleted  StreamEventType = "response.completed"
	EventResponseFailed     StreamEventType = "response.failed"
	EventResponseIncomplete StreamEventType = "response.incomplete"
)

// Output events describe items and content as they are produced.
const (
	EventOutputItemAdded          StreamEventType = "response.output_item.added"
	EventOutputItemDone           StreamEventType = "response.output_item.done"
	EventContentPartAdded         StreamEventType = "response.content_part.added"
	EventContentPartDone          StreamEventType = "response.content_part.done"
	EventOutputTextDelta          StreamEventType = "response.output_text.delta"
	EventOutputTextDone           StreamEventType = "response.output_text.done"
	EventOutputTextAnnotation     StreamEventType = "response.output_text.annotation.added"
	EventRefusalDelta             StreamEventType = "response.refusal.delta"
	EventRefusalDone              StreamEventType = "response.refusal.done"
	EventFunctionCallArgsDelta    StreamEventType = "response.function_call_arguments.delta"
	EventFunctionCallArgsDone     StreamEventType = "response.function_call_arguments.done"
	EventReasoningSummaryPartAdd  StreamEventType = "response.reasoning_summary_part.added"
	EventReasoningSummaryPartDone StreamEventType = "response.reasoning_summary_part.done"
	EventReasoningSummaryDelta    StreamEventType = "response.reasoning_summary_text.delta"
	EventReasoningSummaryDone     StreamEventType = "response.reasoning_summary_text.done"
)

// Hosted tool events report progress of server-side tool calls.
const (
	EventFileSearchInProgress         StreamEventType = "response.file_search_call.in_progress"
	EventFileSearchSearching          StreamEventType = "response.file_search_call.searching"
	EventFileSearchCompleted          StreamEventType = "response.file_search_call.completed"
	EventWebSearchInProgress          StreamEventType = "response.web_search_call.in_progress"
	EventWebSearchSearching           StreamEventType = "response.web_search_call.searching"
	EventWebSearchCompleted           StreamEventType = "response.web_search_call.completed"
	EventImageGenInProgress           StreamEventType = "response.image_generation_call.in_progress"
	EventImageGenGenerating           StreamEventType = "response.image_generation_call.generating"
	EventImageGenCompleted            StreamEventType = "response.image_generation_call.completed"
	EventImageGenPartialImage         StreamEventType = "response.image_generation_call.partial_image"
	EventMCPCallInProgress            StreamEventType = "response.mcp_call.in_progress"
	EventMCPCallCompleted             StreamEventType = "response.mcp_call.completed"
	EventMCPCallFailed                StreamEventType = "response.mcp_call.failed"
	EventMCPCallArgsDelta             StreamEventType = "response.mcp_call_arguments.delta"
	EventMCPCallArgsDone              StreamEventType = "response.mcp_call_arguments.done"
	EventMCPListToolsInProgress       StreamEventType = "response.mcp_list_tools.in_progress"
	EventMCPListToolsCompleted        StreamEventType = "response.mcp_list_tools.completed"
	EventMCPListToolsFailed           StreamEventType = "response.mcp_list_tools.failed"
	EventCodeInterpreterInProgress    StreamEventType = "response.code_interpreter_call.in_progress"
	EventCodeInterpreterInterpreting  StreamEventType = "response.code_interpreter_call.interpreting"
	EventCodeInterpreterCompleted     StreamEventType = "response.code_interpreter_call.completed"
	EventCodeInterpreterCodeDelta     StreamEventType = "response.code_interpreter_call_code.delta"
	EventCodeInterpreterCodeDone      StreamEventType = "response.code_interpreter_call_code.done"
)

// EventError reports a stream-level error.
const EventError StreamEventType = "error"

// StreamEvent is one server-sent event of a streaming response.
type StreamEvent interface {
	EventType() StreamEventType
	Base() *EventBase
}

// EventBase holds the fields shared by every stream event.
type EventBase struct {
	SequenceNumber int `json:"sequence_number"`
}

// Base returns the shared fields for reading or updating.
func (b *EventBase) Base() *EventBase { return b }

// IsTerminal reports whether t ends a response stream.
func IsTerminal(t StreamEventType) bool {
	switch t {
	case EventResponseCompleted, EventResponseFailed, EventResponseIncomplete, EventError:
		return true
	}
	return false
}

// Payload shapes shared by several event types.

type ResponsePayload struct {
	EventBase
	Response *Response `json:"response"`
}

type OutputItemPayload struct {
	EventBase
	OutputIndex int  `json:"output_index"`
	Item        Item `json:"item"`
}

func (p *OutputItemPayload) UnmarshalJSON(data []byte) error {
	type alias OutputItemPayload
	var w struct {
		alias
		Item json.RawMessage `json:"item"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = OutputItemPayload(w.alias)
	if len(w.Item) == 0 {
		return nil
	}
	item, err := items.Decode(w.Item)
	if err != nil {
		return err
	}
	p.Item = item
	return nil
}

type ContentPartPayload struct {
	EventBase
	ItemID       string      `json:"item_id"`
	OutputIndex  int         `json:"output_index"`
	ContentIndex int         `json:"content_index"`
	Part         ContentPart `json:"part"`
}

func (p *ContentPartPayload) UnmarshalJSON(data []byte) error {
	type alias ContentPartPayload
	var w struct {
		alias
		Part json.RawMessage `json:"part"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = ContentPartPayload(w.alias)
	if len(w.Part) == 0 {
		return nil
	}
	part, err := contentParts.Decode(w.Part)
	if err != nil {
		return err
	}
	p.Part = part
	return nil
}

type TextDeltaPayload struct {
	EventBase
	ItemID       string         `json:"item_id"`
	OutputIndex  int            `json:"output_index"`
	ContentIndex int            `json:"content_index"`
	Delta        string         `json:"delta"`
	Logprobs     []TokenLogprob `json:"logprobs,omitempty"`
}

type TextDonePayload struct {
	EventBase
	ItemID       string         `json:"item_id"`
	OutputIndex  int            `json:"output_index"`
	ContentIndex int            `json:"content_index"`
	Text         string         `json:"text"`
	Logprobs     []TokenLogprob `json:"logprobs,omitempty"`
}

type AnnotationPayload struct {
	EventBase
	ItemID          string     `json:"item_id"`
	OutputIndex     int        `json:"output_index"`
	ContentIndex    int        `json:"content_index"`
	AnnotationIndex int        `json:"annotation_index"`
	Annotation      Annotation `json:"annotation"`
}

func (p *AnnotationPayload) UnmarshalJSON(data []byte) error {
	type alias AnnotationPayload
	var w struct {
		alias
		Annotation json.RawMessage `json:"annotation"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = AnnotationPayload(w.alias)
	if len(w.Annotation) == 0 {
		return nil
	}
	a, err := annotations.Decode(w.Annotation)
	if err != nil {
		return err
	}
	p.Annotation = a
	return nil
}

type RefusalDonePayload struct {
	EventBase
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Refusal      string `json:"refusal"`
}

// ItemDeltaPayload is an incremental update to a tool call item.
type ItemDeltaPayload struct {
	EventBase
	ItemID      string `json:"item_id"`
	OutputIndex int    `json:"output_index"`
	Delta       string `json:"delta"`
}

type ArgumentsDonePayload struct {
	EventBase
	ItemID      string `json:"item_id"`
	OutputIndex int    `json:"output_index"`
	Arguments   string `json:"arguments"`
}

type CodeDonePayload struct {
	EventBase
	ItemID      string `json:"item_id"`
	OutputIndex int    `json:"output_index"`
	Code        string `json:"code"`
}

// ToolProgressPayload identifies a hosted tool call changing state.
type ToolProgressPayload struct {
	EventBase
	ItemID      string `json:"item_id"`
	OutputIndex int    `json:"output_index"`
}

type PartialImagePayload struct {
	EventBase
	ItemID            string `json:"item_id"`
	OutputIndex       int    `json:"output_index"`
	PartialImageIndex int    `json:"partial_image_index"`
	PartialImageB64   string `json:"partial_image_b64"`
}

type SummaryPartPayload struct {
	EventBase
	ItemID       string      `json:"item_id"`
	OutputIndex  int         `json:"output_index"`
	SummaryIndex int         `json:"summary_index"`
	Part         SummaryText `json:"part"`
}

type SummaryDeltaPayload struct {
	EventBase
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	SummaryIndex int    `json:"summary_index"`
	Delta        string `json:"delta"`
}

type SummaryDonePayload struct {
	EventBase
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	SummaryIndex int    `json:"summary_index"`
	Text         string `json:"text"`
}

// One type per wire token. Each embeds its payload shape and encodes
// with its own fixed discriminator.

type ResponseCreatedEvent struct{ ResponsePayload }
type ResponseQueuedEvent struct{ ResponsePayload }
type ResponseInProgressEvent struct{ ResponsePayload }
type ResponseCompletedEvent struct{ ResponsePayload }
type ResponseFailedEvent struct{ ResponsePayload }
type ResponseIncompleteEvent struct{ ResponsePayload }

func (*ResponseCreatedEvent) EventType() StreamEventType    { return EventResponseCreated }
func (*ResponseQueuedEvent) EventType() StreamEventType     { return EventResponseQueued }
func (*ResponseInProgressEvent) EventType() StreamEventType { return EventResponseInProgress }
func (*ResponseCompletedEvent) EventType() StreamEventType  { return EventResponseCompleted }
func (*ResponseFailedEvent) EventType() StreamEventType     { return EventResponseFailed }
func (*ResponseIncompleteEvent) EventType() StreamEventType { return EventResponseIncomplete }

func (e ResponseCreatedEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventResponseCreated, e.ResponsePayload)
}
func (e ResponseQueuedEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventResponseQueued, e.ResponsePayload)
}
func (e ResponseInProgressEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventResponseInProgress, e.ResponsePayload)
}
func (e ResponseCompletedEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventResponseCompleted, e.ResponsePayload)
}
func (e ResponseFailedEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventResponseFailed, e.ResponsePayload)
}
func (e ResponseIncompleteEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventResponseIncomplete, e.ResponsePayload)
}

type OutputItemAddedEvent struct{ OutputItemPayload }
type OutputItemDoneEvent struct{ OutputItemPayload }

func (*OutputItemAddedEvent) EventType() StreamEventType { return EventOutputItemAdded }
func (*OutputItemDoneEvent) EventType() StreamEventType  { return EventOutputItemDone }

func (e OutputItemAddedEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventOutputItemAdded, e.OutputItemPayload)
}
func (e OutputItemDoneEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventOutputItemDone, e.OutputItemPayload)
}

type ContentPartAddedEvent struct{ ContentPartPayload }
type ContentPartDoneEvent struct{ ContentPartPayload }

func (*ContentPartAddedEvent) EventType() StreamEventType { return EventContentPartAdded }
func (*ContentPartDoneEvent) EventType() StreamEventType  { return EventContentPartDone }

func (e ContentPartAddedEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventContentPartAdded, e.ContentPartPayload)
}
func (e ContentPartDoneEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventContentPartDone, e.ContentPartPayload)
}

type OutputTextDeltaEvent struct{ TextDeltaPayload }
type OutputTextDoneEvent struct{ TextDonePayload }
type OutputTextAnnotationAddedEvent struct{ AnnotationPayload }
type RefusalDeltaEvent struct{ TextDeltaPayload }
type RefusalDoneEvent struct{ RefusalDonePayload }

func (*OutputTextDeltaEvent) EventType() StreamEventType           { return EventOutputTextDelta }
func (*OutputTextDoneEvent) EventType() StreamEventType            { return EventOutputTextDone }
func (*OutputTextAnnotationAddedEvent) EventType() StreamEventType { return EventOutputTextAnnotation }
func (*RefusalDeltaEvent) EventType() StreamEventType              { return EventRefusalDelta }
func (*RefusalDoneEvent) EventType() StreamEventType               { return EventRefusalDone }

func (e OutputTextDeltaEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventOutputTextDelta, e.TextDeltaPayload)
}
func (e OutputTextDoneEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventOutputTextDone, e.TextDonePayload)
}
func (e OutputTextAnnotationAddedEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventOutputTextAnnotation, e.AnnotationPayload)
}
func (e RefusalDeltaEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventRefusalDelta, e.TextDeltaPayload)
}
func (e RefusalDoneEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventRefusalDone, e.RefusalDonePayload)
}

type FunctionCallArgumentsDeltaEvent struct{ ItemDeltaPayload }
type FunctionCallArgumentsDoneEvent struct{ ArgumentsDonePayload }
type MCPCallArgumentsDeltaEvent struct{ ItemDeltaPayload }
type MCPCallArgumentsDoneEvent struct{ ArgumentsDonePayload }
type CodeInterpreterCodeDeltaEvent struct{ ItemDeltaPayload }
type CodeInterpreterCodeDoneEvent struct{ CodeDonePayload }

func (*FunctionCallArgumentsDeltaEvent) EventType() StreamEventType { return EventFunctionCallArgsDelta }
func (*FunctionCallArgumentsDoneEvent) EventType() StreamEventType  { return EventFunctionCallArgsDone }
func (*MCPCallArgumentsDeltaEvent) EventType() StreamEventType      { return EventMCPCallArgsDelta }
func (*MCPCallArgumentsDoneEvent) EventType() StreamEventType       { return EventMCPCallArgsDone }
func (*CodeInterpreterCodeDeltaEvent) EventType() StreamEventType   { return EventCodeInterpreterCodeDelta }
func (*CodeInterpreterCodeDoneEvent) EventType() StreamEventType    { return EventCodeInterpreterCodeDone }

func (e FunctionCallArgumentsDeltaEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventFunctionCallArgsDelta, e.ItemDeltaPayload)
}
func (e FunctionCallArgumentsDoneEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventFunctionCallArgsDone, e.ArgumentsDonePayload)
}
func (e MCPCallArgumentsDeltaEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventMCPCallArgsDelta, e.ItemDeltaPayload)
}
func (e MCPCallArgumentsDoneEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventMCPCallArgsDone, e.ArgumentsDonePayload)
}
func (e CodeInterpreterCodeDeltaEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventCodeInterpreterCodeDelta, e.ItemDeltaPayload)
}
func (e CodeInterpreterCodeDoneEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventCodeInterpreterCodeDone, e.CodeDonePayload)
}

type ReasoningSummaryPartAddedEvent struct{ SummaryPartPayload }
type ReasoningSummaryPartDoneEvent struct{ SummaryPartPayload }
type ReasoningSummaryTextDeltaEvent struct{ SummaryDeltaPayload }
type ReasoningSummaryTextDoneEvent struct{ SummaryDonePayload }

func (*ReasoningSummaryPartAddedEvent) EventType() StreamEventType { return EventReasoningSummaryPartAdd }
func (*ReasoningSummaryPartDoneEvent) EventType() StreamEventType  { return EventReasoningSummaryPartDone }
func (*ReasoningSummaryTextDeltaEvent) EventType() StreamEventType { return EventReasoningSummaryDelta }
func (*ReasoningSummaryTextDoneEvent) EventType() StreamEventType  { return EventReasoningSummaryDone }

func (e ReasoningSummaryPartAddedEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventReasoningSummaryPartAdd, e.SummaryPartPayload)
}
func (e ReasoningSummaryPartDoneEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventReasoningSummaryPartDone, e.SummaryPartPayload)
}
func (e ReasoningSummaryTextDeltaEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventReasoningSummaryDelta, e.SummaryDeltaPayload)
}
func (e ReasoningSummaryTextDoneEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventReasoningSummaryDone, e.SummaryDonePayload)
}

// ToolProgressEvent covers every hosted tool state change; all of them
// share one shape. Unlike the other event types it stores its wire type,
// which decoding guarantees is one of the hosted tool progress tokens.
type ToolProgressEvent struct {
	Type StreamEventType `json:"-"`
	ToolProgressPayload
}

func (e *ToolProgressEvent) EventType() StreamEventType { return e.Type }

func (e ToolProgressEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(e.Type, e.ToolProgressPayload)
}

var toolProgressTypes = []StreamEventType{
	EventFileSearchInProgress, EventFileSearchSearching, EventFileSearchCompleted,
	EventWebSearchInProgress, EventWebSearchSearching, EventWebSearchCompleted,
	EventImageGenInProgress, EventImageGenGenerating, EventImageGenCompleted,
	EventMCPCallInProgress, EventMCPCallCompleted, EventMCPCallFailed,
	EventMCPListToolsInProgress, EventMCPListToolsCompleted, EventMCPListToolsFailed,
	EventCodeInterpreterInProgress, EventCodeInterpreterInterpreting, EventCodeInterpreterCompleted,
}

type ImageGenerationPartialImageEvent struct{ PartialImagePayload }

func (*ImageGenerationPartialImageEvent) EventType() StreamEventType {
	return EventImageGenPartialImage
}

func (e ImageGenerationPartialImageEvent) MarshalJSON() ([]byte, error) {
	return encodeEvent(EventImageGenPartialImage, e.PartialImagePayload)
}

// ErrorEvent reports an error that ends the stream.
type ErrorEvent struct {
	EventBase
	Code    *string `json:"code,omitempty"`
	Message string  `json:"message"`
	Param   *string `json:"param,omitempty"`
}

func (*ErrorEvent) EventType() StreamEventType { return EventError }

func (e ErrorEvent) MarshalJSON() ([]byte, error) {
	type alias ErrorEvent
	return encodeEvent(EventError, alias(e))
}

// UnknownEvent is an event of a type this package does not know.
type UnknownEvent struct {
	Type StreamEventType `json:"type,omitempty"`
	EventBase
}

func (e *UnknownEvent) EventType() StreamEventType { return e.Type }

func encodeEvent(t StreamEventType, payload any) ([]byte, error) {
	return codec.Encode(string(t), payload)
}

var streamEvents = func() *codec.Registry[StreamEvent] {
	r := codec.NewRegistry[StreamEvent]("stream_event", func(data []byte) (StreamEvent, error) {
		e := new(UnknownEvent)
		return e, json.Unmarshal(data, e)
	})

	codec.Variant[StreamEvent, ResponseCreatedEvent](r, string(EventResponseCreated), "response")
	codec.Variant[StreamEvent, ResponseQueuedEvent](r, string(EventResponseQueued), "response")
	codec.Variant[StreamEvent, ResponseInProgressEvent](r, string(EventResponseInProgress), "response")
	codec.Variant[StreamEvent, ResponseCompletedEvent](r, string(EventResponseCompleted), "response")
	codec.Variant[StreamEvent, ResponseFailedEvent](r, string(EventResponseFailed), "response")
	codec.Variant[StreamEvent, ResponseIncompleteEvent](r, string(EventResponseIncomplete), "response")

	codec.Variant[StreamEvent, OutputItemAddedEvent](r, string(EventOutputItemAdded), "item")
	codec.Variant[StreamEvent, OutputItemDoneEvent](r, string(EventOutputItemDone), "item")
	codec.Variant[StreamEvent, ContentPartAddedEvent](r, string(EventContentPartAdded), "part")
	codec.Variant[StreamEvent, ContentPartDoneEvent](r, string(EventContentPartDone), "part")
	codec.Variant[StreamEvent, OutputTextDeltaEvent](r, string(EventOutputTextDelta), "delta")
	codec.Variant[StreamEvent, OutputTextDoneEvent](r, string(EventOutputTextDone), "text")
	codec.Variant[StreamEvent, OutputTextAnnotationAddedEvent](r, string(EventOutputTextAnnotation), "annotation")
	codec.Variant[StreamEvent, RefusalDeltaEvent](r, string(EventRefusalDelta), "delta")
	codec.Variant[StreamEvent, RefusalDoneEvent](r, string(EventRefusalDone), "refusal")

	codec.Variant[StreamEvent, FunctionCallArgumentsDeltaEvent](r, string(EventFunctionCallArgsDelta), "delta")
	codec.Variant[StreamEvent, FunctionCallArgumentsDoneEvent](r, string(EventFunctionCallArgsDone), "arguments")
	codec.Variant[StreamEvent, MCPCallArgumentsDeltaEvent](r, string(EventMCPCallArgsDelta), "delta")
	codec.Variant[StreamEvent, MCPCallArgumentsDoneEvent](r, string(EventMCPCallArgsDone), "arguments")
	codec.Variant[StreamEvent, CodeInterpreterCodeDeltaEvent](r, string(EventCodeInterpreterCodeDelta), "delta")
	codec.Variant[StreamEvent, CodeInterpreterCodeDoneEvent](r, string(EventCodeInterpreterCodeDone), "code")

	codec.Variant[StreamEvent, ReasoningSummaryPartAddedEvent](r, string(EventReasoningSummaryPartAdd), "part")
	codec.Variant[StreamEvent, ReasoningSummaryPartDoneEvent](r, string(EventReasoningSummaryPartDone), "part")
	codec.Variant[StreamEvent, ReasoningSummaryTextDeltaEvent](r, string(EventReasoningSummaryDelta), "delta")
	codec.Variant[StreamEvent, ReasoningSummaryTextDoneEvent](r, string(EventReasoningSummaryDone), "text")

	codec.Variant[StreamEvent, ImageGenerationPartialImageEvent](r, string(EventImageGenPartialImage), "partial_image_b64")
	codec.Variant[StreamEvent, ErrorEvent](r, string(EventError), "message")

	for _, t := range toolProgressTypes {
		r.Register(string(t), func(data []byte) (StreamEvent, error) {
			e := &ToolProgressEvent{Type: t}
			if err := json.Unmarshal(data, &e.ToolProgressPayload); err != nil {
				return nil, err
			}
			return e, nil
		})
	}
	return r
}()

// DecodeStreamEvent decodes the data of one server-sent event.
func DecodeStreamEvent(data []byte) (StreamEvent, error) { return streamEvents.Decode(data) }

// KnownStreamEvent reports whether t has a dedicated event type.
func KnownStreamEvent(t StreamEventType) bool { return streamEvents.Known(string(t)) }

// StreamEventTypes lists the event types this package decodes.
func StreamEventTypes() []string { return streamEvents.Discriminators() }
