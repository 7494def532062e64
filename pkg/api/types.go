package api

import (
	"encoding/json"
	"strings"

	"github.com/rhuss/respkit/pkg/codec"
)

// Ptr returns a pointer to v. It is the usual way to fill optional fields
// in a struct literal.
func Ptr[T any](v T) *T { return &v }

// Input is the input of a request: either a plain string, which stands for
// a single user message, or a list of items.
type Input struct {
	Text  *string
	Items Items
}

// NewInputText returns input consisting of a single user message.
func NewInputText(text string) *Input { return &Input{Text: &text} }

// NewInputItems returns input consisting of the given items.
func NewInputItems(items ...Item) *Input { return &Input{Items: items} }

// AsItems returns the input as a list of items, expanding the string form
// to a user message.
func (in *Input) AsItems() Items {
	if in == nil {
		return nil
	}
	if in.Items != nil {
		return in.Items
	}
	if in.Text != nil {
		return Items{NewUserMessage(*in.Text)}
	}
	return nil
}

// Len returns the number of items the input stands for.
func (in *Input) Len() int { return len(in.AsItems()) }

func (in Input) MarshalJSON() ([]byte, error) {
	if in.Items != nil {
		return json.Marshal([]Item(in.Items))
	}
	if in.Text != nil {
		return json.Marshal(*in.Text)
	}
	return []byte("[]"), nil
}

func (in *Input) UnmarshalJSON(data []byte) error {
	data = []byte(strings.TrimSpace(string(data)))
	switch {
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return &codec.DecodeError{Type: "input", Err: err}
		}
		*in = Input{Text: &s}
		return nil
	case len(data) > 0 && data[0] == '[':
		list, err := items.DecodeList(data)
		if err != nil {
			return err
		}
		*in = Input{Items: list}
		return nil
	case string(data) == "null":
		*in = Input{}
		return nil
	}
	return &codec.DecodeError{Type: "input", Err: errInputShape}
}

// ReasoningConfig configures reasoning models.
type ReasoningConfig struct {
	Effort  *ReasoningEffort  `json:"effort,omitempty"`
	Summary *ReasoningSummary `json:"summary,omitempty"`
}

// CreateResponsesRequest is the body of POST /responses. Only Model and
// Input are commonly required; everything else is optional and omitted
// from the wire when unset.
type CreateResponsesRequest struct {
	Model              string            `json:"model,omitempty"`
	Input              *Input            `json:"input,omitempty"`
	Instructions       *string           `json:"instructions,omitempty"`
	PreviousResponseID *string           `json:"previous_response_id,omitempty"`
	Temperature        *float64          `json:"temperature,omitempty"`
	TopP               *float64          `json:"top_p,omitempty"`
	TopLogprobs        *int              `json:"top_logprobs,omitempty"`
	MaxOutputTokens    *int              `json:"max_output_tokens,omitempty"`
	MaxToolCalls       *int              `json:"max_tool_calls,omitempty"`
	Tools              Tools             `json:"tools,omitempty"`
	ToolChoice         *ToolChoice       `json:"tool_choice,omitempty"`
	ParallelToolCalls  *bool             `json:"parallel_tool_calls,omitempty"`
	Text               *TextConfig       `json:"text,omitempty"`
	Reasoning          *ReasoningConfig  `json:"reasoning,omitempty"`
	Truncation         *Truncation       `json:"truncation,omitempty"`
	Store              *bool             `json:"store,omitempty"`
	Stream             *bool             `json:"stream,omitempty"`
	Background         *bool             `json:"background,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	Include            []Includable      `json:"include,omitempty"`
	ServiceTier        *ServiceTier      `json:"service_tier,omitempty"`
	User               *string           `json:"user,omitempty"`
}

// IsStreaming reports whether the request asks for server-sent events.
func (r *CreateResponsesRequest) IsStreaming() bool { return r.Stream != nil && *r.Stream }

// IsBackground reports whether the request asks for asynchronous processing.
func (r *CreateResponsesRequest) IsBackground() bool { return r.Background != nil && *r.Background }

// ResolveStore returns the effective store value, defaulting to true when unset.
func (r *CreateResponsesRequest) ResolveStore() bool { return r.Store == nil || *r.Store }

// Response is a model response as returned by the API.
type Response struct {
	ID                 string             `json:"id"`
	Object             string             `json:"object"`
	CreatedAt          int64              `json:"created_at"`
	CompletedAt        *int64             `json:"completed_at,omitempty"`
	Status             ResponseStatus     `json:"status,omitempty"`
	Error              *APIError          `json:"error,omitempty"`
	IncompleteDetails  *IncompleteDetails `json:"incomplete_details,omitempty"`
	Model              string             `json:"model"`
	Instructions       *string            `json:"instructions,omitempty"`
	PreviousResponseID *string            `json:"previous_response_id,omitempty"`
	Output             Items              `json:"output"`
	Tools              Tools              `json:"tools,omitempty"`
	ToolChoice         *ToolChoice        `json:"tool_choice,omitempty"`
	ParallelToolCalls  *bool              `json:"parallel_tool_calls,omitempty"`
	Temperature        *float64           `json:"temperature,omitempty"`
	TopP               *float64           `json:"top_p,omitempty"`
	MaxOutputTokens    *int               `json:"max_output_tokens,omitempty"`
	Text               *TextConfig        `json:"text,omitempty"`
	Reasoning          *ReasoningConfig   `json:"reasoning,omitempty"`
	Truncation         *Truncation        `json:"truncation,omitempty"`
	Store              *bool              `json:"store,omitempty"`
	Background         *bool              `json:"background,omitempty"`
	ServiceTier        *ServiceTier       `json:"service_tier,omitempty"`
	Metadata           map[string]string  `json:"metadata,omitempty"`
	User               *string            `json:"user,omitempty"`
	Usage              *Usage             `json:"usage,omitempty"`
}

// ObjectResponse is the object tag of a Response.
const ObjectResponse = "response"

// MarshalJSON always writes output as an array.
func (r Response) MarshalJSON() ([]byte, error) {
	type alias Response
	if r.Output == nil {
		r.Output = Items{}
	}
	return json.Marshal(alias(r))
}

// OutputText concatenates the text of every output_text part of every
// assistant message in the output.
func (r *Response) OutputText() string {
	var b strings.Builder
	for _, it := range r.Output {
		if m, ok := it.(*Message); ok && m.Role == RoleAssistant {
			for _, p := range m.Content {
				if t, ok := p.(*OutputText); ok {
					b.WriteString(t.Text)
				}
			}
		}
	}
	return b.String()
}

// FunctionCalls returns the function calls in the output in order.
func (r *Response) FunctionCalls() []*FunctionCall {
	var calls []*FunctionCall
	for _, it := range r.Output {
		if fc, ok := it.(*FunctionCall); ok {
			calls = append(calls, fc)
		}
	}
	return calls
}

// IncompleteDetails explains why a response is incomplete.
type IncompleteDetails struct {
	Reason string `json:"reason,omitempty"`
}

// Usage reports token consumption.
type Usage struct {
	InputTokens         int                  `json:"input_tokens"`
	OutputTokens        int                  `json:"output_tokens"`
	TotalTokens         int                  `json:"total_tokens"`
	InputTokensDetails  *InputTokensDetails  `json:"input_tokens_details,omitempty"`
	OutputTokensDetails *OutputTokensDetails `json:"output_tokens_details,omitempty"`
}

type InputTokensDetails struct {
	CachedTokens int `json:"cached_tokens"`
}

type OutputTokensDetails struct {
	ReasoningTokens int `json:"reasoning_tokens"`
}

// ObjectList is the object tag of list results.
const ObjectList = "list"

// ItemList is a page of input items.
type ItemList struct {
	Object  string  `json:"object"`
	Data    Items   `json:"data"`
	FirstID *string `json:"first_id,omitempty"`
	LastID  *string `json:"last_id,omitempty"`
	HasMore bool    `json:"has_more"`
}

// NewItemList builds a page from data, filling the cursor fields.
func NewItemList(data Items, hasMore bool) *ItemList {
	l := &ItemList{Object: ObjectList, Data: data, HasMore: hasMore}
	if l.Data == nil {
		l.Data = Items{}
	}
	if n := len(data); n > 0 {
		l.FirstID = Ptr(data[0].Base().ID)
		l.LastID = Ptr(data[n-1].Base().ID)
	}
	return l
}

// ResponseList is a page of responses.
type ResponseList struct {
	Object  string      `json:"object"`
	Data    []*Response `json:"data"`
	FirstID *string     `json:"first_id,omitempty"`
	LastID  *string     `json:"last_id,omitempty"`
	HasMore bool        `json:"has_more"`
}

// NewResponseList builds a page from data, filling the cursor fields.
func NewResponseList(data []*Response, hasMore bool) *ResponseList {
	l := &ResponseList{Object: ObjectList, Data: data, HasMore: hasMore}
	if l.Data == nil {
		l.Data = []*Response{}
	}
	if n := len(data); n > 0 {
		l.FirstID = Ptr(data[0].ID)
		l.LastID = Ptr(data[n-1].ID)
	}
	return l
}

// DeleteResponseResult is returned by DELETE /responses/{id}.
type DeleteResponseResult struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// ObjectResponseDeleted is the object tag of a DeleteResponseResult.
const ObjectResponseDeleted = "response.deleted"
