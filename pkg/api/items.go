package api

import (
	"encoding/json"

	"github.com/rhuss/respkit/pkg/codec"
)

// ItemType is the discriminator of a conversation item.
type ItemType string

const (
	ItemTypeMessage              ItemType = "message"
	ItemTypeFunctionCall         ItemType = "function_call"
	ItemTypeFunctionCallOutput   ItemType = "function_call_output"
	ItemTypeComputerCall         ItemType = "computer_call"
	ItemTypeComputerCallOutput   ItemType = "computer_call_output"
	ItemTypeReasoning            ItemType = "reasoning"
	ItemTypeFileSearchCall       ItemType = "file_search_call"
	ItemTypeWebSearchCall        ItemType = "web_search_call"
	ItemTypeImageGenerationCall  ItemType = "image_generation_call"
	ItemTypeCodeInterpreterCall  ItemType = "code_interpreter_call"
	ItemTypeLocalShellCall       ItemType = "local_shell_call"
	ItemTypeLocalShellCallOutput ItemType = "local_shell_call_output"
	ItemTypeMCPListTools         ItemType = "mcp_list_tools"
	ItemTypeMCPApprovalRequest   ItemType = "mcp_approval_request"
	ItemTypeMCPApprovalResponse  ItemType = "mcp_approval_response"
	ItemTypeMCPCall              ItemType = "mcp_call"
	ItemTypeItemReference        ItemType = "item_reference"
)

// Item is a unit of conversation: an input the caller sends or an output
// the model produces. Every concrete item embeds ItemBase.
type Item interface {
	ItemType() ItemType
	Base() *ItemBase
}

// ItemBase holds the fields shared by every item type.
type ItemBase struct {
	ID     string     `json:"id,omitempty"`
	Status ItemStatus `json:"status,omitempty"`
}

// Base returns the shared fields for reading or updating.
func (b *ItemBase) Base() *ItemBase { return b }

// Message is a message from the user, system, developer or assistant.
type Message struct {
	ItemBase
	Role    Role         `json:"role"`
	Content ContentParts `json:"content"`
}

func (*Message) ItemType() ItemType { return ItemTypeMessage }

func (m Message) MarshalJSON() ([]byte, error) {
	type alias Message
	if m.Content == nil {
		m.Content = ContentParts{}
	}
	return codec.Encode(string(ItemTypeMessage), alias(m))
}

// FunctionCall is a call the model asks the caller to make.
type FunctionCall struct {
	ItemBase
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func (*FunctionCall) ItemType() ItemType { return ItemTypeFunctionCall }

func (f FunctionCall) MarshalJSON() ([]byte, error) {
	type alias FunctionCall
	return codec.Encode(string(ItemTypeFunctionCall), alias(f))
}

// FunctionCallOutput returns the result of a function call to the model.
type FunctionCallOutput struct {
	ItemBase
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

func (*FunctionCallOutput) ItemType() ItemType { return ItemTypeFunctionCallOutput }

func (f FunctionCallOutput) MarshalJSON() ([]byte, error) {
	type alias FunctionCallOutput
	return codec.Encode(string(ItemTypeFunctionCallOutput), alias(f))
}

// SafetyCheck is a pending or acknowledged computer-use safety check.
type SafetyCheck struct {
	ID      string `json:"id"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ComputerCall asks the caller to perform a computer action.
type ComputerCall struct {
	ItemBase
	CallID              string         `json:"call_id"`
	Action              ComputerAction `json:"action"`
	PendingSafetyChecks []SafetyCheck  `json:"pending_safety_checks"`
}

func (*ComputerCall) ItemType() ItemType { return ItemTypeComputerCall }

func (c ComputerCall) MarshalJSON() ([]byte, error) {
	type alias ComputerCall
	if c.PendingSafetyChecks == nil {
		c.PendingSafetyChecks = []SafetyCheck{}
	}
	return codec.Encode(string(ItemTypeComputerCall), alias(c))
}

func (c *ComputerCall) UnmarshalJSON(data []byte) error {
	type alias ComputerCall
	var w struct {
		alias
		Action json.RawMessage `json:"action"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = ComputerCall(w.alias)
	if len(w.Action) == 0 {
		return nil
	}
	action, err := computerActions.Decode(w.Action)
	if err != nil {
		return err
	}
	c.Action = action
	return nil
}

// ComputerScreenshot is the image returned for a computer call.
type ComputerScreenshot struct {
	ImageURL *string `json:"image_url,omitempty"`
	FileID   *string `json:"file_id,omitempty"`
}

func (s ComputerScreenshot) MarshalJSON() ([]byte, error) {
	type alias ComputerScreenshot
	return codec.Encode("computer_screenshot", alias(s))
}

func (s *ComputerScreenshot) UnmarshalJSON(data []byte) error {
	if err := fixedType("computer_screenshot", data); err != nil {
		return err
	}
	type alias ComputerScreenshot
	return json.Unmarshal(data, (*alias)(s))
}

// ComputerCallOutput returns the screenshot taken after a computer action.
type ComputerCallOutput struct {
	ItemBase
	CallID                   string             `json:"call_id"`
	Output                   ComputerScreenshot `json:"output"`
	AcknowledgedSafetyChecks []SafetyCheck      `json:"acknowledged_safety_checks,omitempty"`
}

func (*ComputerCallOutput) ItemType() ItemType { return ItemTypeComputerCallOutput }

func (c ComputerCallOutput) MarshalJSON() ([]byte, error) {
	type alias ComputerCallOutput
	return codec.Encode(string(ItemTypeComputerCallOutput), alias(c))
}

// Reasoning carries the model's reasoning summary and, when requested,
// its encrypted reasoning content.
type Reasoning struct {
	ItemBase
	Summary          []SummaryText   `json:"summary"`
	Content          []ReasoningText `json:"content,omitempty"`
	EncryptedContent *string         `json:"encrypted_content,omitempty"`
}

func (*Reasoning) ItemType() ItemType { return ItemTypeReasoning }

func (r Reasoning) MarshalJSON() ([]byte, error) {
	type alias Reasoning
	if r.Summary == nil {
		r.Summary = []SummaryText{}
	}
	return codec.Encode(string(ItemTypeReasoning), alias(r))
}

// FileSearchResult is one hit of a file search call.
type FileSearchResult struct {
	FileID     string         `json:"file_id,omitempty"`
	Filename   string         `json:"filename,omitempty"`
	Score      *float64       `json:"score,omitempty"`
	Text       string         `json:"text,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// FileSearchCall is a hosted file search performed by the model.
type FileSearchCall struct {
	ItemBase
	Queries []string           `json:"queries"`
	Results []FileSearchResult `json:"results,omitempty"`
}

func (*FileSearchCall) ItemType() ItemType { return ItemTypeFileSearchCall }

func (f FileSearchCall) MarshalJSON() ([]byte, error) {
	type alias FileSearchCall
	return codec.Encode(string(ItemTypeFileSearchCall), alias(f))
}

// WebSearchAction describes what a web search call did. Type is one of
// "search", "open_page" or "find".
type WebSearchAction struct {
	Type    string `json:"type"`
	Query   string `json:"query,omitempty"`
	URL     string `json:"url,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

// WebSearchCall is a hosted web search performed by the model.
type WebSearchCall struct {
	ItemBase
	Action *WebSearchAction `json:"action,omitempty"`
}

func (*WebSearchCall) ItemType() ItemType { return ItemTypeWebSearchCall }

func (w WebSearchCall) MarshalJSON() ([]byte, error) {
	type alias WebSearchCall
	return codec.Encode(string(ItemTypeWebSearchCall), alias(w))
}

// ImageGenerationCall is a hosted image generation. Result is base64 image data.
type ImageGenerationCall struct {
	ItemBase
	Result *string `json:"result,omitempty"`
}

func (*ImageGenerationCall) ItemType() ItemType { return ItemTypeImageGenerationCall }

func (i ImageGenerationCall) MarshalJSON() ([]byte, error) {
	type alias ImageGenerationCall
	return codec.Encode(string(ItemTypeImageGenerationCall), alias(i))
}

// CodeInterpreterOutput is a single output from code execution.
// Type is "logs" or "image".
type CodeInterpreterOutput struct {
	Type string `json:"type"`
	Logs string `json:"logs,omitempty"`
	URL  string `json:"url,omitempty"`
}

// CodeInterpreterCall is code run by the hosted code interpreter.
type CodeInterpreterCall struct {
	ItemBase
	ContainerID string                  `json:"container_id,omitempty"`
	Code        *string                 `json:"code,omitempty"`
	Outputs     []CodeInterpreterOutput `json:"outputs,omitempty"`
}

func (*CodeInterpreterCall) ItemType() ItemType { return ItemTypeCodeInterpreterCall }

func (c CodeInterpreterCall) MarshalJSON() ([]byte, error) {
	type alias CodeInterpreterCall
	return codec.Encode(string(ItemTypeCodeInterpreterCall), alias(c))
}

// LocalShellExec is the command a local shell call asks the caller to run.
type LocalShellExec struct {
	Command          []string          `json:"command"`
	Env              map[string]string `json:"env,omitempty"`
	TimeoutMS        *int              `json:"timeout_ms,omitempty"`
	User             *string           `json:"user,omitempty"`
	WorkingDirectory *string           `json:"working_directory,omitempty"`
}

func (e LocalShellExec) MarshalJSON() ([]byte, error) {
	type alias LocalShellExec
	return codec.Encode("exec", alias(e))
}

func (e *LocalShellExec) UnmarshalJSON(data []byte) error {
	if err := fixedType("exec", data); err != nil {
		return err
	}
	type alias LocalShellExec
	return json.Unmarshal(data, (*alias)(e))
}

// LocalShellCall asks the caller to run a command on its machine.
type LocalShellCall struct {
	ItemBase
	CallID string         `json:"call_id"`
	Action LocalShellExec `json:"action"`
}

func (*LocalShellCall) ItemType() ItemType { return ItemTypeLocalShellCall }

func (l LocalShellCall) MarshalJSON() ([]byte, error) {
	type alias LocalShellCall
	return codec.Encode(string(ItemTypeLocalShellCall), alias(l))
}

// LocalShellCallOutput returns the output of a local shell command.
type LocalShellCallOutput struct {
	ItemBase
	Output string `json:"output"`
}

func (*LocalShellCallOutput) ItemType() ItemType { return ItemTypeLocalShellCallOutput }

func (l LocalShellCallOutput) MarshalJSON() ([]byte, error) {
	type alias LocalShellCallOutput
	return codec.Encode(string(ItemTypeLocalShellCallOutput), alias(l))
}

// MCPToolInfo describes a tool exposed by an MCP server.
type MCPToolInfo struct {
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
	Annotations json.RawMessage `json:"annotations,omitempty"`
}

// MCPListTools lists the tools available on an MCP server.
type MCPListTools struct {
	ItemBase
	ServerLabel string        `json:"server_label"`
	Tools       []MCPToolInfo `json:"tools"`
	Error       *string       `json:"error,omitempty"`
}

func (*MCPListTools) ItemType() ItemType { return ItemTypeMCPListTools }

func (m MCPListTools) MarshalJSON() ([]byte, error) {
	type alias MCPListTools
	if m.Tools == nil {
		m.Tools = []MCPToolInfo{}
	}
	return codec.Encode(string(ItemTypeMCPListTools), alias(m))
}

// MCPApprovalRequest asks the caller to approve an MCP tool invocation.
type MCPApprovalRequest struct {
	ItemBase
	ServerLabel string `json:"server_label"`
	Name        string `json:"name"`
	Arguments   string `json:"arguments"`
}

func (*MCPApprovalRequest) ItemType() ItemType { return ItemTypeMCPApprovalRequest }

func (m MCPApprovalRequest) MarshalJSON() ([]byte, error) {
	type alias MCPApprovalRequest
	return codec.Encode(string(ItemTypeMCPApprovalRequest), alias(m))
}

// MCPApprovalResponse answers an MCPApprovalRequest.
type MCPApprovalResponse struct {
	ItemBase
	ApprovalRequestID string  `json:"approval_request_id"`
	Approve           bool    `json:"approve"`
	Reason            *string `json:"reason,omitempty"`
}

func (*MCPApprovalResponse) ItemType() ItemType { return ItemTypeMCPApprovalResponse }

func (m MCPApprovalResponse) MarshalJSON() ([]byte, error) {
	type alias MCPApprovalResponse
	return codec.Encode(string(ItemTypeMCPApprovalResponse), alias(m))
}

// MCPCall is an invocation of a tool on an MCP server.
type MCPCall struct {
	ItemBase
	ServerLabel string  `json:"server_label"`
	Name        string  `json:"name"`
	Arguments   string  `json:"arguments"`
	Output      *string `json:"output,omitempty"`
	Error       *string `json:"error,omitempty"`
}

func (*MCPCall) ItemType() ItemType { return ItemTypeMCPCall }

func (m MCPCall) MarshalJSON() ([]byte, error) {
	type alias MCPCall
	return codec.Encode(string(ItemTypeMCPCall), alias(m))
}

// ItemReference points at an item stored by an earlier response.
type ItemReference struct {
	ItemBase
}

func (*ItemReference) ItemType() ItemType { return ItemTypeItemReference }

func (r ItemReference) MarshalJSON() ([]byte, error) {
	type alias ItemReference
	return codec.Encode(string(ItemTypeItemReference), alias(r))
}

// UnknownItem is an item of a type this package does not know. Only the
// fields shared by all items are kept.
type UnknownItem struct {
	Type ItemType `json:"type,omitempty"`
	ItemBase
}

func (u *UnknownItem) ItemType() ItemType { return u.Type }

var items = func() *codec.Registry[Item] {
	r := codec.NewRegistry[Item]("item", decodeUntypedItem)
	codec.Variant[Item, Message](r, string(ItemTypeMessage), "role", "content")
	codec.Variant[Item, FunctionCall](r, string(ItemTypeFunctionCall), "call_id", "name", "arguments")
	codec.Variant[Item, FunctionCallOutput](r, string(ItemTypeFunctionCallOutput), "call_id", "output")
	codec.Variant[Item, ComputerCall](r, string(ItemTypeComputerCall), "call_id", "action")
	codec.Variant[Item, ComputerCallOutput](r, string(ItemTypeComputerCallOutput), "call_id", "output")
	codec.Variant[Item, Reasoning](r, string(ItemTypeReasoning))
	codec.Variant[Item, FileSearchCall](r, string(ItemTypeFileSearchCall))
	codec.Variant[Item, WebSearchCall](r, string(ItemTypeWebSearchCall))
	codec.Variant[Item, ImageGenerationCall](r, string(ItemTypeImageGenerationCall))
	codec.Variant[Item, CodeInterpreterCall](r, string(ItemTypeCodeInterpreterCall))
	codec.Variant[Item, LocalShellCall](r, string(ItemTypeLocalShellCall), "call_id", "action")
	codec.Variant[Item, LocalShellCallOutput](r, string(ItemTypeLocalShellCallOutput), "output")
	codec.Variant[Item, MCPListTools](r, string(ItemTypeMCPListTools), "server_label")
	codec.Variant[Item, MCPApprovalRequest](r, string(ItemTypeMCPApprovalRequest), "server_label", "name")
	codec.Variant[Item, MCPApprovalResponse](r, string(ItemTypeMCPApprovalResponse), "approval_request_id", "approve")
	codec.Variant[Item, MCPCall](r, string(ItemTypeMCPCall), "server_label", "name")
	codec.Variant[Item, ItemReference](r, string(ItemTypeItemReference), "id")
	return r
}()

// decodeUntypedItem handles items without a known type. An input message
// may omit its type entirely, so an untyped object with a role decodes as
// a Message.
func decodeUntypedItem(data []byte) (Item, error) {
	if _, typed := codec.Peek(data); !typed && codec.HasField(data, "role") {
		if err := codec.Require(string(ItemTypeMessage), data, "content"); err != nil {
			return nil, err
		}
		m := new(Message)
		return m, json.Unmarshal(data, m)
	}
	u := new(UnknownItem)
	return u, json.Unmarshal(data, u)
}

// DecodeItem decodes a single item.
func DecodeItem(data []byte) (Item, error) { return items.Decode(data) }

// ItemTypes lists the item types this package decodes.
func ItemTypes() []string { return items.Discriminators() }

// Items is a list of items decoded through the item registry.
type Items []Item

func (l *Items) UnmarshalJSON(data []byte) error {
	list, err := items.DecodeList(data)
	if err != nil {
		return err
	}
	*l = list
	return nil
}

// NewUserMessage builds a user message with a single input_text part.
func NewUserMessage(text string) *Message {
	return &Message{
		Role:    RoleUser,
		Content: ContentParts{&InputText{Text: text}},
	}
}
