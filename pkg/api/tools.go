package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rhuss/respkit/pkg/codec"
)

// ToolType is the discriminator of a tool definition.
type ToolType string

const (
	ToolTypeFunction        ToolType = "function"
	ToolTypeFileSearch      ToolType = "file_search"
	ToolTypeWebSearch       ToolType = "web_search_preview"
	ToolTypeComputerUse     ToolType = "computer_use_preview"
	ToolTypeCodeInterpreter ToolType = "code_interpreter"
	ToolTypeImageGeneration ToolType = "image_generation"
	ToolTypeLocalShell      ToolType = "local_shell"
	ToolTypeMCP             ToolType = "mcp"
)

// Tool is a tool the model may call.
type Tool interface {
	ToolType() ToolType
}

// FunctionTool is a function defined by the caller.
type FunctionTool struct {
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	Strict      *bool           `json:"strict,omitempty"`
}

func (*FunctionTool) ToolType() ToolType { return ToolTypeFunction }

func (t FunctionTool) MarshalJSON() ([]byte, error) {
	type alias FunctionTool
	return codec.Encode(string(ToolTypeFunction), alias(t))
}

// RankingOptions tunes file search ranking.
type RankingOptions struct {
	Ranker         *string  `json:"ranker,omitempty"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty"`
}

// FileSearchTool searches the given vector stores.
type FileSearchTool struct {
	VectorStoreIDs []string        `json:"vector_store_ids"`
	MaxNumResults  *int            `json:"max_num_results,omitempty"`
	Filters        json.RawMessage `json:"filters,omitempty"`
	RankingOptions *RankingOptions `json:"ranking_options,omitempty"`
}

func (*FileSearchTool) ToolType() ToolType { return ToolTypeFileSearch }

func (t FileSearchTool) MarshalJSON() ([]byte, error) {
	type alias FileSearchTool
	return codec.Encode(string(ToolTypeFileSearch), alias(t))
}

// UserLocation approximates the user's location for web search.
type UserLocation struct {
	Type     string  `json:"type"`
	City     *string `json:"city,omitempty"`
	Country  *string `json:"country,omitempty"`
	Region   *string `json:"region,omitempty"`
	Timezone *string `json:"timezone,omitempty"`
}

// WebSearchTool lets the model search the web.
type WebSearchTool struct {
	SearchContextSize *string       `json:"search_context_size,omitempty"`
	UserLocation      *UserLocation `json:"user_location,omitempty"`
}

func (*WebSearchTool) ToolType() ToolType { return ToolTypeWebSearch }

func (t WebSearchTool) MarshalJSON() ([]byte, error) {
	type alias WebSearchTool
	return codec.Encode(string(ToolTypeWebSearch), alias(t))
}

// ComputerTool lets the model drive a virtual computer.
type ComputerTool struct {
	DisplayWidth  int    `json:"display_width"`
	DisplayHeight int    `json:"display_height"`
	Environment   string `json:"environment"`
}

func (*ComputerTool) ToolType() ToolType { return ToolTypeComputerUse }

func (t ComputerTool) MarshalJSON() ([]byte, error) {
	type alias ComputerTool
	return codec.Encode(string(ToolTypeComputerUse), alias(t))
}

// CodeInterpreterTool runs code in a container. Container is either a
// container ID string or an object with "type":"auto" and file IDs.
type CodeInterpreterTool struct {
	Container json.RawMessage `json:"container"`
}

func (*CodeInterpreterTool) ToolType() ToolType { return ToolTypeCodeInterpreter }

func (t CodeInterpreterTool) MarshalJSON() ([]byte, error) {
	type alias CodeInterpreterTool
	return codec.Encode(string(ToolTypeCodeInterpreter), alias(t))
}

// ImageGenerationTool lets the model generate images.
type ImageGenerationTool struct {
	Model         *string `json:"model,omitempty"`
	Quality       *string `json:"quality,omitempty"`
	Size          *string `json:"size,omitempty"`
	Background    *string `json:"background,omitempty"`
	OutputFormat  *string `json:"output_format,omitempty"`
	PartialImages *int    `json:"partial_images,omitempty"`
}

func (*ImageGenerationTool) ToolType() ToolType { return ToolTypeImageGeneration }

func (t ImageGenerationTool) MarshalJSON() ([]byte, error) {
	type alias ImageGenerationTool
	return codec.Encode(string(ToolTypeImageGeneration), alias(t))
}

// LocalShellTool lets the model run shell commands on the caller's machine.
type LocalShellTool struct{}

func (*LocalShellTool) ToolType() ToolType { return ToolTypeLocalShell }

func (t LocalShellTool) MarshalJSON() ([]byte, error) {
	type alias LocalShellTool
	return codec.Encode(string(ToolTypeLocalShell), alias(t))
}

// MCPTool gives the model access to a remote MCP server. RequireApproval
// is either "always", "never" or a per-tool filter object.
type MCPTool struct {
	ServerLabel     string            `json:"server_label"`
	ServerURL       *string           `json:"server_url,omitempty"`
	AllowedTools    []string          `json:"allowed_tools,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	RequireApproval json.RawMessage   `json:"require_approval,omitempty"`
}

func (*MCPTool) ToolType() ToolType { return ToolTypeMCP }

func (t MCPTool) MarshalJSON() ([]byte, error) {
	type alias MCPTool
	return codec.Encode(string(ToolTypeMCP), alias(t))
}

// UnknownTool is a tool of a type this package does not know.
type UnknownTool struct {
	Type ToolType `json:"type,omitempty"`
}

func (t *UnknownTool) ToolType() ToolType { return t.Type }

var tools = func() *codec.Registry[Tool] {
	r := codec.NewRegistry[Tool]("tool", func(data []byte) (Tool, error) {
		t := new(UnknownTool)
		return t, json.Unmarshal(data, t)
	})
	codec.Variant[Tool, FunctionTool](r, string(ToolTypeFunction), "name")
	codec.Variant[Tool, FileSearchTool](r, string(ToolTypeFileSearch), "vector_store_ids")
	codec.Variant[Tool, WebSearchTool](r, string(ToolTypeWebSearch))
	codec.Variant[Tool, ComputerTool](r, string(ToolTypeComputerUse), "display_width", "display_height", "environment")
	codec.Variant[Tool, CodeInterpreterTool](r, string(ToolTypeCodeInterpreter), "container")
	codec.Variant[Tool, ImageGenerationTool](r, string(ToolTypeImageGeneration))
	codec.Variant[Tool, LocalShellTool](r, string(ToolTypeLocalShell))
	codec.Variant[Tool, MCPTool](r, string(ToolTypeMCP), "server_label")
	return r
}()

// DecodeTool decodes a single tool definition.
func DecodeTool(data []byte) (Tool, error) { return tools.Decode(data) }

// Tools is a list of tools decoded through the tool registry.
type Tools []Tool

func (l *Tools) UnmarshalJSON(data []byte) error {
	list, err := tools.DecodeList(data)
	if err != nil {
		return err
	}
	*l = list
	return nil
}

// FunctionNames returns the names of all function tools in order.
func (l Tools) FunctionNames() []string {
	var names []string
	for _, t := range l {
		if f, ok := t.(*FunctionTool); ok {
			names = append(names, f.Name)
		}
	}
	return names
}

// ToolChoice selects how the model uses tools. It is either a mode
// ("none", "auto", "required") or an object naming a specific tool.
type ToolChoice struct {
	Mode ToolChoiceMode

	// Type is set for the object form: "function", "mcp" or a hosted
	// tool type such as "file_search".
	Type        ToolType
	Name        string
	ServerLabel string
}

var (
	// ToolChoiceAuto lets the model decide whether to use a tool.
	ToolChoiceAuto = ToolChoice{Mode: ToolChoiceModeAuto}
	// ToolChoiceRequired forces the model to use a tool.
	ToolChoiceRequired = ToolChoice{Mode: ToolChoiceModeRequired}
	// ToolChoiceNone prevents the model from using any tool.
	ToolChoiceNone = ToolChoice{Mode: ToolChoiceModeNone}
)

// NewToolChoiceFunction selects a specific function by name.
func NewToolChoiceFunction(name string) ToolChoice {
	return ToolChoice{Type: ToolTypeFunction, Name: name}
}

// NewToolChoiceHosted selects a hosted tool such as file_search.
func NewToolChoiceHosted(t ToolType) ToolChoice {
	return ToolChoice{Type: t}
}

type toolChoiceObject struct {
	Type        ToolType `json:"type"`
	Name        string   `json:"name,omitempty"`
	ServerLabel string   `json:"server_label,omitempty"`
}

// MarshalJSON writes the mode as a JSON string or the selection as an object.
func (tc ToolChoice) MarshalJSON() ([]byte, error) {
	if tc.Mode != "" {
		return json.Marshal(string(tc.Mode))
	}
	if tc.Type != "" {
		return json.Marshal(toolChoiceObject{Type: tc.Type, Name: tc.Name, ServerLabel: tc.ServerLabel})
	}
	return nil, errors.New("tool_choice has neither a mode nor a tool type")
}

// UnmarshalJSON reads either form. Unknown modes are an error because the
// field has no sensible unset meaning once present.
func (tc *ToolChoice) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		mode, ok := ParseToolChoiceMode(s)
		if !ok {
			return &codec.DecodeError{Type: "tool_choice", Err: fmt.Errorf("unknown mode %q", s)}
		}
		*tc = ToolChoice{Mode: mode}
		return nil
	}
	if err := codec.Require("tool_choice", data, "type"); err != nil {
		return err
	}
	var obj toolChoiceObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return &codec.DecodeError{Type: "tool_choice", Err: err}
	}
	if obj.Type == ToolTypeFunction && obj.Name == "" {
		return &codec.MissingFieldError{Type: "tool_choice", Field: "name"}
	}
	*tc = ToolChoice{Type: obj.Type, Name: obj.Name, ServerLabel: obj.ServerLabel}
	return nil
}

// Allows reports whether the choice permits calling the named function.
func (tc ToolChoice) Allows(name string) bool {
	switch {
	case tc.Mode == ToolChoiceModeNone:
		return false
	case tc.Type == ToolTypeFunction:
		return tc.Name == name
	case tc.Type != "":
		return false
	default:
		return true
	}
}
