package api

import "github.com/rhuss/respkit/pkg/enum"

// Wire enumerations. Closed sets decode unknown tokens to the unset value;
// expandable sets keep tokens a newer server introduces. Every type's
// String returns the token exactly as it appears on the wire.

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
)

var roles = enum.NewClosed(RoleUser, RoleAssistant, RoleSystem, RoleDeveloper)

// ParseRole looks up a role case-insensitively.
func ParseRole(s string) (Role, bool) { return roles.Parse(s) }
func (r Role) String() string { return string(r) }
func (r *Role) UnmarshalJSON(b []byte) error { return roles.Unmarshal(b, r) }

// ItemStatus is the processing status of an item.
type ItemStatus string

const (
	ItemStatusInProgress   ItemStatus = "in_progress"
	ItemStatusCompleted    ItemStatus = "completed"
	ItemStatusIncomplete   ItemStatus = "incomplete"
	ItemStatusFailed       ItemStatus = "failed"
	ItemStatusSearching    ItemStatus = "searching"
	ItemStatusGenerating   ItemStatus = "generating"
	ItemStatusInterpreting ItemStatus = "interpreting"
	ItemStatusCalling      ItemStatus = "calling"
)

var itemStatuses = enum.NewExpandable(
	ItemStatusInProgress, ItemStatusCompleted, ItemStatusIncomplete, ItemStatusFailed,
	ItemStatusSearching, ItemStatusGenerating, ItemStatusInterpreting, ItemStatusCalling,
)

func ParseItemStatus(s string) (ItemStatus, bool) { return itemStatuses.Parse(s) }
func (s ItemStatus) String() string { return string(s) }
func (s *ItemStatus) UnmarshalJSON(b []byte) error { return itemStatuses.Unmarshal(b, s) }

// ResponseStatus is the overall status of a response.
type ResponseStatus string

const (
	ResponseStatusQueued     ResponseStatus = "queued"
	ResponseStatusInProgress ResponseStatus = "in_progress"
	ResponseStatusCompleted  ResponseStatus = "completed"
	ResponseStatusIncomplete ResponseStatus = "incomplete"
	ResponseStatusFailed     ResponseStatus = "failed"
	ResponseStatusCancelled  ResponseStatus = "cancelled"
)

var responseStatuses = enum.NewExpandable(
	ResponseStatusQueued, ResponseStatusInProgress, ResponseStatusCompleted,
	ResponseStatusIncomplete, ResponseStatusFailed, ResponseStatusCancelled,
)

func ParseResponseStatus(s string) (ResponseStatus, bool) { return responseStatuses.Parse(s) }
func (s ResponseStatus) String() string { return string(s) }
func (s *ResponseStatus) UnmarshalJSON(b []byte) error { return responseStatuses.Unmarshal(b, s) }

// Truncation selects how input exceeding the context window is handled.
type Truncation string

const (
	TruncationAuto     Truncation = "auto"
	TruncationDisabled Truncation = "disabled"
)

var truncations = enum.NewClosed(TruncationAuto, TruncationDisabled)

func ParseTruncation(s string) (Truncation, bool) { return truncations.Parse(s) }
func (t Truncation) String() string { return string(t) }
func (t *Truncation) UnmarshalJSON(b []byte) error { return truncations.Unmarshal(b, t) }

// ServiceTier is the processing tier requested for a response.
type ServiceTier string

const (
	ServiceTierAuto     ServiceTier = "auto"
	ServiceTierDefault  ServiceTier = "default"
	ServiceTierFlex     ServiceTier = "flex"
	ServiceTierScale    ServiceTier = "scale"
	ServiceTierPriority ServiceTier = "priority"
)

var serviceTiers = enum.NewExpandable(
	ServiceTierAuto, ServiceTierDefault, ServiceTierFlex, ServiceTierScale, ServiceTierPriority,
)

func ParseServiceTier(s string) (ServiceTier, bool) { return serviceTiers.Parse(s) }
func (t ServiceTier) String() string { return string(t) }
func (t *ServiceTier) UnmarshalJSON(b []byte) error { return serviceTiers.Unmarshal(b, t) }

// ReasoningEffort constrains effort on reasoning models.
type ReasoningEffort string

const (
	ReasoningEffortMinimal ReasoningEffort = "minimal"
	ReasoningEffortLow     ReasoningEffort = "low"
	ReasoningEffortMedium  ReasoningEffort = "medium"
	ReasoningEffortHigh    ReasoningEffort = "high"
)

var reasoningEfforts = enum.NewExpandable(
	ReasoningEffortMinimal, ReasoningEffortLow, ReasoningEffortMedium, ReasoningEffortHigh,
)

func ParseReasoningEffort(s string) (ReasoningEffort, bool) { return reasoningEfforts.Parse(s) }
func (e ReasoningEffort) String() string { return string(e) }
func (e *ReasoningEffort) UnmarshalJSON(b []byte) error { return reasoningEfforts.Unmarshal(b, e) }

// ReasoningSummary selects the reasoning summary detail.
type ReasoningSummary string

const (
	ReasoningSummaryAuto     ReasoningSummary = "auto"
	ReasoningSummaryConcise  ReasoningSummary = "concise"
	ReasoningSummaryDetailed ReasoningSummary = "detailed"
)

var reasoningSummaries = enum.NewClosed(ReasoningSummaryAuto, ReasoningSummaryConcise, ReasoningSummaryDetailed)

func ParseReasoningSummary(s string) (ReasoningSummary, bool) { return reasoningSummaries.Parse(s) }
func (s ReasoningSummary) String() string { return string(s) }
func (s *ReasoningSummary) UnmarshalJSON(b []byte) error { return reasoningSummaries.Unmarshal(b, s) }

// Includable names additional output data to include in a response.
type Includable string

const (
	IncludeFileSearchResults      Includable = "file_search_call.results"
	IncludeInputImageURL          Includable = "message.input_image.image_url"
	IncludeComputerOutputImageURL Includable = "computer_call_output.output.image_url"
	IncludeReasoningEncrypted     Includable = "reasoning.encrypted_content"
	IncludeCodeInterpreterOutputs Includable = "code_interpreter_call.outputs"
	IncludeOutputTextLogprobs     Includable = "message.output_text.logprobs"
)

var includables = enum.NewExpandable(
	IncludeFileSearchResults, IncludeInputImageURL, IncludeComputerOutputImageURL,
	IncludeReasoningEncrypted, IncludeCodeInterpreterOutputs, IncludeOutputTextLogprobs,
)

func ParseIncludable(s string) (Includable, bool) { return includables.Parse(s) }

// KnownIncludable reports whether s names a registered include value. Unlike
// ParseIncludable it never registers s.
func KnownIncludable(s string) bool { return includables.Known(s) }
func (i Includable) String() string { return string(i) }
func (i *Includable) UnmarshalJSON(b []byte) error { return includables.Unmarshal(b, i) }

// Order is the sort order of a list endpoint.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

var orders = enum.NewClosed(OrderAsc, OrderDesc)

func ParseOrder(s string) (Order, bool) { return orders.Parse(s) }
func (o Order) String() string { return string(o) }
func (o *Order) UnmarshalJSON(b []byte) error { return orders.Unmarshal(b, o) }

// MouseButton is the button of a computer click action.
type MouseButton string

const (
	MouseButtonLeft    MouseButton = "left"
	MouseButtonRight   MouseButton = "right"
	MouseButtonWheel   MouseButton = "wheel"
	MouseButtonBack    MouseButton = "back"
	MouseButtonForward MouseButton = "forward"
)

var mouseButtons = enum.NewClosed(MouseButtonLeft, MouseButtonRight, MouseButtonWheel, MouseButtonBack, MouseButtonForward)

func ParseMouseButton(s string) (MouseButton, bool) { return mouseButtons.Parse(s) }
func (m MouseButton) String() string { return string(m) }
func (m *MouseButton) UnmarshalJSON(b []byte) error { return mouseButtons.Unmarshal(b, m) }

// ImageDetail is the detail level of an input image.
type ImageDetail string

const (
	ImageDetailLow  ImageDetail = "low"
	ImageDetailHigh ImageDetail = "high"
	ImageDetailAuto ImageDetail = "auto"
)

var imageDetails = enum.NewClosed(ImageDetailLow, ImageDetailHigh, ImageDetailAuto)

func ParseImageDetail(s string) (ImageDetail, bool) { return imageDetails.Parse(s) }
func (d ImageDetail) String() string { return string(d) }
func (d *ImageDetail) UnmarshalJSON(b []byte) error { return imageDetails.Unmarshal(b, d) }

// ToolChoiceMode is the string form of tool_choice.
type ToolChoiceMode string

const (
	ToolChoiceModeNone     ToolChoiceMode = "none"
	ToolChoiceModeAuto     ToolChoiceMode = "auto"
	ToolChoiceModeRequired ToolChoiceMode = "required"
)

var toolChoiceModes = enum.NewClosed(ToolChoiceModeNone, ToolChoiceModeAuto, ToolChoiceModeRequired)

func ParseToolChoiceMode(s string) (ToolChoiceMode, bool) { return toolChoiceModes.Parse(s) }
func (m ToolChoiceMode) String() string { return string(m) }
