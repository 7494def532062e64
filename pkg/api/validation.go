package api

import (
	"fmt"
	"slices"
)

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxInputItems  int
	MaxContentSize int
	MaxTools       int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxInputItems:  1000,
		MaxContentSize: 10 * 1024 * 1024, // 10MB
		MaxTools:       128,
	}
}

// ValidateRequest checks a CreateResponsesRequest for validity. It returns an
// *APIError describing the first validation failure, or nil if the request is valid.
func ValidateRequest(req *CreateResponsesRequest, cfg ValidationConfig) *APIError {
	if req.Model == "" {
		return NewInvalidRequestError("model", "model is required")
	}

	n := req.Input.Len()
	if n == 0 && req.PreviousResponseID == nil {
		return NewInvalidRequestError("input", "input must contain at least one item")
	}
	if cfg.MaxInputItems > 0 && n > cfg.MaxInputItems {
		return NewInvalidRequestError("input",
			fmt.Sprintf("input exceeds maximum of %d items", cfg.MaxInputItems))
	}
	for i, item := range req.Input.AsItems() {
		if err := ValidateInputItem(item, cfg); err != nil {
			err.Param = fmt.Sprintf("input[%d].%s", i, err.Param)
			return err
		}
	}

	if cfg.MaxTools > 0 && len(req.Tools) > cfg.MaxTools {
		return NewInvalidRequestError("tools",
			fmt.Sprintf("tools exceeds maximum of %d", cfg.MaxTools))
	}

	if req.MaxOutputTokens != nil && *req.MaxOutputTokens <= 0 {
		return NewInvalidRequestError("max_output_tokens", "max_output_tokens must be positive")
	}

	if req.Temperature != nil {
		if *req.Temperature < 0.0 || *req.Temperature > 2.0 {
			return NewInvalidRequestError("temperature", "temperature must be between 0.0 and 2.0")
		}
	}

	if req.TopP != nil {
		if *req.TopP < 0.0 || *req.TopP > 1.0 {
			return NewInvalidRequestError("top_p", "top_p must be between 0.0 and 1.0")
		}
	}

	// A closed enum decodes unknown tokens to the empty value.
	if req.Truncation != nil && *req.Truncation == "" {
		return NewInvalidRequestError("truncation", "truncation must be 'auto' or 'disabled'")
	}

	if tc := req.ToolChoice; tc != nil && tc.Type == ToolTypeFunction {
		if !slices.Contains(req.Tools.FunctionNames(), tc.Name) {
			return NewInvalidRequestError("tool_choice",
				fmt.Sprintf("tool_choice references unknown tool %q", tc.Name))
		}
	}

	if !req.ResolveStore() && req.PreviousResponseID != nil {
		return NewInvalidRequestError("previous_response_id",
			"previous_response_id cannot be used with store=false")
	}
	if !req.ResolveStore() && req.IsBackground() {
		return NewInvalidRequestError("background", "background requires store=true")
	}

	return nil
}

// ValidateInputItem checks an item supplied as request input. Param on the
// returned error is relative to the item.
func ValidateInputItem(item Item, cfg ValidationConfig) *APIError {
	switch it := item.(type) {
	case *Message:
		if it.Role == "" {
			return NewInvalidRequestError("role", "message role must be user, assistant, system or developer")
		}
		if cfg.MaxContentSize > 0 && len(it.Content.Text()) > cfg.MaxContentSize {
			return NewInvalidRequestError("content",
				fmt.Sprintf("content exceeds maximum of %d bytes", cfg.MaxContentSize))
		}
	case *FunctionCallOutput:
		if it.CallID == "" {
			return NewInvalidRequestError("call_id", "call_id is required")
		}
	case *UnknownItem:
		if it.Type == "" {
			return NewInvalidRequestError("type", "item type is required")
		}
		return NewInvalidRequestError("type", fmt.Sprintf("unsupported item type %q", it.Type))
	}
	return nil
}
