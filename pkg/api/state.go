package api

import (
	"fmt"
	"slices"
)

// An empty "from" status is the state before any status has been set.
// Statuses without an entry are terminal.
var (
	responseTransitions = map[ResponseStatus][]ResponseStatus{
		"":                       {ResponseStatusQueued, ResponseStatusInProgress},
		ResponseStatusQueued:     {ResponseStatusInProgress, ResponseStatusCancelled},
		ResponseStatusInProgress: {ResponseStatusCompleted, ResponseStatusIncomplete, ResponseStatusFailed, ResponseStatusCancelled},
	}

	itemTransitions = map[ItemStatus][]ItemStatus{
		"":                     {ItemStatusInProgress},
		ItemStatusInProgress:   {ItemStatusCompleted, ItemStatusIncomplete, ItemStatusFailed, ItemStatusSearching, ItemStatusGenerating, ItemStatusInterpreting, ItemStatusCalling},
		ItemStatusSearching:    {ItemStatusCompleted, ItemStatusFailed},
		ItemStatusGenerating:   {ItemStatusCompleted, ItemStatusFailed},
		ItemStatusInterpreting: {ItemStatusCompleted, ItemStatusFailed},
		ItemStatusCalling:      {ItemStatusCompleted, ItemStatusFailed},
	}
)

// ValidateResponseTransition checks whether a response status transition is valid.
func ValidateResponseTransition(from, to ResponseStatus) *APIError {
	if slices.Contains(responseTransitions[from], to) {
		return nil
	}
	return NewInvalidRequestError("status",
		fmt.Sprintf("invalid transition from %q to %q", from, to))
}

// ValidateItemTransition checks whether an item status transition is valid.
func ValidateItemTransition(from, to ItemStatus) *APIError {
	if slices.Contains(itemTransitions[from], to) {
		return nil
	}
	return NewInvalidRequestError("status",
		fmt.Sprintf("invalid transition from %q to %q", from, to))
}

// IsTerminalStatus reports whether a response in status s can no longer change.
func IsTerminalStatus(s ResponseStatus) bool {
	_, open := responseTransitions[s]
	return !open && s != ""
}
