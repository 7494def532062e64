package transport

import (
	"context"
	"sync"
)

// InFlightRegistry maps the IDs of responses still being produced to the
// functions that stop them. POST /v1/responses/{id}/cancel goes through it.
type InFlightRegistry struct {
	mu      sync.Mutex
	entries map[string]context.CancelFunc
}

// NewInFlightRegistry creates an empty registry.
func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{entries: make(map[string]context.CancelFunc)}
}

// Register records cancel under id, replacing any earlier entry.
func (r *InFlightRegistry) Register(id string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = cancel
}

// Cancel stops the response and forgets it. It reports whether id was
// registered.
func (r *InFlightRegistry) Cancel(id string) bool {
	r.mu.Lock()
	cancel, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

// Remove forgets id without cancelling it.
func (r *InFlightRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Len returns the number of registered responses.
func (r *InFlightRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
