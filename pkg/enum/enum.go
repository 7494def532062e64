// Package enum maps wire tokens to named string constants.
//
// A [Set] is either closed, rejecting tokens it was not built with, or
// expandable, registering unknown tokens the first time they are seen so a
// newer server can introduce values without breaking older clients. Lookup
// is case-insensitive in both modes; the stored token is always the one
// first registered, so String() round-trips the original wire form.
package enum

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// MaxExpansion caps how many unknown tokens an expandable set registers.
// Tokens past the cap are still accepted but not remembered, and come back
// lowercased so every spelling of a token maps to the same value.
const MaxExpansion = 256

// Set is a case-insensitive registry of string constants of type T.
type Set[T ~string] struct {
	expandable bool

	mu       sync.RWMutex
	byFolded map[string]T
	ordered  []T
	expanded int
}

// NewClosed builds a set that only recognizes values.
func NewClosed[T ~string](values ...T) *Set[T] {
	return newSet(false, values)
}

// NewExpandable builds a set seeded with values that registers unknown
// tokens on Parse.
func NewExpandable[T ~string](values ...T) *Set[T] {
	return newSet(true, values)
}

func newSet[T ~string](expandable bool, values []T) *Set[T] {
	s := &Set[T]{
		expandable: expandable,
		byFolded:   make(map[string]T, len(values)),
	}
	for _, v := range values {
		key := strings.ToLower(string(v))
		if _, dup := s.byFolded[key]; dup {
			panic(fmt.Sprintf("enum: duplicate value %q", v))
		}
		s.byFolded[key] = v
		s.ordered = append(s.ordered, v)
	}
	return s
}

// Parse looks token up ignoring case. A closed set returns the zero value
// and false for unknown tokens; an expandable set registers and returns it.
func (s *Set[T]) Parse(token string) (T, bool) {
	key := strings.ToLower(token)

	s.mu.RLock()
	v, ok := s.byFolded[key]
	s.mu.RUnlock()
	if ok {
		return v, true
	}
	if !s.expandable {
		var zero T
		return zero, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.byFolded[key]; ok {
		return v, true
	}
	if s.expanded >= MaxExpansion {
		return T(key), true
	}
	v = T(token)
	s.byFolded[key] = v
	s.ordered = append(s.ordered, v)
	s.expanded++
	return v, true
}

// Known reports whether token is registered, without registering it.
func (s *Set[T]) Known(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byFolded[strings.ToLower(token)]
	return ok
}

// Values returns the registered constants in registration order.
func (s *Set[T]) Values() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// Expandable reports whether unknown tokens are accepted.
func (s *Set[T]) Expandable() bool {
	return s.expandable
}

// Unmarshal decodes a JSON string token into dst through the set.
// JSON null leaves dst unset. An unknown token in a closed set also
// leaves dst unset rather than failing the surrounding object.
func (s *Set[T]) Unmarshal(data []byte, dst *T) error {
	if string(data) == "null" {
		var zero T
		*dst = zero
		return nil
	}
	var token string
	if err := json.Unmarshal(data, &token); err != nil {
		return err
	}
	v, _ := s.Parse(token)
	*dst = v
	return nil
}
