// Package codec decodes JSON objects into one of several Go types selected
// by a "type" discriminator field, and encodes them back.
//
// A [Registry] is a lookup table from discriminator token to decoder for a
// single union, typically an interface such as api.Item. Decoding peeks the
// discriminator without consuming the input, then hands the whole object to
// the registered decoder. Objects whose discriminator is absent or unknown
// go to the registry's fallback decoder, which keeps only the fields common
// to every variant; they are never an error.
//
// Registries are populated once during package initialization and are safe
// for concurrent use afterwards.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/rhuss/respkit/pkg/debug"
	"github.com/rhuss/respkit/pkg/observability"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// DiscriminatorField is the JSON property holding the variant token.
const DiscriminatorField = "type"

// DecodeFunc decodes one complete JSON object into a union value.
type DecodeFunc[T any] func(data []byte) (T, error)

// Registry dispatches JSON objects to per-variant decoders.
type Registry[T any] struct {
	name     string
	fallback DecodeFunc[T]
	decoders map[string]DecodeFunc[T]
}

// NewRegistry creates an empty registry. name identifies the union in
// errors, logs and metrics. fallback handles absent or unknown
// discriminators and must not be nil.
func NewRegistry[T any](name string, fallback DecodeFunc[T]) *Registry[T] {
	if fallback == nil {
		panic("codec: " + name + ": nil fallback decoder")
	}
	return &Registry[T]{
		name:     name,
		fallback: fallback,
		decoders: make(map[string]DecodeFunc[T]),
	}
}

// Name returns the union name given to NewRegistry.
func (r *Registry[T]) Name() string { return r.name }

// Register binds disc to fn. Registering the same token twice panics.
func (r *Registry[T]) Register(disc string, fn DecodeFunc[T]) {
	if disc == "" {
		panic(fmt.Sprintf("codec: %s: empty discriminator", r.name))
	}
	if _, dup := r.decoders[disc]; dup {
		panic(fmt.Sprintf("codec: %s: duplicate discriminator %q", r.name, disc))
	}
	r.decoders[disc] = fn
}

// Variant registers the concrete struct V under disc. The decoder checks
// required fields, unmarshals into a fresh *V and returns it as T, so *V
// must implement T; Variant panics at registration time otherwise.
func Variant[T any, V any](r *Registry[T], disc string, required ...string) {
	if _, ok := any(new(V)).(T); !ok {
		var zero V
		panic(fmt.Sprintf("codec: %s: *%T does not implement the union", r.name, zero))
	}
	r.Register(disc, func(data []byte) (T, error) {
		var zero T
		if err := Require(disc, data, required...); err != nil {
			return zero, err
		}
		v := new(V)
		if err := json.Unmarshal(data, v); err != nil {
			return zero, wrap(disc, err)
		}
		return any(v).(T), nil
	})
}

// Known reports whether disc has a registered decoder.
func (r *Registry[T]) Known(disc string) bool {
	_, ok := r.decoders[disc]
	return ok
}

// Discriminators returns the registered tokens in sorted order.
func (r *Registry[T]) Discriminators() []string {
	out := make([]string, 0, len(r.decoders))
	for k := range r.decoders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Decode decodes one JSON object. JSON null yields the zero T and no error.
func (r *Registry[T]) Decode(data []byte) (T, error) {
	var zero T

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return zero, &DecodeError{Type: r.name, Err: errEmptyInput}
	}
	if bytes.Equal(data, nullLiteral) {
		return zero, nil
	}
	if !gjson.ValidBytes(data) {
		return zero, &DecodeError{Type: r.name, Err: errInvalidJSON}
	}
	obj := gjson.ParseBytes(data)
	if !obj.IsObject() {
		return zero, &DecodeError{Type: r.name, Err: fmt.Errorf("expected object, got %s", obj.Type)}
	}

	disc := obj.Get(DiscriminatorField)
	switch {
	case !disc.Exists() || disc.Type == gjson.Null:
		r.unknown("")
	case disc.Type != gjson.String:
		return zero, &DecodeError{Type: r.name, Err: fmt.Errorf("discriminator %q must be a string, got %s", DiscriminatorField, disc.Type)}
	default:
		if fn, ok := r.decoders[disc.Str]; ok {
			v, err := fn(data)
			if err != nil {
				return zero, wrap(disc.Str, err)
			}
			return v, nil
		}
		r.unknown(disc.Str)
	}

	v, err := r.fallback(data)
	if err != nil {
		return zero, wrap(r.name, err)
	}
	return v, nil
}

// DecodeList decodes a JSON array of union objects. The first element that
// fails aborts the whole list; a null element counts as a failure. JSON null
// for the whole array yields a nil slice.
func (r *Registry[T]) DecodeList(data []byte) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, nullLiteral) {
		return nil, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, &DecodeError{Type: r.name, Err: errInvalidJSON}
	}
	arr := gjson.ParseBytes(data)
	if !arr.IsArray() {
		return nil, &DecodeError{Type: r.name, Err: fmt.Errorf("expected array, got %s", arr.Type)}
	}

	elems := arr.Array()
	out := make([]T, 0, len(elems))
	for i, elem := range elems {
		if elem.Type == gjson.Null {
			return nil, &DecodeError{Type: r.name, Field: fmt.Sprintf("[%d]", i), Err: errNullElement}
		}
		v, err := r.Decode([]byte(elem.Raw))
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", r.name, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

var unknownObserver atomic.Pointer[func(union, disc string)]

// OnUnknown installs fn to be called, in addition to the metric and debug
// log, whenever any registry falls back to its base type. disc is "" when
// the object had no discriminator. Passing nil removes the observer.
func OnUnknown(fn func(union, disc string)) {
	if fn == nil {
		unknownObserver.Store(nil)
		return
	}
	unknownObserver.Store(&fn)
}

func (r *Registry[T]) unknown(disc string) {
	observability.UnknownDiscriminatorsTotal.WithLabelValues(r.name).Inc()
	debug.Log("codec", "falling back to base type", "union", r.name, "discriminator", disc)
	if disc != "" {
		slog.Debug("unknown discriminator", "union", r.name, "type", disc)
	}
	if fn := unknownObserver.Load(); fn != nil {
		(*fn)(r.name, disc)
	}
}

// Encode marshals v and sets its discriminator to disc, replacing any
// "type" value v produced on its own. v must marshal to a JSON object and
// must not route back into a MarshalJSON that calls Encode; callers pass
// a method-less alias of their struct.
func Encode(disc string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("codec: %s: value does not encode to an object", disc)
	}
	return sjson.SetBytes(data, DiscriminatorField, disc)
}

// Peek returns the discriminator of a JSON object without decoding it.
func Peek(data []byte) (string, bool) {
	res := gjson.GetBytes(data, DiscriminatorField)
	if res.Type != gjson.String {
		return "", false
	}
	return res.Str, true
}

// Require returns a *MissingFieldError for the first field in fields that
// is absent or null in data. Nested fields use gjson dot paths.
func Require(typ string, data []byte, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	results := gjson.GetManyBytes(data, fields...)
	for i, res := range results {
		if !res.Exists() || res.Type == gjson.Null {
			return &MissingFieldError{Type: typ, Field: fields[i]}
		}
	}
	return nil
}

// HasField reports whether data carries a non-null value for field.
func HasField(data []byte, field string) bool {
	res := gjson.GetBytes(data, field)
	return res.Exists() && res.Type != gjson.Null
}

var nullLiteral = []byte("null")
