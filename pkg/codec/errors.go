package codec

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	errEmptyInput  = errors.New("empty input")
	errInvalidJSON = errors.New("invalid JSON")
	errNullElement = errors.New("list element is null")
)

// MissingFieldError reports a required field that is absent or null.
type MissingFieldError struct {
	Type  string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Type, e.Field)
}

// DecodeError reports input that could not be decoded: invalid JSON, a
// value of the wrong JSON type, or a non-object where an object belongs.
type DecodeError struct {
	Type string
	// Field is the JSON field that held the bad value, when known.
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: field %q: %v", e.Type, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// wrap classifies err from a variant decoder. Codec errors pass through
// unchanged so the innermost type wins.
func wrap(typ string, err error) error {
	var missing *MissingFieldError
	if errors.As(err, &missing) {
		return err
	}
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return err
	}
	de := &DecodeError{Type: typ, Err: err}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		de.Field = typeErr.Field
	}
	return de
}
