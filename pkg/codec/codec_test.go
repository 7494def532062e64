package codec

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/rhuss/respkit/pkg/observability"
)

// A small union used to exercise the registry without depending on pkg/api.
type shape interface{ shapeType() string }

type circle struct {
	Radius float64 `json:"radius"`
	Label  *string `json:"label,omitempty"`
}

func (*circle) shapeType() string { return "circle" }

func (c circle) MarshalJSON() ([]byte, error) {
	type alias circle
	return Encode("circle", alias(c))
}

type square struct {
	Side int `json:"side"`
}

func (*square) shapeType() string { return "square" }

func (s square) MarshalJSON() ([]byte, error) {
	type alias square
	return Encode("square", alias(s))
}

type unknownShape struct {
	Type  string  `json:"type,omitempty"`
	Label *string `json:"label,omitempty"`
}

func (u *unknownShape) shapeType() string { return u.Type }

var shapes = func() *Registry[shape] {
	r := NewRegistry[shape]("shape", func(data []byte) (shape, error) {
		u := new(unknownShape)
		if err := json.Unmarshal(data, u); err != nil {
			return nil, err
		}
		return u, nil
	})
	Variant[shape, circle](r, "circle", "radius")
	Variant[shape, square](r, "square")
	return r
}()

func TestDecodeDispatch(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  shape
	}{
		{"circle", `{"type":"circle","radius":2.5}`, &circle{Radius: 2.5}},
		{"square with type last", `{"side":3,"type":"square"}`, &square{Side: 3}},
		{"unknown extra fields ignored", `{"type":"square","side":1,"color":"red","nested":{"a":[1,2]}}`, &square{Side: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := shapes.Decode([]byte(tt.input))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeFallback(t *testing.T) {
	before := observability.CounterValue(observability.UnknownDiscriminatorsTotal, "shape")

	got, err := shapes.Decode([]byte(`{"type":"hexagon","label":"h","sides":6}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	u, ok := got.(*unknownShape)
	if !ok {
		t.Fatalf("Decode returned %T, want *unknownShape", got)
	}
	if u.Type != "hexagon" || u.Label == nil || *u.Label != "h" {
		t.Errorf("fallback = %+v", u)
	}

	// Absent discriminator also falls back.
	got, err = shapes.Decode([]byte(`{"label":"x"}`))
	if err != nil {
		t.Fatalf("Decode without type: %v", err)
	}
	if _, ok := got.(*unknownShape); !ok {
		t.Errorf("Decode without type returned %T", got)
	}

	after := observability.CounterValue(observability.UnknownDiscriminatorsTotal, "shape")
	if after-before != 2 {
		t.Errorf("unknown discriminator counter delta = %f, want 2", after-before)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantMissing bool
		wantField   string
	}{
		{"missing required field", `{"type":"circle"}`, true, "radius"},
		{"null required field", `{"type":"circle","radius":null}`, true, "radius"},
		{"type mismatch", `{"type":"circle","radius":"big"}`, false, "radius"},
		{"discriminator not a string", `{"type":7}`, false, ""},
		{"not an object", `[1,2]`, false, ""},
		{"invalid JSON", `{"type":`, false, ""},
		{"empty", ``, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := shapes.Decode([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			var missing *MissingFieldError
			var decErr *DecodeError
			switch {
			case tt.wantMissing:
				if !errors.As(err, &missing) {
					t.Fatalf("error %v is not a MissingFieldError", err)
				}
				if missing.Field != tt.wantField || missing.Type != "circle" {
					t.Errorf("missing = %+v", missing)
				}
			default:
				if !errors.As(err, &decErr) {
					t.Fatalf("error %v is not a DecodeError", err)
				}
				if decErr.Field != tt.wantField {
					t.Errorf("DecodeError.Field = %q, want %q", decErr.Field, tt.wantField)
				}
			}
		})
	}
}

func TestDecodeTypeMismatchUnwraps(t *testing.T) {
	_, err := shapes.Decode([]byte(`{"type":"square","side":"wide"}`))
	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) {
		t.Fatalf("error %v does not unwrap to *json.UnmarshalTypeError", err)
	}
}

func TestDecodeNull(t *testing.T) {
	got, err := shapes.Decode([]byte(" null "))
	if err != nil || got != nil {
		t.Errorf("Decode(null) = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestDecodeList(t *testing.T) {
	got, err := shapes.DecodeList([]byte(`[{"type":"circle","radius":1},{"type":"square","side":2},{"type":"blob"}]`))
	if err != nil {
		t.Fatalf("DecodeList: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if _, ok := got[0].(*circle); !ok {
		t.Errorf("got[0] = %T", got[0])
	}
	if _, ok := got[1].(*square); !ok {
		t.Errorf("got[1] = %T", got[1])
	}
	if _, ok := got[2].(*unknownShape); !ok {
		t.Errorf("got[2] = %T", got[2])
	}
}

func TestDecodeListFailsWhole(t *testing.T) {
	got, err := shapes.DecodeList([]byte(`[{"type":"circle","radius":1},{"type":"circle"}]`))
	if err == nil {
		t.Fatal("expected error")
	}
	if got != nil {
		t.Errorf("partial result returned: %v", got)
	}
	if !strings.Contains(err.Error(), "shape[1]") {
		t.Errorf("error %q does not name the failing index", err)
	}
	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Errorf("error %v is not a MissingFieldError", err)
	}
}

func TestDecodeListNullAndNonArray(t *testing.T) {
	if got, err := shapes.DecodeList([]byte("null")); err != nil || got != nil {
		t.Errorf("DecodeList(null) = (%v, %v)", got, err)
	}
	if _, err := shapes.DecodeList([]byte(`{"type":"circle"}`)); err == nil {
		t.Error("expected error for object input")
	}
}

func TestEncodeInjectsDiscriminator(t *testing.T) {
	data, err := json.Marshal(circle{Radius: 1})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m["type"] != "circle" {
		t.Errorf("type = %v, want circle", m["type"])
	}
	if _, ok := m["label"]; ok {
		t.Error("unset optional field was encoded")
	}
}

func TestEncodeOverridesStoredType(t *testing.T) {
	type withType struct {
		Type string `json:"type"`
		Side int    `json:"side"`
	}
	data, err := Encode("square", withType{Type: "circle", Side: 1})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if disc, _ := Peek(data); disc != "square" {
		t.Errorf("Peek = %q, want square", disc)
	}
}

func TestEncodeRejectsNonObject(t *testing.T) {
	if _, err := Encode("x", []int{1}); err == nil {
		t.Error("expected error for array value")
	}
}

func TestRoundTrip(t *testing.T) {
	label := "unit"
	for _, v := range []shape{&circle{Radius: 1, Label: &label}, &square{Side: 4}} {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		got, err := shapes.Decode(data)
		if err != nil {
			t.Fatalf("Decode(%s): %v", data, err)
		}
		if !reflect.DeepEqual(got, v) {
			t.Errorf("round trip = %#v, want %#v", got, v)
		}
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	Variant[shape, circle](shapes, "circle")
}

func TestVariantMustImplementUnion(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	r := NewRegistry[shape]("bad", func([]byte) (shape, error) { return nil, nil })
	Variant[shape, struct{}](r, "nothing")
}

func TestDiscriminators(t *testing.T) {
	got := shapes.Discriminators()
	if !reflect.DeepEqual(got, []string{"circle", "square"}) {
		t.Errorf("Discriminators = %v", got)
	}
	if !shapes.Known("circle") || shapes.Known("hexagon") {
		t.Error("Known disagrees with registrations")
	}
}

func TestConcurrentDecode(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := shapes.Decode([]byte(`{"type":"square","side":2}`)); err != nil {
				t.Errorf("Decode: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestRequireNestedPath(t *testing.T) {
	data := []byte(`{"format":{"name":"x"}}`)
	if err := Require("text", data, "format.name"); err != nil {
		t.Errorf("Require(format.name) = %v", err)
	}
	err := Require("text", data, "format.schema")
	var missing *MissingFieldError
	if !errors.As(err, &missing) || missing.Field != "format.schema" {
		t.Errorf("Require(format.schema) = %v", err)
	}
	if !HasField(data, "format") || HasField(data, "other") {
		t.Error("HasField disagrees with input")
	}
}

func TestOnUnknownObserver(t *testing.T) {
	var seen []string
	OnUnknown(func(union, disc string) { seen = append(seen, union+":"+disc) })
	t.Cleanup(func() { OnUnknown(nil) })

	shapes.Decode([]byte(`{"type":"circle","radius":1}`))
	shapes.Decode([]byte(`{"type":"hexagon"}`))
	shapes.Decode([]byte(`{"label":"no type"}`))

	if got := strings.Join(seen, ","); got != "shape:hexagon,shape:" {
		t.Errorf("observed %q", got)
	}
}

func TestDecodeListRejectsNullElement(t *testing.T) {
	tests := []string{
		`[null]`,
		`[{"type":"square","side":1}, null]`,
		`[ null , {"type":"square","side":1}]`,
	}
	for _, in := range tests {
		got, err := shapes.DecodeList([]byte(in))
		if got != nil {
			t.Errorf("DecodeList(%s) returned %v", in, got)
		}
		var decErr *DecodeError
		if !errors.As(err, &decErr) || !errors.Is(err, errNullElement) {
			t.Errorf("DecodeList(%s) error = %v, want null element DecodeError", in, err)
		}
	}
}
