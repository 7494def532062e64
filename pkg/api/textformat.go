package api

import (
	"encoding/json"

	"github.com/rhuss/respkit/pkg/codec"
)

// TextFormatType is the discriminator of a text output format.
type TextFormatType string

const (
	TextFormatTypeText       TextFormatType = "text"
	TextFormatTypeJSONObject TextFormatType = "json_object"
	TextFormatTypeJSONSchema TextFormatType = "json_schema"
)

// TextFormat constrains the shape of the model's text output.
type TextFormat interface {
	FormatType() TextFormatType
}

// TextFormatText is plain text output, the default.
type TextFormatText struct{}

func (*TextFormatText) FormatType() TextFormatType { return TextFormatTypeText }

func (f TextFormatText) MarshalJSON() ([]byte, error) {
	type alias TextFormatText
	return codec.Encode(string(TextFormatTypeText), alias(f))
}

// TextFormatJSONObject asks for any valid JSON object.
type TextFormatJSONObject struct{}

func (*TextFormatJSONObject) FormatType() TextFormatType { return TextFormatTypeJSONObject }

func (f TextFormatJSONObject) MarshalJSON() ([]byte, error) {
	type alias TextFormatJSONObject
	return codec.Encode(string(TextFormatTypeJSONObject), alias(f))
}

// TextFormatJSONSchema asks for JSON matching Schema. The schema is carried
// as opaque data.
type TextFormatJSONSchema struct {
	Name        string          `json:"name"`
	Schema      json.RawMessage `json:"schema"`
	Description *string         `json:"description,omitempty"`
	Strict      *bool           `json:"strict,omitempty"`
}

func (*TextFormatJSONSchema) FormatType() TextFormatType { return TextFormatTypeJSONSchema }

func (f TextFormatJSONSchema) MarshalJSON() ([]byte, error) {
	type alias TextFormatJSONSchema
	return codec.Encode(string(TextFormatTypeJSONSchema), alias(f))
}

// UnknownTextFormat is a format this package does not know.
type UnknownTextFormat struct {
	Type TextFormatType `json:"type,omitempty"`
}

func (f *UnknownTextFormat) FormatType() TextFormatType { return f.Type }

var textFormats = func() *codec.Registry[TextFormat] {
	r := codec.NewRegistry[TextFormat]("text_format", func(data []byte) (TextFormat, error) {
		f := new(UnknownTextFormat)
		return f, json.Unmarshal(data, f)
	})
	codec.Variant[TextFormat, TextFormatText](r, string(TextFormatTypeText))
	codec.Variant[TextFormat, TextFormatJSONObject](r, string(TextFormatTypeJSONObject))
	codec.Variant[TextFormat, TextFormatJSONSchema](r, string(TextFormatTypeJSONSchema), "name", "schema")
	return r
}()

// DecodeTextFormat decodes a single text format.
func DecodeTextFormat(data []byte) (TextFormat, error) { return textFormats.Decode(data) }

// TextConfig configures text output.
type TextConfig struct {
	Format    TextFormat `json:"format,omitempty"`
	Verbosity *string    `json:"verbosity,omitempty"`
}

func (c *TextConfig) UnmarshalJSON(data []byte) error {
	type alias TextConfig
	var w struct {
		alias
		Format json.RawMessage `json:"format"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = TextConfig(w.alias)
	if len(w.Format) == 0 {
		return nil
	}
	f, err := textFormats.Decode(w.Format)
	if err != nil {
		return err
	}
	c.Format = f
	return nil
}
