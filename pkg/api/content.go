package api

import (
	"encoding/json"
	"fmt"

	"github.com/rhuss/respkit/pkg/codec"
)

// ContentPartType is the discriminator of a message content part.
type ContentPartType string

const (
	ContentInputText  ContentPartType = "input_text"
	ContentInputImage ContentPartType = "input_image"
	ContentInputFile  ContentPartType = "input_file"
	ContentOutputText ContentPartType = "output_text"
	ContentRefusal    ContentPartType = "refusal"
)

// ContentPart is one part of a message's content. The concrete types are
// *InputText, *InputImage, *InputFile, *OutputText, *Refusal and
// *UnknownContentPart.
type ContentPart interface {
	PartType() ContentPartType
}

// InputText is text supplied by the caller.
type InputText struct {
	Text string `json:"text"`
}

func (*InputText) PartType() ContentPartType { return ContentInputText }

func (p InputText) MarshalJSON() ([]byte, error) {
	type alias InputText
	return codec.Encode(string(ContentInputText), alias(p))
}

// InputImage references an image by URL, data URL or uploaded file ID.
type InputImage struct {
	Detail   ImageDetail `json:"detail,omitempty"`
	ImageURL *string     `json:"image_url,omitempty"`
	FileID   *string     `json:"file_id,omitempty"`
}

func (*InputImage) PartType() ContentPartType { return ContentInputImage }

func (p InputImage) MarshalJSON() ([]byte, error) {
	type alias InputImage
	return codec.Encode(string(ContentInputImage), alias(p))
}

// InputFile supplies a file inline or by reference.
type InputFile struct {
	FileID   *string `json:"file_id,omitempty"`
	FileData *string `json:"file_data,omitempty"`
	FileURL  *string `json:"file_url,omitempty"`
	Filename *string `json:"filename,omitempty"`
}

func (*InputFile) PartType() ContentPartType { return ContentInputFile }

func (p InputFile) MarshalJSON() ([]byte, error) {
	type alias InputFile
	return codec.Encode(string(ContentInputFile), alias(p))
}

// OutputText is text produced by the model.
type OutputText struct {
	Text        string         `json:"text"`
	Annotations Annotations    `json:"annotations"`
	Logprobs    []TokenLogprob `json:"logprobs,omitempty"`
}

func (*OutputText) PartType() ContentPartType { return ContentOutputText }

// MarshalJSON always writes annotations as an array, never null.
func (p OutputText) MarshalJSON() ([]byte, error) {
	type alias OutputText
	if p.Annotations == nil {
		p.Annotations = Annotations{}
	}
	return codec.Encode(string(ContentOutputText), alias(p))
}

// Refusal carries the model's refusal message.
type Refusal struct {
	Refusal string `json:"refusal"`
}

func (*Refusal) PartType() ContentPartType { return ContentRefusal }

func (p Refusal) MarshalJSON() ([]byte, error) {
	type alias Refusal
	return codec.Encode(string(ContentRefusal), alias(p))
}

// UnknownContentPart is a content part of a type this package does not know.
type UnknownContentPart struct {
	Type ContentPartType `json:"type,omitempty"`
}

func (p *UnknownContentPart) PartType() ContentPartType { return p.Type }

// TokenLogprob holds log probability information for a single token.
type TokenLogprob struct {
	Token       string       `json:"token"`
	Logprob     float64      `json:"logprob"`
	Bytes       []int        `json:"bytes,omitempty"`
	TopLogprobs []TopLogprob `json:"top_logprobs,omitempty"`
}

// TopLogprob holds a candidate token and its log probability.
type TopLogprob struct {
	Token   string  `json:"token"`
	Logprob float64 `json:"logprob"`
	Bytes   []int   `json:"bytes,omitempty"`
}

// ContentParts is a list of content parts. On decode it also accepts the
// string shorthand, which becomes a single InputText part.
type ContentParts []ContentPart

func (c *ContentParts) UnmarshalJSON(data []byte) error {
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = ContentParts{&InputText{Text: s}}
		return nil
	}
	parts, err := contentParts.DecodeList(data)
	if err != nil {
		return err
	}
	*c = parts
	return nil
}

// Text concatenates the text of all input_text and output_text parts.
func (c ContentParts) Text() string {
	var out string
	for _, p := range c {
		switch p := p.(type) {
		case *InputText:
			out += p.Text
		case *OutputText:
			out += p.Text
		}
	}
	return out
}

var contentParts = func() *codec.Registry[ContentPart] {
	r := codec.NewRegistry[ContentPart]("content_part", func(data []byte) (ContentPart, error) {
		p := new(UnknownContentPart)
		return p, json.Unmarshal(data, p)
	})
	codec.Variant[ContentPart, InputText](r, string(ContentInputText), "text")
	codec.Variant[ContentPart, InputImage](r, string(ContentInputImage))
	codec.Variant[ContentPart, InputFile](r, string(ContentInputFile))
	codec.Variant[ContentPart, OutputText](r, string(ContentOutputText), "text")
	codec.Variant[ContentPart, Refusal](r, string(ContentRefusal), "refusal")
	return r
}()

// DecodeContentPart decodes a single content part.
func DecodeContentPart(data []byte) (ContentPart, error) { return contentParts.Decode(data) }

// AnnotationType is the discriminator of an output text annotation.
type AnnotationType string

const (
	AnnotationFileCitation          AnnotationType = "file_citation"
	AnnotationURLCitation           AnnotationType = "url_citation"
	AnnotationContainerFileCitation AnnotationType = "container_file_citation"
	AnnotationFilePath              AnnotationType = "file_path"
)

// Annotation marks a span of output text, such as a citation.
type Annotation interface {
	AnnotationType() AnnotationType
}

// FileCitation cites an uploaded file.
type FileCitation struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename,omitempty"`
	Index    int    `json:"index"`
}

func (*FileCitation) AnnotationType() AnnotationType { return AnnotationFileCitation }

func (a FileCitation) MarshalJSON() ([]byte, error) {
	type alias FileCitation
	return codec.Encode(string(AnnotationFileCitation), alias(a))
}

// URLCitation cites a web resource.
type URLCitation struct {
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
}

func (*URLCitation) AnnotationType() AnnotationType { return AnnotationURLCitation }

func (a URLCitation) MarshalJSON() ([]byte, error) {
	type alias URLCitation
	return codec.Encode(string(AnnotationURLCitation), alias(a))
}

// ContainerFileCitation cites a file inside a code interpreter container.
type ContainerFileCitation struct {
	ContainerID string `json:"container_id"`
	FileID      string `json:"file_id"`
	Filename    string `json:"filename,omitempty"`
	StartIndex  int    `json:"start_index"`
	EndIndex    int    `json:"end_index"`
}

func (*ContainerFileCitation) AnnotationType() AnnotationType {
	return AnnotationContainerFileCitation
}

func (a ContainerFileCitation) MarshalJSON() ([]byte, error) {
	type alias ContainerFileCitation
	return codec.Encode(string(AnnotationContainerFileCitation), alias(a))
}

// FilePath points at a file generated by a tool.
type FilePath struct {
	FileID string `json:"file_id"`
	Index  int    `json:"index"`
}

func (*FilePath) AnnotationType() AnnotationType { return AnnotationFilePath }

func (a FilePath) MarshalJSON() ([]byte, error) {
	type alias FilePath
	return codec.Encode(string(AnnotationFilePath), alias(a))
}

// UnknownAnnotation is an annotation of a type this package does not know.
type UnknownAnnotation struct {
	Type AnnotationType `json:"type,omitempty"`
}

func (a *UnknownAnnotation) AnnotationType() AnnotationType { return a.Type }

// Annotations is a list of annotations decoded through the annotation registry.
type Annotations []Annotation

func (a *Annotations) UnmarshalJSON(data []byte) error {
	list, err := annotations.DecodeList(data)
	if err != nil {
		return err
	}
	*a = list
	return nil
}

var annotations = func() *codec.Registry[Annotation] {
	r := codec.NewRegistry[Annotation]("annotation", func(data []byte) (Annotation, error) {
		a := new(UnknownAnnotation)
		return a, json.Unmarshal(data, a)
	})
	codec.Variant[Annotation, FileCitation](r, string(AnnotationFileCitation), "file_id")
	codec.Variant[Annotation, URLCitation](r, string(AnnotationURLCitation), "url")
	codec.Variant[Annotation, ContainerFileCitation](r, string(AnnotationContainerFileCitation), "container_id", "file_id")
	codec.Variant[Annotation, FilePath](r, string(AnnotationFilePath), "file_id")
	return r
}()

// DecodeAnnotation decodes a single annotation.
func DecodeAnnotation(data []byte) (Annotation, error) { return annotations.Decode(data) }

// SummaryText is one part of a reasoning summary.
type SummaryText struct {
	Text string `json:"text"`
}

func (s SummaryText) MarshalJSON() ([]byte, error) {
	type alias SummaryText
	return codec.Encode("summary_text", alias(s))
}

// ReasoningText is one part of raw reasoning content.
type ReasoningText struct {
	Text string `json:"text"`
}

func (r ReasoningText) MarshalJSON() ([]byte, error) {
	type alias ReasoningText
	return codec.Encode("reasoning_text", alias(r))
}

// fixedType checks that an object carrying a single fixed type token has
// the expected one, for nested objects that are not unions.
func fixedType(want string, data []byte) error {
	if got, ok := codec.Peek(data); ok && got != want {
		return &codec.DecodeError{Type: want, Field: "type", Err: fmt.Errorf("unexpected type %q", got)}
	}
	return nil
}

func (s *SummaryText) UnmarshalJSON(data []byte) error {
	if err := fixedType("summary_text", data); err != nil {
		return err
	}
	type alias SummaryText
	return json.Unmarshal(data, (*alias)(s))
}

func (r *ReasoningText) UnmarshalJSON(data []byte) error {
	if err := fixedType("reasoning_text", data); err != nil {
		return err
	}
	type alias ReasoningText
	return json.Unmarshal(data, (*alias)(r))
}
