package metadata

import "strings"

// Result is the output of one successful generation. The concrete type is
// either MetadataResult or PromptResult depending on the active Mode.
type Result interface {
	Mode() Mode
}

// MetadataResult carries SEO metadata. Keywords are ordered most relevant first.
type MetadataResult struct {
	Title       string   `json:"title" msgpack:"title"`
	Description string   `json:"description" msgpack:"description"`
	Keywords    []string `json:"keywords" msgpack:"keywords"`
}

// Mode implements Result.
func (MetadataResult) Mode() Mode { return ModeMetadata }

// KeywordList joins keywords with ", " preserving order.
func (r MetadataResult) KeywordList() string {
	return strings.Join(r.Keywords, ", ")
}

// PromptResult carries a reverse-engineered text-to-image prompt.
type PromptResult struct {
	Text string `json:"prompt" msgpack:"prompt"`
}

// Mode implements Result.
func (PromptResult) Mode() Mode { return ModeImageToPrompt }

// Envelope is the wire form of a Result: exactly one of Metadata or Prompt is
// set, matching Kind.
type Envelope struct {
	Kind     Mode            `json:"kind" msgpack:"kind"`
	Metadata *MetadataResult `json:"metadata,omitempty" msgpack:"metadata,omitempty"`
	Prompt   *PromptResult   `json:"prompt,omitempty" msgpack:"prompt,omitempty"`
}

// Wrap converts a Result into its wire envelope. A nil result yields nil.
func Wrap(r Result) *Envelope {
	switch v := r.(type) {
	case MetadataResult:
		return &Envelope{Kind: ModeMetadata, Metadata: &v}
	case *MetadataResult:
		if v == nil {
			return nil
		}
		return &Envelope{Kind: ModeMetadata, Metadata: v}
	case PromptResult:
		return &Envelope{Kind: ModeImageToPrompt, Prompt: &v}
	case *PromptResult:
		if v == nil {
			return nil
		}
		return &Envelope{Kind: ModeImageToPrompt, Prompt: v}
	default:
		return nil
	}
}

// Unwrap returns the Result held by the envelope, or nil.
func (e *Envelope) Unwrap() Result {
	if e == nil {
		return nil
	}
	switch {
	case e.Kind == ModeMetadata && e.Metadata != nil:
		return *e.Metadata
	case e.Kind == ModeImageToPrompt && e.Prompt != nil:
		return *e.Prompt
	default:
		return nil
	}
}

// AsMetadata returns the metadata result when r holds one.
func AsMetadata(r Result) (MetadataResult, bool) {
	switch v := r.(type) {
	case MetadataResult:
		return v, true
	case *MetadataResult:
		if v != nil {
			return *v, true
		}
	}
	return MetadataResult{}, false
}

// AsPrompt returns the prompt result when r holds one.
func AsPrompt(r Result) (PromptResult, bool) {
	switch v := r.(type) {
	case PromptResult:
		return v, true
	case *PromptResult:
		if v != nil {
			return *v, true
		}
	}
	return PromptResult{}, false
}
