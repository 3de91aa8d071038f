package metadata

import (
	"fmt"
	"strings"
)

// Mode selects which output contract the generator fulfils.
type Mode string

const (
	// ModeMetadata produces a title, description and keyword list.
	ModeMetadata Mode = "metadata"
	// ModeImageToPrompt reverse-engineers a text-to-image prompt.
	ModeImageToPrompt Mode = "image_to_prompt"
)

// ParseMode accepts the canonical names plus the camel-case spellings used by
// older exports ("Metadata", "ImageToPrompt").
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "metadata", "":
		return ModeMetadata, nil
	case "image_to_prompt", "imagetoprompt", "prompt":
		return ModeImageToPrompt, nil
	default:
		return "", fmt.Errorf("unknown mode %q", value)
	}
}

func (m Mode) String() string { return string(m) }

// Label is the human-facing name of the mode.
func (m Mode) Label() string {
	if m == ModeImageToPrompt {
		return "Image to Prompt"
	}
	return "Metadata"
}
