package generator

import (
	"fmt"
	"strings"

	"stockmeta/internal/metadata"
	"stockmeta/internal/platform"
)

// PromptInstruction asks the model to reverse-engineer a text-to-image prompt.
const PromptInstruction = `Act as an expert Prompt Engineer.
Analyze this image/file and reverse-engineer the original text-to-image prompt that could have generated it.
Provide a highly detailed, descriptive prompt including subject, style, lighting, camera angle, and artistic influences.
Do not include introductions like "Here is the prompt". Just output the prompt text directly.`

const transparentInstruction = `CRITICAL INSTRUCTION: This image has a transparent background.
1. The Title MUST explicitly include the phrase "Transparent Background" or "Isolated".
2. Do NOT describe the background as black, dark, or white, even if the preview looks that way.`

const silhouetteInstruction = `CRITICAL INSTRUCTION: This is a silhouette image/vector.
1. The Title MUST explicitly include the word "Silhouette".
2. Ensure keywords include "silhouette", "shadow", "black", "shape".`

// BuildMetadataInstruction renders the text part sent alongside the payload
// in metadata mode.
func BuildMetadataInstruction(p platform.Platform, s metadata.Settings, vector bool) string {
	if p == "" {
		p = platform.Default
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert stock photography contributor assistant for %s.\n", p)
	if vector {
		b.WriteString("Analyze the provided EPS file content (PostScript code). Extract relevant keywords and description.\n")
	} else {
		b.WriteString("Analyze the provided image.\n")
	}
	b.WriteString("Generate metadata optimized for search engine visibility and sales on this specific platform.\n\n")

	if instructions := p.Instructions(); instructions != "" {
		b.WriteString(instructions)
		b.WriteString("\n\n")
	}

	b.WriteString("Constraints:\n")
	fmt.Fprintf(&b, "- Title length: Between %d and %d words.\n", s.MinTitleWords, s.MaxTitleWords)
	fmt.Fprintf(&b, "- Description length: Between %d and %d words.\n", s.MinDescWords, s.MaxDescWords)
	fmt.Fprintf(&b, "- **CRITICAL CONSTRAINT**: The generated Description MUST be strictly under %d characters in length (total characters, not words). Override the word count constraint if necessary to meet this character limit. Be concise.\n", MaxDescriptionChars)
	fmt.Fprintf(&b, "- Number of Keywords: Between %d and %d.\n\n", s.MinKeywords, s.MaxKeywords)

	b.WriteString("Settings:\n")
	keywordStyle := "Allow phrases"
	if s.SingleWordKeywords {
		keywordStyle = "Prefer single words"
	}
	fmt.Fprintf(&b, "- Single Word Keywords: %s.\n", keywordStyle)
	fmt.Fprintf(&b, "- Custom Prompt: %t.\n", s.CustomPrompt)
	fmt.Fprintf(&b, "- Prohibited Words Filter: %t.\n\n", s.ProhibitedWords)

	if s.TransparentBackground {
		b.WriteString(transparentInstruction)
		b.WriteString("\n\n")
	}
	if s.Silhouette {
		b.WriteString(silhouetteInstruction)
		b.WriteString("\n\n")
	}
	b.WriteString("Output must be strict JSON.")
	return b.String()
}
