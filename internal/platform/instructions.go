package platform

import "fmt"

// Instructions returns the platform-specific phrasing rules embedded in the
// metadata instruction.
func (p Platform) Instructions() string {
	switch p {
	case AdobeStock:
		return `PLATFORM SPECIFIC: Adobe Stock.
- **CRITICAL: Keyword Order Matters.** The most relevant keywords MUST be first.
- Title: Concise, "Subject + Action/Context". Keep it between 5-15 words.
- Avoid "A photo of" or "Vector of".
- Do not include camera specs.
- Keywords: Max 49. Single words preferred.`
	case Shutterstock:
		return `PLATFORM SPECIFIC: Shutterstock.
- Title (Description): Must be descriptive and written as a sentence. Min 5 words.
- Avoid "A photo of".
- Include specific details about the subject, action, and location.
- Keywords: Can include synonyms and conceptual terms. Max 50.`
	case Freepik:
		return `PLATFORM SPECIFIC: Freepik.
- Style: Commercial, trendy, modern.
- Keywords: Focus on design utility (e.g., "banner", "template", "poster") if applicable.
- Max 50 keywords.`
	case Vecteezy:
		return `PLATFORM SPECIFIC: Vecteezy.
- Title: Descriptive but concise.
- Description: Should describe the visual composition.
- Focus on technical keywords for vectors (e.g., "vector", "illustration", "flat design").`
	case Depositphotos, RF123, Dreamstime:
		return fmt.Sprintf(`PLATFORM SPECIFIC: %s.
- Standard microstock requirements.
- Clear, search-friendly English.
- Dreamstime: Title min 5 words, Description min 5 words.`, p)
	default:
		return `PLATFORM: General/Multi-upload.
- Create a balanced metadata set suitable for all major agencies.
- Max 50 keywords.`
	}
}
