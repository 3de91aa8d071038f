package metadata

import "fmt"

// Settings bounds and toggles forwarded verbatim to the generator.
type Settings struct {
	MinTitleWords         int  `json:"min_title_words" msgpack:"min_title_words"`
	MaxTitleWords         int  `json:"max_title_words" msgpack:"max_title_words"`
	MinKeywords           int  `json:"min_keywords" msgpack:"min_keywords"`
	MaxKeywords           int  `json:"max_keywords" msgpack:"max_keywords"`
	MinDescWords          int  `json:"min_desc_words" msgpack:"min_desc_words"`
	MaxDescWords          int  `json:"max_desc_words" msgpack:"max_desc_words"`
	SingleWordKeywords    bool `json:"single_word_keywords" msgpack:"single_word_keywords"`
	Silhouette            bool `json:"silhouette" msgpack:"silhouette"`
	CustomPrompt          bool `json:"custom_prompt" msgpack:"custom_prompt"`
	TransparentBackground bool `json:"transparent_background" msgpack:"transparent_background"`
	ProhibitedWords       bool `json:"prohibited_words" msgpack:"prohibited_words"`
}

// DefaultSettings mirrors the values a fresh workspace starts with before a
// platform preset is applied.
func DefaultSettings() Settings {
	return Settings{
		MinTitleWords:      8,
		MaxTitleWords:      22,
		MinKeywords:        40,
		MaxKeywords:        50,
		MinDescWords:       12,
		MaxDescWords:       30,
		SingleWordKeywords: true,
		ProhibitedWords:    true,
	}
}

// Validate checks that every bound is positive and min does not exceed max.
func (s Settings) Validate() error {
	bounds := []struct {
		name     string
		min, max int
	}{
		{"title words", s.MinTitleWords, s.MaxTitleWords},
		{"description words", s.MinDescWords, s.MaxDescWords},
		{"keywords", s.MinKeywords, s.MaxKeywords},
	}
	for _, b := range bounds {
		if b.min < 1 || b.max < 1 {
			return fmt.Errorf("%s bounds must be positive (got %d-%d)", b.name, b.min, b.max)
		}
		if b.min > b.max {
			return fmt.Errorf("%s minimum %d exceeds maximum %d", b.name, b.min, b.max)
		}
	}
	return nil
}
