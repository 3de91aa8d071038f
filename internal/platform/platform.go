package platform

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"stockmeta/internal/metadata"
)

// Platform identifies a target marketplace.
type Platform string

const (
	AdobeStock    Platform = "AdobeStock"
	Freepik       Platform = "Freepik"
	Shutterstock  Platform = "Shutterstock"
	Vecteezy      Platform = "Vecteezy"
	Depositphotos Platform = "Depositphotos"
	RF123         Platform = "123RF"
	Dreamstime    Platform = "Dreamstime"
	General       Platform = "General"
)

// Default is the platform a new workspace starts with.
const Default = AdobeStock

// All lists platforms in display order.
func All() []Platform {
	return []Platform{AdobeStock, Freepik, Shutterstock, Vecteezy, Depositphotos, RF123, Dreamstime, General}
}

var folder = cases.Fold()

// Parse resolves a platform name case-insensitively. "RF123" is accepted as an
// alias for 123RF.
func Parse(value string) (Platform, error) {
	key := folder.String(strings.TrimSpace(value))
	if key == folder.String("RF123") {
		return RF123, nil
	}
	for _, p := range All() {
		if folder.String(string(p)) == key {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", value)
}

func (p Platform) String() string { return string(p) }

// Preset holds the settings a platform overrides when selected.
type Preset struct {
	MinTitleWords      int
	MaxTitleWords      int
	MinDescWords       int
	MaxDescWords       int
	MinKeywords        int
	MaxKeywords        int
	SingleWordKeywords bool
	// Full replaces every setting rather than merging the bounds above.
	Full *metadata.Settings
}

var presets = map[Platform]Preset{
	AdobeStock:    {5, 15, 5, 25, 15, 49, true, nil},
	Shutterstock:  {5, 15, 5, 25, 25, 50, false, nil},
	Freepik:       {5, 20, 5, 25, 20, 50, true, nil},
	Vecteezy:      {5, 15, 10, 25, 10, 49, true, nil},
	Depositphotos: {5, 20, 5, 25, 20, 50, false, nil},
	RF123:         {5, 20, 5, 25, 20, 50, false, nil},
	Dreamstime:    {5, 20, 5, 25, 15, 50, true, nil},
	General:       {Full: generalSettings()},
}

func generalSettings() *metadata.Settings {
	s := metadata.DefaultSettings()
	s.MaxDescWords = 25
	return &s
}

// PresetFor returns the preset registered for p.
func PresetFor(p Platform) (Preset, bool) {
	preset, ok := presets[p]
	return preset, ok
}

// Apply merges the platform preset into current and returns the result.
// Toggles the preset does not own are left unchanged.
func (p Platform) Apply(current metadata.Settings) metadata.Settings {
	preset, ok := presets[p]
	if !ok {
		return current
	}
	if preset.Full != nil {
		return *preset.Full
	}
	current.MinTitleWords = preset.MinTitleWords
	current.MaxTitleWords = preset.MaxTitleWords
	current.MinDescWords = preset.MinDescWords
	current.MaxDescWords = preset.MaxDescWords
	current.MinKeywords = preset.MinKeywords
	current.MaxKeywords = preset.MaxKeywords
	current.SingleWordKeywords = preset.SingleWordKeywords
	return current
}
