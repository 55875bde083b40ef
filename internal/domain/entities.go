package domain

import (
	"strings"
	"unicode"
)

// DefaultDescription is used when the species endpoint has no English flavor text.
const DefaultDescription = "No description available."

// Stat is a single base stat (e.g. "hp" -> 45)
type Stat struct {
	Name string `json:"name"`
	Base int    `json:"base"`
}

// Pokemon is one catalog record. Records are immutable once fetched;
// the RecordStore owns them and everything else refers to them by ID.
type Pokemon struct {
	ID             int      `json:"pokedex"`         // National dex number, the stable key
	Name           string   `json:"name"`            // API slug, e.g. "mr-mime"
	Types          []string `json:"types"`           // Ordered type tags
	Description    string   `json:"description"`     // English flavor text
	SpriteURL      string   `json:"sprite,omitempty"` // Remote image URL
	Abilities      []string `json:"abilities"`       // Ordered ability slugs
	Height         int      `json:"height"`          // Decimetres
	Weight         int      `json:"weight"`          // Hectograms
	BaseExperience int      `json:"base_experience"`
	Stats          []Stat   `json:"stats"` // Ordered so serialization is stable
}

// DisplayName returns a human-friendly name ("mr-mime" -> "Mr Mime")
func (p Pokemon) DisplayName() string {
	return FormatName(p.Name)
}

// IsComplete reports whether the record carries all the detail fields.
// Records cached by older versions may be missing some of them.
func (p Pokemon) IsComplete() bool {
	return p.ID > 0 && p.Name != "" &&
		len(p.Abilities) > 0 && len(p.Stats) > 0 &&
		p.Height > 0 && p.Weight > 0
}

// FormatName turns an API slug into a title-cased name.
// Hyphens and underscores become spaces: "ho_oh" -> "Ho Oh".
func FormatName(name string) string {
	replaced := strings.NewReplacer("-", " ", "_", " ").Replace(name)
	words := strings.Fields(replaced)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
