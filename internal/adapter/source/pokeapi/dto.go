package pokeapi

// NamedResource is the {name, url} pair PokeAPI uses for every reference
type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// PokemonResponse is the subset of GET /pokemon/{id} we use
type PokemonResponse struct {
	ID             int           `json:"id"`
	Name           string        `json:"name"`
	Height         int           `json:"height"`
	Weight         int           `json:"weight"`
	BaseExperience *int          `json:"base_experience"` // null for some forms
	Types          []TypeSlot    `json:"types"`
	Abilities      []AbilitySlot `json:"abilities"`
	Stats          []StatEntry   `json:"stats"`
	Sprites        Sprites       `json:"sprites"`
}

// TypeSlot is one entry of PokemonResponse.Types
type TypeSlot struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

// AbilitySlot is one entry of PokemonResponse.Abilities
type AbilitySlot struct {
	Slot     int           `json:"slot"`
	IsHidden bool          `json:"is_hidden"`
	Ability  NamedResource `json:"ability"`
}

// StatEntry is one entry of PokemonResponse.Stats
type StatEntry struct {
	BaseStat int           `json:"base_stat"`
	Effort   int           `json:"effort"`
	Stat     NamedResource `json:"stat"`
}

// Sprites holds the image URLs; only the default front sprite is used
type Sprites struct {
	FrontDefault *string `json:"front_default"`
}

// SpeciesResponse is the subset of GET /pokemon-species/{id} we use
type SpeciesResponse struct {
	ID                int               `json:"id"`
	Name              string            `json:"name"`
	FlavorTextEntries []FlavorTextEntry `json:"flavor_text_entries"`
}

// FlavorTextEntry is one localized dex description
type FlavorTextEntry struct {
	FlavorText string        `json:"flavor_text"`
	Language   NamedResource `json:"language"`
	Version    NamedResource `json:"version"`
}
