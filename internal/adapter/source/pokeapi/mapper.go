package pokeapi

import (
	"sort"
	"strings"

	"github.com/mmcdole/pokedex/internal/domain"
)

const descriptionLanguage = "en"

// MapPokemon converts a /pokemon response to a domain record.
// The description is filled in separately from the species endpoint.
func MapPokemon(r PokemonResponse) domain.Pokemon {
	p := domain.Pokemon{
		ID:          r.ID,
		Name:        r.Name,
		Height:      r.Height,
		Weight:      r.Weight,
		Description: domain.DefaultDescription,
		Types:       mapTypes(r.Types),
		Abilities:   mapAbilities(r.Abilities),
		Stats:       mapStats(r.Stats),
	}
	if r.BaseExperience != nil {
		p.BaseExperience = *r.BaseExperience
	}
	if r.Sprites.FrontDefault != nil {
		p.SpriteURL = *r.Sprites.FrontDefault
	}
	return p
}

// mapTypes returns type names ordered by slot (primary first)
func mapTypes(slots []TypeSlot) []string {
	sorted := make([]TypeSlot, len(slots))
	copy(sorted, slots)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Slot < sorted[j].Slot })

	types := make([]string, 0, len(sorted))
	for _, s := range sorted {
		if s.Type.Name != "" {
			types = append(types, s.Type.Name)
		}
	}
	return types
}

// mapAbilities keeps API order, which lists hidden abilities last
func mapAbilities(slots []AbilitySlot) []string {
	abilities := make([]string, 0, len(slots))
	for _, s := range slots {
		if s.Ability.Name != "" {
			abilities = append(abilities, s.Ability.Name)
		}
	}
	return abilities
}

func mapStats(entries []StatEntry) []domain.Stat {
	stats := make([]domain.Stat, 0, len(entries))
	for _, e := range entries {
		if e.Stat.Name == "" {
			continue
		}
		stats = append(stats, domain.Stat{Name: e.Stat.Name, Base: e.BaseStat})
	}
	return stats
}

// MapDescription returns the first English flavor text with line breaks and
// form feeds collapsed to spaces, or the default description.
func MapDescription(r SpeciesResponse) string {
	for _, e := range r.FlavorTextEntries {
		if e.Language.Name != descriptionLanguage {
			continue
		}
		return CleanFlavorText(e.FlavorText)
	}
	return domain.DefaultDescription
}

// CleanFlavorText replaces the hard line breaks and form feeds PokeAPI
// inherits from the games with plain spaces
func CleanFlavorText(text string) string {
	return strings.NewReplacer("\n", " ", "\f", " ").Replace(text)
}
