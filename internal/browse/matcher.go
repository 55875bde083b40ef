package browse

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/pokedex/internal/domain"
)

// Matcher decides whether a record belongs in the filtered view.
// query is never empty; the session shows everything for empty text.
type Matcher interface {
	Match(p domain.Pokemon, query string) bool
}

// MatcherFunc adapts a function to Matcher
type MatcherFunc func(p domain.Pokemon, query string) bool

func (f MatcherFunc) Match(p domain.Pokemon, query string) bool { return f(p, query) }

// NameMatcher matches a case-insensitive substring of the display name
type NameMatcher struct{}

func (NameMatcher) Match(p domain.Pokemon, query string) bool {
	return containsFold(p.DisplayName(), query)
}

// NameTypeMatcher also matches any type tag ("fire" finds every fire type)
type NameTypeMatcher struct{}

func (NameTypeMatcher) Match(p domain.Pokemon, query string) bool {
	if containsFold(p.DisplayName(), query) {
		return true
	}
	for _, t := range p.Types {
		if containsFold(t, query) {
			return true
		}
	}
	return false
}

// FuzzyMatcher matches when the query's characters appear in order in the
// display name, ignoring case and diacritics ("pkch" finds "Pikachu")
type FuzzyMatcher struct{}

func (FuzzyMatcher) Match(p domain.Pokemon, query string) bool {
	return fuzzy.MatchNormalizedFold(query, p.DisplayName())
}

// MatcherFor returns the matcher for a search mode name: "name_types",
// "fuzzy", or anything else for name-only matching
func MatcherFor(mode string) Matcher {
	switch mode {
	case "name_types":
		return NameTypeMatcher{}
	case "fuzzy":
		return FuzzyMatcher{}
	default:
		return NameMatcher{}
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
