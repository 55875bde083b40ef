package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/pokedex/internal/tui/styles"
	"github.com/sahilm/fuzzy"
)

// MatchIndexes returns the byte offsets in text that query matched.
// A case-insensitive substring wins; otherwise the fuzzy match positions are used.
func MatchIndexes(text, query string) []int {
	if query == "" {
		return nil
	}
	lowerText := strings.ToLower(text)
	lowerQuery := strings.ToLower(query)

	if len(lowerText) == len(text) {
		if start := strings.Index(lowerText, lowerQuery); start >= 0 {
			idx := make([]int, 0, len(lowerQuery))
			for i := start; i < start+len(lowerQuery); i++ {
				idx = append(idx, i)
			}
			return idx
		}
	}

	matches := fuzzy.Find(lowerQuery, []string{lowerText})
	if len(matches) == 0 {
		return nil
	}
	return matches[0].MatchedIndexes
}

// HighlightMatches renders text with matched characters emphasized
func HighlightMatches(text, query string, selected bool) string {
	normal := styles.NormalItemStyle
	match := styles.MatchHighlightStyle
	if selected {
		normal = styles.SelectedItemStyle
		match = styles.MatchHighlightSelectedStyle
	}

	indexes := MatchIndexes(text, query)
	if len(indexes) == 0 {
		return normal.Render(text)
	}

	matchSet := make(map[int]bool, len(indexes))
	for _, idx := range indexes {
		matchSet[idx] = true
	}

	// Batch consecutive characters with the same style
	var b strings.Builder
	var run strings.Builder
	runMatched := false
	flush := func() {
		if run.Len() == 0 {
			return
		}
		b.WriteString(styleFor(runMatched, normal, match).Render(run.String()))
		run.Reset()
	}
	for i, r := range text {
		matched := matchSet[i]
		if matched != runMatched {
			flush()
			runMatched = matched
		}
		run.WriteRune(r)
	}
	flush()
	return b.String()
}

func styleFor(matched bool, normal, match lipgloss.Style) lipgloss.Style {
	if matched {
		return match
	}
	return normal
}
