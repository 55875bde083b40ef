package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/mmcdole/pokedex/internal/domain"
	"github.com/mmcdole/pokedex/internal/tui/styles"
)

const (
	statNameWidth  = 4
	statValueWidth = 4
)

var statLabels = map[string]string{
	"hp":              "HP",
	"attack":          "ATK",
	"defense":         "DEF",
	"special-attack":  "SpA",
	"special-defense": "SpD",
	"speed":           "SPD",
}

// StatLabel returns the short label for a stat name
func StatLabel(name string) string {
	if label, ok := statLabels[name]; ok {
		return label
	}
	return domain.FormatName(name)
}

// StatBarLength scales base against scaleMax into at most width cells
func StatBarLength(base, scaleMax, width int) int {
	if scaleMax <= 0 || width <= 0 || base <= 0 {
		return 0
	}
	n := int(math.Round(float64(base) / float64(scaleMax) * float64(width)))
	return min(n, width)
}

// RenderStats renders one line per stat: label, value and a bar scaled to
// scaleMax so bars compare across records.
func RenderStats(stats []domain.Stat, scaleMax, width int) string {
	if len(stats) == 0 {
		return styles.DimStyle.Render("No stats")
	}
	barWidth := max(width-statNameWidth-statValueWidth-2, 0)

	lines := make([]string, len(stats))
	for i, st := range stats {
		label := styles.Pad(StatLabel(st.Name), statNameWidth)
		value := fmt.Sprintf("%*d", statValueWidth, st.Base)
		bar := styles.RenderBar(StatBarLength(st.Base, scaleMax, barWidth), barWidth)
		lines[i] = styles.LabelStyle.Render(label) + " " + value + " " + bar
	}
	return strings.Join(lines, "\n")
}
