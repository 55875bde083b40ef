package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/pokedex/internal/thumbnail"
)

const halfBlock = "▀"

// RenderSprite draws a thumbnail with half-block cells: each terminal row
// carries two pixel rows, the upper as foreground and the lower as background.
// The result is Width columns by ceil(Height/2) rows.
func RenderSprite(th thumbnail.Thumbnail) string {
	if th.Width <= 0 || th.Height <= 0 {
		return ""
	}

	rows := make([]string, 0, (th.Height+1)/2)
	for y := 0; y < th.Height; y += 2 {
		var b strings.Builder
		for x := 0; x < th.Width; x++ {
			top := pixel(th, x, y)
			bottom := RGB{}
			if y+1 < th.Height {
				bottom = pixel(th, x, y+1)
			}
			b.WriteString(lipgloss.NewStyle().
				Foreground(top.Color()).
				Background(bottom.Color()).
				Render(halfBlock))
		}
		rows = append(rows, b.String())
	}
	return strings.Join(rows, "\n")
}

// SpriteRows returns the number of terminal rows RenderSprite uses for height pixels
func SpriteRows(height int) int {
	return (height + 1) / 2
}

func pixel(th thumbnail.Thumbnail, x, y int) RGB {
	r, g, b := th.At(x, y)
	return RGB{r, g, b}
}
