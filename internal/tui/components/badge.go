package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/pokedex/internal/domain"
)

// RGB is a terminal truecolor triple
type RGB struct {
	R, G, B uint8
}

// Hex returns the color as "#rrggbb"
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Color returns the color as a lipgloss color
func (c RGB) Color() lipgloss.Color {
	return lipgloss.Color(c.Hex())
}

// Luminance is the relative brightness on a 0-255 scale (Rec. 709 weights)
func (c RGB) Luminance() float64 {
	return 0.2126*float64(c.R) + 0.7152*float64(c.G) + 0.0722*float64(c.B)
}

// typeColors are the classic per-type badge colors
var typeColors = map[string]RGB{
	"normal":   {168, 168, 120},
	"fire":     {240, 128, 48},
	"water":    {104, 144, 240},
	"grass":    {120, 200, 80},
	"electric": {248, 208, 48},
	"ice":      {152, 216, 216},
	"fighting": {192, 48, 40},
	"poison":   {160, 64, 160},
	"ground":   {224, 192, 104},
	"flying":   {168, 144, 240},
	"psychic":  {248, 88, 136},
	"bug":      {168, 184, 32},
	"rock":     {184, 160, 56},
	"ghost":    {112, 88, 152},
	"dragon":   {112, 56, 248},
	"dark":     {112, 88, 72},
	"steel":    {184, 184, 208},
	"fairy":    {238, 153, 172},
}

var unknownTypeColor = RGB{200, 200, 200}

// TypeColor returns the badge background for a type tag
func TypeColor(typeName string) RGB {
	if c, ok := typeColors[strings.ToLower(typeName)]; ok {
		return c
	}
	return unknownTypeColor
}

// BadgeForeground picks black text on light backgrounds and white otherwise
func BadgeForeground(bg RGB) lipgloss.Color {
	if bg.Luminance() > 160 {
		return lipgloss.Color("#000000")
	}
	return lipgloss.Color("#ffffff")
}

// TypeBadge renders one type tag as a padded colored badge
func TypeBadge(typeName string) string {
	bg := TypeColor(typeName)
	return lipgloss.NewStyle().
		Foreground(BadgeForeground(bg)).
		Background(bg.Color()).
		Padding(0, 1).
		Render(domain.FormatName(typeName))
}

// TypeBadges renders all of a record's type tags separated by a space
func TypeBadges(types []string) string {
	badges := make([]string, len(types))
	for i, t := range types {
		badges[i] = TypeBadge(t)
	}
	return strings.Join(badges, " ")
}
