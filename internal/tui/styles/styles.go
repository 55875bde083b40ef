package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	DexRed     = lipgloss.Color("#DC0A2D")
	DexYellow  = lipgloss.Color("#FFCB05")
	SlateDark  = lipgloss.Color("#1F2937")
	SlateLight = lipgloss.Color("#374151")
	DimGray    = lipgloss.Color("#6B7280")
	LightGray  = lipgloss.Color("#9CA3AF")
	White      = lipgloss.Color("#F9FAFB")
	Black      = lipgloss.Color("#000000")
	Green      = lipgloss.Color("#10B981")
	Red        = lipgloss.Color("#EF4444")
	Cyan       = lipgloss.Color("#22D3EE")
)

// Borders
var (
	ActiveBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DexRed)

	InactiveBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DimGray)
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(DexYellow)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)

	LabelStyle = lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true)
)

// List item styles
var (
	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(DexYellow).
				Background(SlateLight).
				Bold(true)

	NormalItemStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	NumberStyle = lipgloss.NewStyle().
			Foreground(DimGray)
)

// Modal styles
var (
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DexRed).
			Padding(1, 2).
			Background(SlateDark)

	ModalTitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true).
			MarginBottom(1)
)

// Help styles
var (
	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(DexYellow)

	HelpDescStyle = lipgloss.NewStyle().
			Foreground(DimGray)
)

// Stat bar styles
var (
	StatFullStyle = lipgloss.NewStyle().
			Foreground(Green)

	StatEmptyStyle = lipgloss.NewStyle().
			Foreground(SlateLight)
)

// Spinner style
var (
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(DexYellow)
)

// Filter styles
var (
	FilterStyle = lipgloss.NewStyle().
			Foreground(DexYellow)

	FilterPromptStyle = lipgloss.NewStyle().
				Foreground(DexYellow).
				Bold(true)
)

// Match highlight styles for search results
var (
	MatchHighlightStyle = lipgloss.NewStyle().
				Foreground(DexRed).
				Bold(true)

	MatchHighlightSelectedStyle = lipgloss.NewStyle().
					Foreground(DexRed).
					Background(SlateLight).
					Bold(true)
)

// Helper functions

// Truncate truncates a string to the given display width with ellipsis
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if width <= 3 {
		return string(runes[:min(width, len(runes))])
	}
	for len(runes) > 0 && lipgloss.Width(string(runes))+3 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

// Pad pads a string with spaces to the given display width
func Pad(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// RenderBar renders a horizontal bar of filled cells out of width
func RenderBar(filled, width int) string {
	if width <= 0 {
		return ""
	}
	filled = max(0, min(filled, width))
	return StatFullStyle.Render(strings.Repeat("█", filled)) +
		StatEmptyStyle.Render(strings.Repeat("░", width-filled))
}
