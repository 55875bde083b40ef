package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/pokedex/internal/browse"
	"github.com/mmcdole/pokedex/internal/domain"
	"github.com/mmcdole/pokedex/internal/tui/components"
	"github.com/mmcdole/pokedex/internal/tui/styles"
)

const (
	statsWidth    = 40
	minInfoWidth  = 28
	spriteGap     = 2
	listRowMarker = "▸ "
)

// View renders the UI
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	if m.session.ShowHelp() {
		return m.renderHelp()
	}

	listW := m.listWidth()
	bodyH := m.bodyHeight()

	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderList(listW, bodyH-searchBoxHeight),
		m.renderSearchBox(listW),
	)
	right := m.renderDetail(m.detailWidth(), bodyH)
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderFooter())
}

// box draws content in a rounded border exactly w by h cells, clipping overflow
func box(content string, w, h int, active bool) string {
	iw := max(w-borderSize, 0)
	ih := max(h-borderSize, 0)
	content = lipgloss.NewStyle().MaxWidth(iw).MaxHeight(ih).Render(content)

	border := styles.InactiveBorder
	if active {
		border = styles.ActiveBorder
	}
	return border.Width(iw).Height(ih).Render(content)
}

// renderList renders the record list with the cursor kept in view
func (m Model) renderList(w, h int) string {
	iw := max(w-borderSize, 0)

	title := styles.AccentStyle.Render(fmt.Sprintf("Pokémon %d/%d", m.session.Len(), m.queries.Count()))
	lines := []string{title}

	if m.session.Empty() {
		lines = append(lines, styles.DimStyle.Render(m.emptyListMessage()))
		return box(strings.Join(lines, "\n"), w, h, m.Focus == PaneList)
	}

	query := m.session.FilterText()
	cursor := m.session.Cursor()
	end := min(m.listOffset+m.listRows(), m.session.Len())
	for i := m.listOffset; i < end; i++ {
		id, _ := m.session.IDAt(i)
		p, ok := m.queries.Record(id)
		if !ok {
			continue
		}
		lines = append(lines, renderListRow(p, i == cursor, query, iw))
	}

	return box(strings.Join(lines, "\n"), w, h, m.Focus == PaneList)
}

func (m Model) emptyListMessage() string {
	switch {
	case m.session.FilterText() != "":
		return "No matches"
	case m.Fetching:
		return "Fetching..."
	default:
		return "No records cached. Run 'pokedex fetch' to populate."
	}
}

// renderListRow renders "#025 Pikachu" with matches highlighted
func renderListRow(p domain.Pokemon, selected bool, query string, width int) string {
	base := styles.NormalItemStyle
	number := styles.NumberStyle
	marker := "  "
	if selected {
		base = styles.SelectedItemStyle
		number = styles.SelectedItemStyle
		marker = listRowMarker
	}

	prefix := fmt.Sprintf("#%03d ", p.ID)
	name := styles.Truncate(p.DisplayName(), width-lipgloss.Width(marker)-len(prefix))

	row := base.Render(marker) + number.Render(prefix) + components.HighlightMatches(name, query, selected)
	if pad := width - lipgloss.Width(row); pad > 0 {
		row += base.Render(strings.Repeat(" ", pad))
	}
	return row
}

// renderSearchBox shows the query input, the fetch gauge or a hint
func (m Model) renderSearchBox(w int) string {
	var content string
	switch {
	case m.session.Mode() == browse.Searching:
		content = m.search.View() +
			styles.DimStyle.Render(fmt.Sprintf(" [%d/%d]", m.session.Len(), m.queries.Count()))
	case m.Fetching:
		label := fmt.Sprintf("%s %d/%d ", RenderSpinner(m.SpinnerFrame), m.FetchLoaded, m.FetchTotal)
		content = label + m.progress.ViewAs(m.fetchRatio())
	case m.session.FilterText() != "":
		content = styles.FilterPromptStyle.Render("/ ") + styles.FilterStyle.Render(m.session.FilterText()) +
			styles.DimStyle.Render("  esc to clear")
	default:
		content = styles.DimStyle.Render("Press / to search")
	}
	return box(content, w, searchBoxHeight, m.session.Mode() == browse.Searching)
}

func (m Model) fetchRatio() float64 {
	if m.FetchTotal <= 0 {
		return 0
	}
	return min(float64(m.FetchLoaded)/float64(m.FetchTotal), 1)
}

// renderDetail renders sprite, info, stats and description for the selection
func (m Model) renderDetail(w, h int) string {
	active := m.Focus == PaneDetail
	p, ok := m.session.Selected()
	if !ok {
		msg := "No Pokémon match the filter"
		if m.session.FilterText() == "" {
			msg = "Nothing to show yet"
		}
		return box(styles.DimStyle.Render(msg), w, h, active)
	}

	iw := max(w-borderSize, 0)

	info := m.renderInfo(p)
	stats := styles.LabelStyle.Render("Stats") + "\n" +
		components.RenderStats(p.Stats, m.maxStat, min(statsWidth, iw))
	right := lipgloss.JoinVertical(lipgloss.Left, info, "", stats)

	top := right
	if sprite := m.renderSprite(iw); sprite != "" {
		top = lipgloss.JoinHorizontal(lipgloss.Top, sprite, strings.Repeat(" ", spriteGap), right)
	}

	desc := styles.LabelStyle.Render("Description") + "\n" + wordWrap(p.Description, iw)

	return box(lipgloss.JoinVertical(lipgloss.Left, top, "", desc), w, h, active)
}

func (m Model) renderInfo(p domain.Pokemon) string {
	lines := []string{
		styles.TitleStyle.Render(p.DisplayName()) + styles.DimStyle.Render(fmt.Sprintf("  #%d", p.ID)),
		"",
		components.TypeBadges(p.Types),
		"",
	}
	if len(p.Abilities) > 0 {
		names := make([]string, len(p.Abilities))
		for i, a := range p.Abilities {
			names[i] = domain.FormatName(a)
		}
		lines = append(lines, styles.LabelStyle.Render("Abilities ")+strings.Join(names, ", "))
	}
	lines = append(lines, fmt.Sprintf("%s %.1f m  %s %.1f kg  %s %d",
		styles.LabelStyle.Render("Height"), float64(p.Height)/10,
		styles.LabelStyle.Render("Weight"), float64(p.Weight)/10,
		styles.LabelStyle.Render("Base EXP"), p.BaseExperience))

	if m.isFailing(p.ID) {
		lines = append(lines, styles.ErrorStyle.Render("Last fetch failed; r retries"))
	}
	return strings.Join(lines, "\n")
}

// renderSprite returns the selected thumbnail, a placeholder when there is
// none, or nothing when the pane is too narrow to fit it beside the info.
func (m Model) renderSprite(width int) string {
	if m.thumbs == nil {
		return ""
	}
	if !m.hasSprite {
		return styles.DimStyle.Render("(no sprite)")
	}
	if m.sprite.Width+spriteGap+minInfoWidth > width {
		return ""
	}
	return m.spriteView
}

// renderFooter renders the status bar
func (m Model) renderFooter() string {
	// Left side: spinner + progress while fetching, else the status message
	var left string
	switch {
	case m.Fetching:
		left = RenderSpinner(m.SpinnerFrame) + " " +
			styles.DimStyle.Render(fmt.Sprintf("%s %d/%d", domain.FormatName(m.fetchKind.String()), m.FetchLoaded, m.FetchTotal))
		if m.StatusMsg != "" {
			left += styles.DimStyle.Render(" · " + m.StatusMsg)
		}
	case m.StatusMsg != "":
		if m.StatusIsErr {
			left = styles.ErrorStyle.Render(m.StatusMsg)
		} else {
			left = styles.DimStyle.Render(m.StatusMsg)
		}
	case len(m.failedIDs) > 0:
		left = styles.ErrorStyle.Render(fmt.Sprintf("%d failed", len(m.failedIDs))) +
			styles.DimStyle.Render(" · r retries")
	}

	right := styles.AccentStyle.Render("?") + styles.DimStyle.Render(" help")

	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderHelp renders the help modal
func (m Model) renderHelp() string {
	bindings := []struct{ keys, desc string }{
		{"j/k ↑/↓", "Navigate list"},
		{"g/G", "First/last record"},
		{"PgUp/PgDn", "Scroll page"},
		{"Enter", "Focus details"},
		{"/", "Search by name"},
		{"Enter/Esc", "Finish or cancel search"},
		{"r", "Refresh nearby records (background)"},
		{"?/h/F1", "Toggle this help"},
		{"q", "Quit"},
	}

	lines := []string{styles.ModalTitleStyle.Render("Keybindings")}
	for _, b := range bindings {
		lines = append(lines, styles.HelpKeyStyle.Render(styles.Pad(b.keys, 12))+styles.HelpDescStyle.Render(b.desc))
	}
	lines = append(lines, "", styles.DimStyle.Render("Press ? or Esc to return..."))

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(strings.Join(lines, "\n")))
}

// wordWrap wraps text to the specified width
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	words := strings.Fields(text)
	lineLen := 0

	for i, word := range words {
		wordLen := lipgloss.Width(word)

		if lineLen+wordLen+1 > width && lineLen > 0 {
			result.WriteString("\n")
			lineLen = 0
		}

		if i > 0 && lineLen > 0 {
			result.WriteString(" ")
			lineLen++
		}

		result.WriteString(word)
		lineLen += wordLen
	}

	return result.String()
}

// RenderSpinner renders a loading spinner
func RenderSpinner(frame int) string {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return styles.SpinnerStyle.Render(frames[frame%len(frames)])
}
