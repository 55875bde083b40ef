package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize/english"
	"github.com/mmcdole/pokedex/internal/browse"
	"github.com/mmcdole/pokedex/internal/domain"
	"github.com/mmcdole/pokedex/internal/library"
	"github.com/mmcdole/pokedex/internal/thumbnail"
	"github.com/mmcdole/pokedex/internal/tui/components"
	"github.com/mmcdole/pokedex/internal/tui/styles"
)

// Pane identifies which half of the screen has focus
type Pane int

const (
	PaneList Pane = iota
	PaneDetail
)

// Layout proportions
const (
	listWidthPercent = 35
	minListWidth     = 24
	footerHeight     = 1
	searchBoxHeight  = 3
	borderSize       = 2
)

const (
	defaultFetchTimeout       = 10 * time.Minute
	defaultPreloadConcurrency = 4
	statusTimeout             = 3 * time.Second
	tickInterval              = 100 * time.Millisecond
)

// Options configures the interactive model
type Options struct {
	Limit              int           // Seed ids 1..Limit
	AutoFetch          bool          // Seed in the background on start
	Preload            bool          // Build thumbnails for cached images ahead of time
	PreloadConcurrency int           // Parallel thumbnail builds
	PreloadMax         int           // Thumbnail cache capacity; 0 preloads every cached image
	FetchTimeout       time.Duration // Upper bound for one background run
}

// Model is the main Bubble Tea model
type Model struct {
	// Services
	session *browse.Session
	queries *library.Queries
	fetcher Fetcher
	thumbs  *thumbnail.Cache // May be nil: sprites are not shown
	opts    Options
	logger  *slog.Logger

	// Lifetime of the program; cancelled on quit
	ctx    context.Context
	cancel context.CancelFunc

	// UI components
	search   textinput.Model
	progress progress.Model

	// UI state
	Ready      bool
	Width      int
	Height     int
	Focus      Pane
	listOffset int
	sprite     thumbnail.Thumbnail
	spriteView string // Rendered sprite, rebuilt only when the thumbnail changes
	hasSprite  bool
	maxStat    int

	// Background fetch state
	Fetching     bool
	fetchKind    FetchKind
	fetchCancel  context.CancelFunc
	FetchLoaded  int
	FetchTotal   int
	failedIDs    []int
	ticking      bool
	SpinnerFrame int

	// Status bar
	StatusMsg   string
	StatusIsErr bool
	statusID    int
}

// NewModel creates a new application model
func NewModel(
	ctx context.Context,
	session *browse.Session,
	queries *library.Queries,
	fetcher Fetcher,
	thumbs *thumbnail.Cache,
	opts Options,
	logger *slog.Logger,
) Model {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.PreloadConcurrency < 1 {
		opts.PreloadConcurrency = defaultPreloadConcurrency
	}
	ctx, cancel := context.WithCancel(ctx)

	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle

	m := Model{
		session:  session,
		queries:  queries,
		fetcher:  fetcher,
		thumbs:   thumbs,
		opts:     opts,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		search:   ti,
		progress: progress.New(progress.WithGradient(string(styles.DexRed), string(styles.DexYellow)), progress.WithoutPercentage()),
		maxStat:  queries.MaxStat(),
	}
	if fetcher != nil {
		m.failedIDs = fetcher.FailedIDs()
	}
	m.loadSprite()
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.opts.AutoFetch && m.opts.Limit > 0 && m.fetcher != nil {
		cmds = append(cmds, StartFetchCmd(FetchSeed, nil))
	}
	if cmd := m.preloadCmd(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case StartFetchMsg:
		cmd := m.startFetch(msg.Kind, msg.IDs)
		return m, cmd

	case FetchProgressMsg:
		p := msg.Progress
		if p.Total > 0 {
			m.FetchLoaded = p.Loaded
			m.FetchTotal = p.Total
		}
		if p.ID > 0 {
			// New records become visible while the run is still going
			m.session.Reload()
			m.syncOffset()
			m.loadSprite()
		}
		if msg.NextCmd != nil {
			if cmd, ok := msg.NextCmd.(tea.Cmd); ok {
				cmds = append(cmds, cmd)
			}
		}
		return m, tea.Batch(cmds...)

	case FetchDoneMsg:
		cmd := m.finishFetch(msg)
		return m, cmd

	case PreloadDoneMsg:
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.logger.Warn("thumbnail preload stopped", "error", msg.Err, "built", msg.Built)
		} else {
			m.logger.Debug("thumbnail preload finished", "built", msg.Built)
		}
		m.loadSprite()
		return m, nil

	case TickMsg:
		if !m.Fetching {
			m.ticking = false
			return m, nil
		}
		m.SpinnerFrame++
		return m, TickCmd(tickInterval)

	case StatusMsg:
		cmd := m.setStatus(msg.Message, msg.IsError)
		return m, cmd

	case ClearStatusMsg:
		if msg.ID == m.statusID {
			m.StatusMsg = ""
			m.StatusIsErr = false
		}
		return m, nil

	}

	return m, nil
}

// handleKeyMsg maps keys to session commands
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		cmd := m.quit()
		return m, cmd
	}

	if m.session.Mode() == browse.Searching {
		return m.handleSearchKey(msg)
	}

	if m.session.ShowHelp() {
		switch {
		case key.Matches(msg, Keys.Quit):
			cmd := m.quit()
			return m, cmd
		case key.Matches(msg, Keys.Help), key.Matches(msg, Keys.Escape):
			cmd := m.apply(browse.Command{Kind: browse.CmdToggleHelp})
			return m, cmd
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		cmd := m.apply(browse.Command{Kind: browse.CmdQuit})
		return m, cmd
	case key.Matches(msg, Keys.Up):
		cmd := m.apply(browse.Navigate(-1))
		return m, cmd
	case key.Matches(msg, Keys.Down):
		cmd := m.apply(browse.Navigate(1))
		return m, cmd
	case key.Matches(msg, Keys.PageUp):
		cmd := m.apply(browse.Navigate(-m.listRows()))
		return m, cmd
	case key.Matches(msg, Keys.PageDown):
		cmd := m.apply(browse.Navigate(m.listRows()))
		return m, cmd
	case key.Matches(msg, Keys.Home):
		cmd := m.apply(browse.Command{Kind: browse.CmdHome})
		return m, cmd
	case key.Matches(msg, Keys.End):
		cmd := m.apply(browse.Command{Kind: browse.CmdEnd})
		return m, cmd
	case key.Matches(msg, Keys.Enter):
		cmd := m.apply(browse.Command{Kind: browse.CmdSelect})
		return m, cmd
	case key.Matches(msg, Keys.Search):
		cmd := m.apply(browse.Command{Kind: browse.CmdActivateSearch})
		m.search.SetValue("")
		focusCmd := m.search.Focus()
		return m, tea.Batch(cmd, focusCmd)
	case key.Matches(msg, Keys.Escape):
		if m.Focus == PaneDetail {
			m.Focus = PaneList
			return m, nil
		}
		if m.session.FilterText() != "" {
			cmd := m.apply(browse.Command{Kind: browse.CmdCancelSearch})
			return m, cmd
		}
	case key.Matches(msg, Keys.Refresh):
		cmd := m.apply(browse.Command{Kind: browse.CmdTriggerRefresh})
		return m, cmd
	case key.Matches(msg, Keys.Help):
		cmd := m.apply(browse.Command{Kind: browse.CmdToggleHelp})
		return m, cmd
	}

	return m, nil
}

// handleSearchKey edits the query. Arrow keys still move the cursor;
// letters (including q, j and k) go to the query.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.search.Blur()
		cmd := m.apply(browse.Command{Kind: browse.CmdConfirmSearch})
		return m, cmd
	case tea.KeyEsc:
		m.search.Blur()
		m.search.SetValue("")
		cmd := m.apply(browse.Command{Kind: browse.CmdCancelSearch})
		return m, cmd
	case tea.KeyUp:
		cmd := m.apply(browse.Navigate(-1))
		return m, cmd
	case tea.KeyDown:
		cmd := m.apply(browse.Navigate(1))
		return m, cmd
	case tea.KeyPgUp:
		cmd := m.apply(browse.Navigate(-m.listRows()))
		return m, cmd
	case tea.KeyPgDown:
		cmd := m.apply(browse.Navigate(m.listRows()))
		return m, cmd
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != m.session.FilterText() {
		applyCmd := m.apply(browse.TypeSearch(m.search.Value()))
		return m, tea.Batch(cmd, applyCmd)
	}
	return m, cmd
}

// apply runs one session command and carries out its effect
func (m *Model) apply(cmd browse.Command) tea.Cmd {
	effect := m.session.Apply(cmd)

	switch cmd.Kind {
	case browse.CmdNavigate, browse.CmdHome, browse.CmdEnd, browse.CmdActivateSearch:
		m.Focus = PaneList
	}
	m.syncOffset()
	m.loadSprite()

	switch effect.Kind {
	case browse.EffectSelected:
		m.Focus = PaneDetail
	case browse.EffectRefresh:
		return m.startFetch(FetchRefresh, mergeIDs(effect.RefreshIDs, m.failedIDs))
	case browse.EffectQuit:
		return m.quit()
	}
	return nil
}

// startFetch launches a background run. Only one runs at a time.
func (m *Model) startFetch(kind FetchKind, ids []int) tea.Cmd {
	if m.fetcher == nil {
		return nil
	}
	if m.Fetching {
		return m.setStatus(fmt.Sprintf("A %s is already running", m.fetchKind), false)
	}
	if kind == FetchRefresh && len(ids) == 0 {
		return m.setStatus("Nothing to refresh", false)
	}

	ctx, cancel := context.WithTimeout(m.ctx, m.opts.FetchTimeout)
	m.Fetching = true
	m.fetchKind = kind
	m.fetchCancel = cancel
	m.FetchLoaded = 0
	m.FetchTotal = len(ids)

	var cmd tea.Cmd
	switch kind {
	case FetchSeed:
		m.FetchTotal = m.opts.Limit
		cmd = SeedCmd(ctx, m.fetcher, m.opts.Limit)
	case FetchRefresh:
		cmd = RefreshCmd(ctx, m.fetcher, ids)
	}
	m.logger.Info("background fetch started", "kind", kind.String(), "items", m.FetchTotal)

	cmds := []tea.Cmd{cmd}
	if !m.ticking {
		m.ticking = true
		cmds = append(cmds, TickCmd(tickInterval))
	}
	return tea.Batch(cmds...)
}

// finishFetch folds a completed run back into the view
func (m *Model) finishFetch(msg FetchDoneMsg) tea.Cmd {
	if m.fetchCancel != nil {
		m.fetchCancel()
		m.fetchCancel = nil
	}
	m.Fetching = false

	m.session.Reload()
	m.syncOffset()
	m.maxStat = m.queries.MaxStat()
	m.failedIDs = m.fetcher.FailedIDs()
	m.loadSprite()

	r := msg.Result
	m.logger.Info("background fetch finished",
		"kind", msg.Kind.String(),
		"records_fetched", r.RecordsFetched,
		"images_fetched", r.ImagesFetched,
		"failures", len(r.Failures),
		"error", msg.Err)

	var status tea.Cmd
	switch {
	case errors.Is(msg.Err, context.Canceled):
		status = m.setStatus(fmt.Sprintf("%s cancelled", domain.FormatName(msg.Kind.String())), false)
	case msg.Err != nil:
		status = m.setStatus(fmt.Sprintf("%s stopped: %v", domain.FormatName(msg.Kind.String()), msg.Err), true)
	default:
		status = m.setStatus(fetchSummary(msg.Kind, r), r.Failed())
	}

	return tea.Batch(status, m.preloadCmd())
}

// preloadCmd builds thumbnails for cached images in the background. With a
// bounded cache only the ids nearest the selection are built.
func (m *Model) preloadCmd() tea.Cmd {
	if !m.opts.Preload || m.thumbs == nil {
		return nil
	}
	var ids []int
	for _, p := range m.queries.Records() {
		if m.queries.HasImage(p.ID) {
			ids = append(ids, p.ID)
		}
	}
	if m.opts.PreloadMax > 0 {
		center, _ := m.session.Select()
		ids = preloadWindow(ids, center, m.opts.PreloadMax)
	}
	if len(ids) == 0 {
		return nil
	}
	return PreloadCmd(m.ctx, m.thumbs, ids, m.opts.PreloadConcurrency)
}

// preloadWindow returns at most n of the ascending ids, centered on center
func preloadWindow(ids []int, center, n int) []int {
	if n <= 0 || len(ids) <= n {
		return ids
	}
	start := sort.SearchInts(ids, center) - n/2
	start = max(0, min(start, len(ids)-n))
	return ids[start : start+n]
}

// setStatus shows a transient status message
func (m *Model) setStatus(message string, isErr bool) tea.Cmd {
	m.statusID++
	m.StatusMsg = message
	m.StatusIsErr = isErr
	return ClearStatusCmd(m.statusID, statusTimeout)
}

// quit stops background work and exits
func (m *Model) quit() tea.Cmd {
	if m.fetchCancel != nil {
		m.fetchCancel()
		m.fetchCancel = nil
	}
	m.cancel()
	return tea.Quit
}

// loadSprite resolves the thumbnail for the selected record.
// Misses decode from local disk; nothing here touches the network.
func (m *Model) loadSprite() {
	if m.thumbs == nil {
		m.clearSprite()
		return
	}
	id, ok := m.session.Select()
	if !ok {
		m.clearSprite()
		return
	}
	th, ok := m.thumbs.GetOrBuild(id)
	if !ok {
		m.clearSprite()
		return
	}
	if m.hasSprite && sameThumbnail(m.sprite, th) {
		return
	}
	m.sprite, m.hasSprite = th, true
	m.spriteView = components.RenderSprite(th)
}

func (m *Model) clearSprite() {
	m.sprite = thumbnail.Thumbnail{}
	m.spriteView = ""
	m.hasSprite = false
}

// sameThumbnail reports whether a and b share pixel storage. Rebuilt
// thumbnails always get a fresh buffer.
func sameThumbnail(a, b thumbnail.Thumbnail) bool {
	if a.Width != b.Width || a.Height != b.Height || len(a.Pix) != len(b.Pix) {
		return false
	}
	return len(a.Pix) == 0 || &a.Pix[0] == &b.Pix[0]
}

// updateLayout sizes the components after a resize
func (m *Model) updateLayout() {
	inner := m.listWidth() - borderSize
	m.search.Width = max(inner-12, 4)
	m.progress.Width = max(inner-16, 4)
	m.syncOffset()
}

func (m Model) listWidth() int {
	return min(max(m.Width*listWidthPercent/100, minListWidth), m.Width)
}

func (m Model) detailWidth() int {
	return max(m.Width-m.listWidth(), 0)
}

func (m Model) bodyHeight() int {
	return max(m.Height-footerHeight, 0)
}

// listRows is the number of records visible in the list pane
func (m Model) listRows() int {
	// Border plus the title line
	return max(m.bodyHeight()-searchBoxHeight-borderSize-1, 1)
}

// syncOffset scrolls the list so the cursor stays visible
func (m *Model) syncOffset() {
	rows := m.listRows()
	cursor := m.session.Cursor()
	if cursor < m.listOffset {
		m.listOffset = cursor
	}
	if cursor >= m.listOffset+rows {
		m.listOffset = cursor - rows + 1
	}
	m.listOffset = max(0, min(m.listOffset, m.session.Len()-rows))
}

// isFailing reports whether id has an outstanding fetch failure
func (m Model) isFailing(id int) bool {
	for _, f := range m.failedIDs {
		if f == id {
			return true
		}
	}
	return false
}

// fetchSummary describes a completed run for the status bar
func fetchSummary(kind FetchKind, r domain.SyncResult) string {
	if r.RecordsFetched == 0 && r.ImagesFetched == 0 && !r.Failed() {
		if kind == FetchSeed {
			return fmt.Sprintf("Cache up to date (%s)", english.Plural(r.Total, "record", ""))
		}
		return "Nothing was refreshed"
	}
	summary := fmt.Sprintf("%s: %s, %s",
		domain.FormatName(kind.String()),
		english.Plural(r.RecordsFetched, "record", ""),
		english.Plural(r.ImagesFetched, "sprite", ""))
	if r.Failed() {
		summary += fmt.Sprintf(" (%d failed)", len(r.Failures))
	}
	return summary
}

// mergeIDs appends extra ids not already in ids, keeping the order of ids
func mergeIDs(ids, extra []int) []int {
	seen := make(map[int]bool, len(ids)+len(extra))
	out := make([]int, 0, len(ids)+len(extra))
	for _, group := range [][]int{ids, extra} {
		for _, id := range group {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
