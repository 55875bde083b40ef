// Package browse holds the interactive view state: filter, cursor and search
// mode over the record store. Everything here is synchronous and memory-only.
package browse

import (
	"github.com/mmcdole/pokedex/internal/domain"
)

// Mode is the session's input state
type Mode int

const (
	Browsing Mode = iota
	Searching
)

func (m Mode) String() string {
	if m == Searching {
		return "searching"
	}
	return "browsing"
}

// Options configures a Session
type Options struct {
	Matcher       Matcher // Nil means NameMatcher
	RefreshWindow int     // Records either side of the cursor included in a refresh
}

// Session is the filtered, cursor-tracked view over a record store.
// It keeps identifiers only; records are read from the store on demand.
// Not safe for concurrent use; it lives on the UI loop.
type Session struct {
	records domain.RecordReader
	opts    Options

	mode     Mode
	filter   string
	view     []int // Record ids in store order
	cursor   int
	showHelp bool
}

// NewSession creates a session showing every record
func NewSession(records domain.RecordReader, opts Options) *Session {
	if opts.Matcher == nil {
		opts.Matcher = NameMatcher{}
	}
	if opts.RefreshWindow < 0 {
		opts.RefreshWindow = 0
	}
	s := &Session{records: records, opts: opts}
	s.recompute()
	return s
}

// === Read side ===

func (s *Session) Mode() Mode         { return s.mode }
func (s *Session) FilterText() string { return s.filter }
func (s *Session) ShowHelp() bool     { return s.showHelp }
func (s *Session) Len() int           { return len(s.view) }
func (s *Session) Empty() bool        { return len(s.view) == 0 }

// Cursor returns the cursor index; 0 when the view is empty
func (s *Session) Cursor() int { return s.cursor }

// View returns a copy of the visible ids
func (s *Session) View() []int {
	out := make([]int, len(s.view))
	copy(out, s.view)
	return out
}

// IDAt returns the id at view index i
func (s *Session) IDAt(i int) (int, bool) {
	if i < 0 || i >= len(s.view) {
		return 0, false
	}
	return s.view[i], true
}

// Select returns the id under the cursor
func (s *Session) Select() (int, bool) {
	return s.IDAt(s.cursor)
}

// Selected returns the record under the cursor
func (s *Session) Selected() (domain.Pokemon, bool) {
	id, ok := s.Select()
	if !ok {
		return domain.Pokemon{}, false
	}
	return s.records.Get(id)
}

// === Transitions ===

// SetFilterText recomputes the view for text. Empty text shows everything.
func (s *Session) SetFilterText(text string) {
	s.filter = text
	s.recompute()
}

// MoveCursor moves by delta, clamping to the ends of the view
func (s *Session) MoveCursor(delta int) {
	last := len(s.view) - 1
	switch {
	case delta > last-s.cursor:
		s.setCursor(last)
	case delta < -s.cursor:
		s.setCursor(0)
	default:
		s.setCursor(s.cursor + delta)
	}
}

// Home moves to the first record
func (s *Session) Home() { s.setCursor(0) }

// End moves to the last record
func (s *Session) End() { s.setCursor(len(s.view) - 1) }

// ActivateSearch enters search mode with empty text
func (s *Session) ActivateSearch() {
	s.mode = Searching
	s.showHelp = false
	s.SetFilterText("")
}

// ConfirmSearch leaves search mode keeping the filter
func (s *Session) ConfirmSearch() {
	s.mode = Browsing
}

// CancelSearch leaves search mode and clears the filter, keeping the
// selected record under the cursor
func (s *Session) CancelSearch() {
	s.mode = Browsing
	id, ok := s.Select()
	s.SetFilterText("")
	if ok {
		s.focus(id)
	}
}

func (s *Session) ToggleHelp() {
	s.showHelp = !s.showHelp
}

// TriggerRefresh returns the ids a refresh should cover: the selected record
// first, then up to RefreshWindow records on either side of the cursor.
func (s *Session) TriggerRefresh() Effect {
	id, ok := s.Select()
	if !ok {
		return Effect{Kind: EffectRefresh}
	}

	ids := []int{id}
	for d := 1; d <= s.opts.RefreshWindow; d++ {
		if before, ok := s.IDAt(s.cursor - d); ok {
			ids = append(ids, before)
		}
		if after, ok := s.IDAt(s.cursor + d); ok {
			ids = append(ids, after)
		}
	}
	return Effect{Kind: EffectRefresh, SelectedID: id, RefreshIDs: ids}
}

// Reload recomputes the view after the store changed. The cursor stays on
// the same record when it is still visible.
func (s *Session) Reload() {
	id, ok := s.Select()
	s.recompute()
	if ok {
		s.focus(id)
	}
}

// Focus moves the cursor to id if it is visible
func (s *Session) Focus(id int) bool {
	return s.focus(id)
}

// Apply runs one UI command. It is the single transition function the UI
// uses; the returned Effect says what the caller must do next.
func (s *Session) Apply(cmd Command) Effect {
	switch cmd.Kind {
	case CmdNavigate:
		s.MoveCursor(cmd.Delta)
	case CmdHome:
		s.Home()
	case CmdEnd:
		s.End()
	case CmdSelect:
		if id, ok := s.Select(); ok {
			return Effect{Kind: EffectSelected, SelectedID: id}
		}
	case CmdActivateSearch:
		s.ActivateSearch()
	case CmdTypeSearch:
		if s.mode == Searching {
			s.SetFilterText(cmd.Text)
		}
	case CmdConfirmSearch:
		s.ConfirmSearch()
	case CmdCancelSearch:
		s.CancelSearch()
	case CmdTriggerRefresh:
		return s.TriggerRefresh()
	case CmdToggleHelp:
		s.ToggleHelp()
	case CmdQuit:
		return Effect{Kind: EffectQuit}
	}
	return Effect{}
}

// === Helpers ===

func (s *Session) recompute() {
	all := s.records.All()
	view := make([]int, 0, len(all))
	for _, p := range all {
		if s.filter == "" || s.opts.Matcher.Match(p, s.filter) {
			view = append(view, p.ID)
		}
	}
	s.view = view
	s.setCursor(s.cursor)
}

func (s *Session) setCursor(i int) {
	if len(s.view) == 0 {
		s.cursor = 0
		return
	}
	s.cursor = max(0, min(i, len(s.view)-1))
}

func (s *Session) focus(id int) bool {
	for i, v := range s.view {
		if v == id {
			s.cursor = i
			return true
		}
	}
	return false
}
