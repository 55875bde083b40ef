package tui

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"reflect"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/pokedex/internal/browse"
	"github.com/mmcdole/pokedex/internal/domain"
	"github.com/mmcdole/pokedex/internal/library"
	"github.com/mmcdole/pokedex/internal/store"
	"github.com/mmcdole/pokedex/internal/thumbnail"
	"github.com/mmcdole/pokedex/internal/tui/components"
)

type fakeFetcher struct {
	records *store.RecordStore

	mu        sync.Mutex
	seeds     []int
	refreshes [][]int
	failed    []int
}

func (f *fakeFetcher) Seed(ctx context.Context, limit int, onProgress domain.ProgressFunc) (domain.SyncResult, error) {
	f.mu.Lock()
	f.seeds = append(f.seeds, limit)
	f.mu.Unlock()

	result := domain.SyncResult{Total: limit}
	for id := 1; id <= limit; id++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !f.records.Has(id) {
			_ = f.records.Put(domain.Pokemon{ID: id, Name: fmt.Sprintf("mon-%d", id)})
			result.RecordsFetched++
		} else {
			result.Cached++
		}
		onProgress(domain.SyncProgress{ID: id, Loaded: id, Total: limit})
	}
	onProgress(domain.SyncProgress{Loaded: limit, Total: limit, Done: true})
	return result, nil
}

func (f *fakeFetcher) Refresh(ctx context.Context, ids []int, onProgress domain.ProgressFunc) (domain.SyncResult, error) {
	f.mu.Lock()
	f.refreshes = append(f.refreshes, ids)
	f.mu.Unlock()

	result := domain.SyncResult{Total: len(ids), RecordsFetched: len(ids)}
	for i, id := range ids {
		onProgress(domain.SyncProgress{ID: id, Loaded: i + 1, Total: len(ids)})
	}
	return result, nil
}

func (f *fakeFetcher) FailedIDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failed
}

func newTestModel(t *testing.T, names ...string) (Model, *fakeFetcher) {
	t.Helper()
	records := store.NewRecordStore("")
	for i, name := range names {
		p := domain.Pokemon{
			ID:          i + 1,
			Name:        name,
			Types:       []string{"grass"},
			Description: "A test record.",
			Stats:       []domain.Stat{{Name: "hp", Base: 45}, {Name: "speed", Base: 90}},
		}
		if err := records.Put(p); err != nil {
			t.Fatalf("Put returned error: %v", err)
		}
	}
	images, err := store.NewImageStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewImageStore returned error: %v", err)
	}

	f := &fakeFetcher{records: records}
	session := browse.NewSession(records, browse.Options{RefreshWindow: 1})
	queries := library.NewQueries(records, images)
	thumbs := thumbnail.NewCache(images, 8, 8, nil, nil)

	m := NewModel(context.Background(), session, queries, f, thumbs, Options{Limit: 3}, nil)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model), f
}

func keyPress(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		updated, _ := m.Update(keyPress(k))
		m = updated.(Model)
	}
	return m
}

// runFetch executes a fetch command and follows its continuations
func runFetch(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	var msgs []tea.Msg
	for i := 0; cmd != nil; i++ {
		if i > 100 {
			t.Fatalf("fetch did not finish")
		}
		msg := cmd()
		msgs = append(msgs, msg)
		cmd = nil
		if p, ok := msg.(FetchProgressMsg); ok {
			cmd, _ = p.NextCmd.(tea.Cmd)
		}
	}
	return msgs
}

var testNames = []string{"bulbasaur", "charmander", "squirtle", "pikachu", "charizard"}

func TestNavigationKeys(t *testing.T) {
	m, _ := newTestModel(t, testNames...)

	m = press(m, "j", "down")
	if got := m.session.Cursor(); got != 2 {
		t.Fatalf("Cursor() = %d, want 2", got)
	}
	m = press(m, "G")
	if got := m.session.Cursor(); got != len(testNames)-1 {
		t.Fatalf("Cursor() after G = %d, want %d", got, len(testNames)-1)
	}
	m = press(m, "j", "j")
	if got := m.session.Cursor(); got != len(testNames)-1 {
		t.Fatalf("cursor should clamp at the end, got %d", got)
	}
	m = press(m, "g", "k")
	if got := m.session.Cursor(); got != 0 {
		t.Fatalf("cursor should clamp at the top, got %d", got)
	}

	m = press(m, "enter")
	if m.Focus != PaneDetail {
		t.Fatalf("enter should focus the detail pane")
	}
	m = press(m, "esc")
	if m.Focus != PaneList {
		t.Fatalf("esc should return focus to the list")
	}
}

func TestSearchKeys(t *testing.T) {
	m, _ := newTestModel(t, testNames...)

	m = press(m, "/")
	if m.session.Mode() != browse.Searching {
		t.Fatalf("expected search mode after /")
	}

	// q and j are query text while searching
	m = press(m, "c", "h", "a", "r")
	if got, want := m.session.View(), []int{2, 5}; !reflect.DeepEqual(got, want) {
		t.Fatalf("View() = %v, want %v", got, want)
	}
	m = press(m, "down")
	if id, _ := m.session.Select(); id != 5 {
		t.Fatalf("arrow keys should move while searching, got id %d", id)
	}

	m = press(m, "enter")
	if m.session.Mode() != browse.Browsing || m.session.FilterText() != "char" {
		t.Fatalf("enter should keep the filter, got mode=%s filter=%q", m.session.Mode(), m.session.FilterText())
	}

	m = press(m, "esc")
	if m.session.FilterText() != "" || m.session.Len() != len(testNames) {
		t.Fatalf("esc should clear the confirmed filter")
	}
	if id, _ := m.session.Select(); id != 5 {
		t.Fatalf("clearing the filter should keep the selection, got id %d", id)
	}

	m = press(m, "/", "q", "esc")
	if m.session.Mode() != browse.Browsing || m.session.FilterText() != "" {
		t.Fatalf("esc should cancel the search")
	}
}

func TestHelpToggle(t *testing.T) {
	m, _ := newTestModel(t, testNames...)

	m = press(m, "?")
	if !m.session.ShowHelp() {
		t.Fatalf("expected help visible")
	}
	if !strings.Contains(m.View(), "Keybindings") {
		t.Fatalf("help modal should list keybindings")
	}
	m = press(m, "j")
	if m.session.Cursor() != 0 {
		t.Fatalf("navigation should be ignored while help is open")
	}
	m = press(m, "esc")
	if m.session.ShowHelp() {
		t.Fatalf("esc should close help")
	}
}

func TestQuitCancelsContext(t *testing.T) {
	m, _ := newTestModel(t, testNames...)

	updated, cmd := m.Update(keyPress("q"))
	if cmd == nil {
		t.Fatalf("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
	if updated.(Model).ctx.Err() == nil {
		t.Fatalf("quit should cancel background work")
	}
}

func TestRefreshKey_IncludesWindowAndFailures(t *testing.T) {
	m, f := newTestModel(t, testNames...)
	f.failed = []int{9}
	m.failedIDs = f.FailedIDs()
	m = press(m, "j") // charmander

	m = press(m, "r")
	if !m.Fetching || m.fetchKind != FetchRefresh {
		t.Fatalf("r should start a background refresh")
	}
	if m.FetchTotal != 4 {
		t.Fatalf("FetchTotal = %d, want 4 (window of 3 plus one failed id)", m.FetchTotal)
	}

	m = press(m, "r")
	if !strings.Contains(m.StatusMsg, "already running") {
		t.Fatalf("second refresh should be rejected, status = %q", m.StatusMsg)
	}
}

func TestFetchLifecycle(t *testing.T) {
	m, f := newTestModel(t, "bulbasaur")

	updated, _ := m.Update(StartFetchMsg{Kind: FetchSeed})
	m = updated.(Model)
	if !m.Fetching || m.FetchTotal != 3 {
		t.Fatalf("expected a running seed of 3, got fetching=%v total=%d", m.Fetching, m.FetchTotal)
	}

	msgs := runFetch(t, SeedCmd(context.Background(), f, 3))
	done, ok := msgs[len(msgs)-1].(FetchDoneMsg)
	if !ok {
		t.Fatalf("last message = %T, want FetchDoneMsg", msgs[len(msgs)-1])
	}
	if done.Err != nil || done.Result.RecordsFetched != 2 || done.Result.Cached != 1 {
		t.Fatalf("unexpected result: %+v err=%v", done.Result, done.Err)
	}

	for _, msg := range msgs {
		updated, _ = m.Update(msg)
		m = updated.(Model)
	}
	if m.Fetching {
		t.Fatalf("fetch should be finished")
	}
	if m.session.Len() != 3 {
		t.Fatalf("session should show the fetched records, got %d", m.session.Len())
	}
	if !strings.Contains(m.StatusMsg, "2 records") {
		t.Fatalf("status = %q, want a summary of fetched records", m.StatusMsg)
	}
}

func TestFetchDone_Cancelled(t *testing.T) {
	m, _ := newTestModel(t, testNames...)
	updated, _ := m.Update(StartFetchMsg{Kind: FetchSeed})
	m = updated.(Model)

	updated, _ = m.Update(FetchDoneMsg{Kind: FetchSeed, Err: context.Canceled})
	m = updated.(Model)
	if m.Fetching || m.StatusIsErr || !strings.Contains(m.StatusMsg, "cancelled") {
		t.Fatalf("cancelled run: fetching=%v status=%q isErr=%v", m.Fetching, m.StatusMsg, m.StatusIsErr)
	}
}

func TestRefreshCmd_StreamsProgress(t *testing.T) {
	f := &fakeFetcher{records: store.NewRecordStore("")}
	msgs := runFetch(t, RefreshCmd(context.Background(), f, []int{4, 5}))

	var progress int
	for _, msg := range msgs {
		if _, ok := msg.(FetchProgressMsg); ok {
			progress++
		}
	}
	if progress > 2 {
		t.Fatalf("got %d progress messages, want at most 2", progress)
	}
	if _, ok := msgs[len(msgs)-1].(FetchDoneMsg); !ok {
		t.Fatalf("expected FetchDoneMsg last")
	}
	if got := f.refreshes; len(got) != 1 || !reflect.DeepEqual(got[0], []int{4, 5}) {
		t.Fatalf("refreshes = %v", got)
	}
}

func TestClearStatus_IgnoresStaleTimers(t *testing.T) {
	m, _ := newTestModel(t, testNames...)

	updated, _ := m.Update(StatusMsg{Message: "first"})
	m = updated.(Model)
	staleID := m.statusID
	updated, _ = m.Update(StatusMsg{Message: "second"})
	m = updated.(Model)

	updated, _ = m.Update(ClearStatusMsg{ID: staleID})
	m = updated.(Model)
	if m.StatusMsg != "second" {
		t.Fatalf("stale clear removed the newer status")
	}
	updated, _ = m.Update(ClearStatusMsg{ID: m.statusID})
	if updated.(Model).StatusMsg != "" {
		t.Fatalf("expected status cleared")
	}
}

func TestView_RendersListAndDetail(t *testing.T) {
	m, _ := newTestModel(t, testNames...)
	m = press(m, "j", "j", "j") // pikachu

	view := m.View()
	for _, want := range []string{"#001", "Bulbasaur", "Pikachu", "Stats", "HP", "Description", "A test record.", "help"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}

func TestView_EmptyStore(t *testing.T) {
	m, _ := newTestModel(t)
	view := m.View()
	if !strings.Contains(view, "No records cached") {
		t.Fatalf("empty view should explain how to populate the cache")
	}

	m = press(m, "j", "G", "r", "enter")
	if m.session.Cursor() != 0 || m.Fetching {
		t.Fatalf("keys on an empty store should be no-ops")
	}
}

func TestFetchSummary(t *testing.T) {
	tests := []struct {
		kind   FetchKind
		result domain.SyncResult
		want   string
	}{
		{FetchSeed, domain.SyncResult{Total: 151, Cached: 151}, "Cache up to date (151 records)"},
		{FetchSeed, domain.SyncResult{Total: 5, RecordsFetched: 5, ImagesFetched: 4,
			Failures: []domain.ItemFailure{{ID: 3, Stage: domain.StageImage}}}, "Fetch: 5 records, 4 sprites (1 failed)"},
		{FetchRefresh, domain.SyncResult{Total: 1, RecordsFetched: 1, ImagesFetched: 1}, "Refresh: 1 record, 1 sprite"},
	}
	for _, tt := range tests {
		if got := fetchSummary(tt.kind, tt.result); got != tt.want {
			t.Errorf("fetchSummary() = %q, want %q", got, tt.want)
		}
	}
}

func TestMergeIDs(t *testing.T) {
	got := mergeIDs([]int{3, 2, 4}, []int{4, 9, 3, 10})
	if want := []int{3, 2, 4, 9, 10}; !reflect.DeepEqual(got, want) {
		t.Fatalf("mergeIDs() = %v, want %v", got, want)
	}
}

func solidPNG(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

// newSpriteModel returns a model over n records that all have images
func newSpriteModel(t *testing.T, n int, opts Options) (Model, *store.ImageStore, *thumbnail.Cache) {
	t.Helper()
	records := store.NewRecordStore("")
	images, err := store.NewImageStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewImageStore returned error: %v", err)
	}
	for id := 1; id <= n; id++ {
		if err := records.Put(domain.Pokemon{ID: id, Name: fmt.Sprintf("mon-%d", id)}); err != nil {
			t.Fatal(err)
		}
		if err := images.Write(id, solidPNG(t, color.RGBA{R: 200, A: 255})); err != nil {
			t.Fatal(err)
		}
	}
	session := browse.NewSession(records, browse.Options{})
	thumbs := thumbnail.NewCache(images, 4, 4, nil, nil)
	m := NewModel(context.Background(), session, library.NewQueries(records, images), nil, thumbs, opts, nil)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model), images, thumbs
}

func TestLoadSprite_RendersOncePerThumbnail(t *testing.T) {
	m, images, thumbs := newSpriteModel(t, 2, Options{})
	if !m.hasSprite || m.spriteView == "" {
		t.Fatalf("expected sprite for the first record")
	}
	first := m.spriteView
	if first != components.RenderSprite(m.sprite) {
		t.Fatalf("cached sprite does not match the thumbnail")
	}

	m.spriteView = "cached"
	m.loadSprite()
	if m.spriteView != "cached" {
		t.Fatalf("unchanged thumbnail was rendered again")
	}

	if err := images.Write(1, solidPNG(t, color.RGBA{B: 200, A: 255})); err != nil {
		t.Fatal(err)
	}
	thumbs.Invalidate(1)
	m.loadSprite()
	if m.spriteView == "cached" || m.spriteView == first {
		t.Fatalf("expected sprite rebuilt after the image changed")
	}

	m = press(m, "j")
	if !m.hasSprite || m.spriteView != components.RenderSprite(m.sprite) {
		t.Fatalf("expected sprite for the second record")
	}
}

func TestLoadSprite_ClearsWhenImageMissing(t *testing.T) {
	m, _ := newTestModel(t, testNames...)
	if m.hasSprite || m.spriteView != "" {
		t.Fatalf("expected no sprite without images")
	}
	if !strings.Contains(m.View(), "(no sprite)") {
		t.Fatalf("expected placeholder in view")
	}
}

func TestPreloadWindow(t *testing.T) {
	ids := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	cases := []struct {
		center, n int
		want      []int
	}{
		{5, 0, ids},
		{5, 20, ids},
		{5, 4, []int{3, 4, 5, 6}},
		{1, 3, []int{1, 2, 3}},
		{10, 3, []int{8, 9, 10}},
		{0, 2, []int{1, 2}},
	}
	for _, c := range cases {
		if got := preloadWindow(ids, c.center, c.n); !reflect.DeepEqual(got, c.want) {
			t.Errorf("preloadWindow(center=%d, n=%d) = %v, want %v", c.center, c.n, got, c.want)
		}
	}
}

func TestPreload_BoundedByCapacity(t *testing.T) {
	m, _, thumbs := newSpriteModel(t, 10, Options{Preload: true, PreloadMax: 3})
	m = press(m, "G") // last record
	thumbs.Purge()

	cmd := m.preloadCmd()
	if cmd == nil {
		t.Fatalf("expected preload command")
	}
	done, ok := cmd().(PreloadDoneMsg)
	if !ok || done.Err != nil {
		t.Fatalf("unexpected preload result: %+v", done)
	}
	if done.Built != 3 || thumbs.Len() != 3 {
		t.Fatalf("built %d, resident %d; want 3", done.Built, thumbs.Len())
	}
	for _, id := range []int{8, 9, 10} {
		if _, ok := thumbs.Get(id); !ok {
			t.Fatalf("expected #%d preloaded", id)
		}
	}
}
