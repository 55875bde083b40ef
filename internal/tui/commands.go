package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/pokedex/internal/domain"
	"github.com/mmcdole/pokedex/internal/thumbnail"
)

// progressBuffer bounds queued progress updates; extra updates are dropped
const progressBuffer = 64

// Fetcher runs the background seed and refresh jobs.
// Implemented by library.Service.
type Fetcher interface {
	Seed(ctx context.Context, limit int, onProgress domain.ProgressFunc) (domain.SyncResult, error)
	Refresh(ctx context.Context, ids []int, onProgress domain.ProgressFunc) (domain.SyncResult, error)
	FailedIDs() []int
}

// fetchJob connects a running background fetch to the update loop
type fetchJob struct {
	kind     FetchKind
	progress <-chan domain.SyncProgress
	done     <-chan FetchDoneMsg
}

type runFunc func(ctx context.Context, onProgress domain.ProgressFunc) (domain.SyncResult, error)

// Command factories for async operations

// SeedCmd fills the cache for ids 1..limit in the background
func SeedCmd(ctx context.Context, f Fetcher, limit int) tea.Cmd {
	return startFetchCmd(ctx, FetchSeed, func(ctx context.Context, onProgress domain.ProgressFunc) (domain.SyncResult, error) {
		return f.Seed(ctx, limit, onProgress)
	})
}

// RefreshCmd force re-fetches ids in the background
func RefreshCmd(ctx context.Context, f Fetcher, ids []int) tea.Cmd {
	return startFetchCmd(ctx, FetchRefresh, func(ctx context.Context, onProgress domain.ProgressFunc) (domain.SyncResult, error) {
		return f.Refresh(ctx, ids, onProgress)
	})
}

func startFetchCmd(ctx context.Context, kind FetchKind, run runFunc) tea.Cmd {
	return func() tea.Msg {
		progressCh := make(chan domain.SyncProgress, progressBuffer)
		doneCh := make(chan FetchDoneMsg, 1)
		observer := NewChannelObserver(progressCh)

		// Start the background work
		go func() {
			result, err := run(ctx, observer.Func())
			doneCh <- FetchDoneMsg{Kind: kind, Result: result, Err: err}
		}()

		// Read the first message and return it with continuation context
		return readFetchProgress(fetchJob{kind: kind, progress: progressCh, done: doneCh})
	}
}

// readFetchProgress blocks for the next progress update or the final result.
// Progress messages carry the command that reads the one after.
func readFetchProgress(job fetchJob) tea.Msg {
	select {
	case progress := <-job.progress:
		return FetchProgressMsg{
			Kind:     job.kind,
			Progress: progress,
			NextCmd:  listenToFetchCmd(job),
		}
	case done := <-job.done:
		return done
	}
}

func listenToFetchCmd(job fetchJob) tea.Cmd {
	return func() tea.Msg {
		return readFetchProgress(job)
	}
}

// PreloadCmd builds thumbnails for ids off the update loop
func PreloadCmd(ctx context.Context, cache *thumbnail.Cache, ids []int, concurrency int) tea.Cmd {
	return func() tea.Msg {
		built, err := cache.Preload(ctx, ids, concurrency)
		return PreloadDoneMsg{Built: built, Err: err}
	}
}

// StartFetchCmd asks the model to start a background run on the next update
func StartFetchCmd(kind FetchKind, ids []int) tea.Cmd {
	return func() tea.Msg {
		return StartFetchMsg{Kind: kind, IDs: ids}
	}
}

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(id int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{ID: id}
	})
}
