package tui

import (
	"github.com/mmcdole/pokedex/internal/domain"
)

// Message types for the TUI

// FetchKind says which background run a message belongs to
type FetchKind int

const (
	FetchSeed FetchKind = iota
	FetchRefresh
)

func (k FetchKind) String() string {
	if k == FetchRefresh {
		return "refresh"
	}
	return "fetch"
}

// StartFetchMsg asks the model to start a background run.
// IDs is only used for FetchRefresh.
type StartFetchMsg struct {
	Kind FetchKind
	IDs  []int
}

// FetchProgressMsg is sent for each item a background run finishes
type FetchProgressMsg struct {
	Kind     FetchKind
	Progress domain.SyncProgress
	NextCmd  interface{} // Continuation command (tea.Cmd) for streaming
}

// FetchDoneMsg signals that a background run returned
type FetchDoneMsg struct {
	Kind   FetchKind
	Result domain.SyncResult
	Err    error // Only cancellation; per-item failures are in Result
}

// PreloadDoneMsg signals that thumbnails were built ahead of time
type PreloadDoneMsg struct {
	Built int
	Err   error
}

// TickMsg is a general tick message for animations
type TickMsg struct{}

// ClearStatusMsg clears the status bar message if it is still the one with ID
type ClearStatusMsg struct {
	ID int
}

// StatusMsg sets a temporary status message
type StatusMsg struct {
	Message string
	IsError bool
}
