package domain

import "time"

// Stage identifies which half of an item a fetch concerned.
type Stage string

const (
	StageRecord Stage = "record"
	StageImage  Stage = "image"
)

// SyncProgress reports progress during a seed or refresh run.
type SyncProgress struct {
	ID     int   // Identifier just processed
	Loaded int   // Items processed so far
	Total  int   // Items in this run
	Done   bool  // Final update
	Err    error // Per-item failure, if any
}

// ProgressFunc receives progress updates. Must not block.
type ProgressFunc func(SyncProgress)

// ItemFailure describes one item that could not be fetched or stored.
type ItemFailure struct {
	ID    int
	Stage Stage
	Err   error
}

// SyncResult summarizes what happened during a seed or refresh run.
type SyncResult struct {
	Total          int // Identifiers considered
	RecordsFetched int // Records pulled from the network
	ImagesFetched  int // Images pulled from the network
	Cached         int // Identifiers that needed no network at all
	Failures       []ItemFailure
}

// Failed reports whether any item failed
func (r SyncResult) Failed() bool {
	return len(r.Failures) > 0
}

// LedgerEntry is the persisted fetch history for one identifier and stage.
type LedgerEntry struct {
	ID        int       `json:"id"`
	Stage     Stage     `json:"stage"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	FailedAt  time.Time `json:"failed_at,omitempty"`
}

// Failing reports whether the most recent attempt failed
func (e LedgerEntry) Failing() bool {
	return e.LastError != "" && !e.FailedAt.Before(e.FetchedAt)
}
