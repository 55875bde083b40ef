package domain

import "context"

// Source fetches records and images from the remote API.
// Implemented by adapter/source/pokeapi.
type Source interface {
	// FetchPokemon returns the full record for a dex number
	FetchPokemon(ctx context.Context, id int) (Pokemon, error)

	// FetchImage returns the raw bytes behind an image URL
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

// RecordReader is the read side of the record store.
// All methods are memory-only and safe to call from View().
type RecordReader interface {
	Get(id int) (Pokemon, bool)
	All() []Pokemon
	Len() int
}

// RecordStore persists the full record collection as one blob.
type RecordStore interface {
	RecordReader
	Has(id int) bool
	Put(p Pokemon) error
	Save(records []Pokemon) error
}

// ImageReader is the read side of the image store (no decoding, no caching).
type ImageReader interface {
	Has(id int) bool
	Read(id int) ([]byte, bool, error)
}

// ImageStore keeps one raw image per identifier on disk.
type ImageStore interface {
	ImageReader
	Write(id int, data []byte) error
}

// FetchLedger remembers per-item fetch outcomes across runs.
type FetchLedger interface {
	RecordSuccess(id int, stage Stage) error
	RecordFailure(id int, stage Stage, cause error) error
	Entry(id int, stage Stage) (LedgerEntry, bool)
	Failures() ([]LedgerEntry, error)
}
