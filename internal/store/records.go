package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/mmcdole/pokedex/internal/domain"
)

// RecordStore implements domain.RecordStore on top of a single JSON file.
// The whole collection lives in memory; every mutation rewrites the file
// atomically (temp file + rename).
type RecordStore struct {
	path string

	mu      sync.RWMutex // Protects records and index
	records []domain.Pokemon
	index   map[int]int // id -> position in records

	writeMu sync.Mutex // Serializes disk writes
}

// NewRecordStore creates an empty store backed by path. Call Load to read it.
// An empty path gives a memory-only store.
func NewRecordStore(path string) *RecordStore {
	return &RecordStore{
		path:  path,
		index: make(map[int]int),
	}
}

// Load reads the collection from disk, replacing the in-memory copy.
// A missing file is a cold start, not an error.
func (s *RecordStore) Load() ([]domain.Pokemon, error) {
	if s.path == "" {
		return s.All(), nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewError(domain.ErrIO, "load records", err)
	}

	var records []domain.Pokemon
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, domain.NewError(domain.ErrParse, "load records", err)
	}

	s.mu.Lock()
	s.records = nil
	s.index = make(map[int]int, len(records))
	for _, p := range records {
		s.putLocked(p)
	}
	out := s.snapshotLocked()
	s.mu.Unlock()

	return out, nil
}

// Save replaces the collection with records and persists it
func (s *RecordStore) Save(records []domain.Pokemon) error {
	s.mu.Lock()
	s.records = nil
	s.index = make(map[int]int, len(records))
	for _, p := range records {
		s.putLocked(p)
	}
	s.mu.Unlock()

	return s.persist()
}

// Put merges one record (replacing by ID, else appending) and persists
func (s *RecordStore) Put(p domain.Pokemon) error {
	if p.ID <= 0 {
		return fmt.Errorf("put record: invalid id %d", p.ID)
	}
	s.mu.Lock()
	s.putLocked(p)
	s.mu.Unlock()

	return s.persist()
}

func (s *RecordStore) putLocked(p domain.Pokemon) {
	if i, ok := s.index[p.ID]; ok {
		s.records[i] = p
		return
	}
	s.index[p.ID] = len(s.records)
	s.records = append(s.records, p)
}

// Get returns the record for id
func (s *RecordStore) Get(id int) (domain.Pokemon, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return domain.Pokemon{}, false
	}
	return s.records[i], true
}

// Has reports whether id is known
func (s *RecordStore) Has(id int) bool {
	s.mu.RLock()
	_, ok := s.index[id]
	s.mu.RUnlock()
	return ok
}

// All returns every record in insertion/fetch order
func (s *RecordStore) All() []domain.Pokemon {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Len returns the number of records
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *RecordStore) snapshotLocked() []domain.Pokemon {
	out := make([]domain.Pokemon, len(s.records))
	copy(out, s.records)
	return out
}

// persist writes the current snapshot to disk. Output is byte-identical for
// identical collections.
func (s *RecordStore) persist() error {
	if s.path == "" {
		return nil // Memory-only mode
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := json.MarshalIndent(s.All(), "", "  ")
	if err != nil {
		return domain.NewError(domain.ErrParse, "encode records", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return domain.NewError(domain.ErrIO, "save records", err)
	}
	return nil
}

// writeFileAtomic writes data next to path and renames it into place, so
// readers see either the old or the new file, never a torn one.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
