package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/mmcdole/pokedex/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketFetches = []byte("fetches")
)

// Ledger implements domain.FetchLedger using BoltDB.
// Keys are "{stage}:{id}" with the id zero-padded so cursor order is dex order.
type Ledger struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory mirror of the bucket (memory-only mode keeps everything here)
	cache map[string][]byte

	now func() time.Time
}

// NewLedger opens or creates the ledger at path. An empty path gives a
// memory-only ledger.
func NewLedger(path string) (*Ledger, error) {
	if path == "" {
		// Memory-only mode (no persistence)
		return &Ledger{cache: make(map[string][]byte), now: time.Now}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, domain.NewError(domain.ErrIO, "open ledger", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, domain.NewError(domain.ErrIO, "open ledger", fmt.Errorf("failed to open bolt db: %w", err))
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketFetches)
		return err
	})
	if err != nil {
		db.Close()
		return nil, domain.NewError(domain.ErrIO, "open ledger", err)
	}

	return &Ledger{db: db, cache: make(map[string][]byte), now: time.Now}, nil
}

func (l *Ledger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

func ledgerKey(id int, stage domain.Stage) string {
	return fmt.Sprintf("%s:%06d", stage, id)
}

// === Generic helpers ===

func (l *Ledger) get(key string) (domain.LedgerEntry, bool) {
	var entry domain.LedgerEntry

	// Check memory cache first
	l.mu.RLock()
	if data, ok := l.cache[key]; ok {
		l.mu.RUnlock()
		return entry, json.Unmarshal(data, &entry) == nil
	}
	l.mu.RUnlock()

	if l.db == nil {
		return entry, false
	}

	var data []byte
	l.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketFetches).Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if data == nil {
		return entry, false
	}

	// Promote to memory cache
	l.mu.Lock()
	l.cache[key] = data
	l.mu.Unlock()

	return entry, json.Unmarshal(data, &entry) == nil
}

func (l *Ledger) set(key string, entry domain.LedgerEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.cache[key] = data
	l.mu.Unlock()

	if l.db == nil {
		return nil // Memory-only mode
	}

	err = l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFetches).Put([]byte(key), data)
	})
	if err != nil {
		return domain.NewError(domain.ErrIO, "write ledger "+key, err)
	}
	return nil
}

// === Entries ===

// RecordSuccess marks the latest fetch of id/stage as successful
func (l *Ledger) RecordSuccess(id int, stage domain.Stage) error {
	key := ledgerKey(id, stage)
	entry, _ := l.get(key)
	entry.ID = id
	entry.Stage = stage
	entry.FetchedAt = l.now()
	entry.LastError = ""
	return l.set(key, entry)
}

// RecordFailure marks the latest fetch of id/stage as failed with cause
func (l *Ledger) RecordFailure(id int, stage domain.Stage, cause error) error {
	key := ledgerKey(id, stage)
	entry, _ := l.get(key)
	entry.ID = id
	entry.Stage = stage
	entry.FailedAt = l.now()
	entry.LastError = "unknown error"
	if cause != nil {
		entry.LastError = cause.Error()
	}
	return l.set(key, entry)
}

// Entry returns the ledger entry for id/stage
func (l *Ledger) Entry(id int, stage domain.Stage) (domain.LedgerEntry, bool) {
	return l.get(ledgerKey(id, stage))
}

// Failures returns every entry whose most recent attempt failed, ordered by
// id then stage.
func (l *Ledger) Failures() ([]domain.LedgerEntry, error) {
	entries, err := l.entries()
	if err != nil {
		return nil, err
	}

	var failing []domain.LedgerEntry
	for _, e := range entries {
		if e.Failing() {
			failing = append(failing, e)
		}
	}
	sort.SliceStable(failing, func(i, j int) bool {
		if failing[i].ID != failing[j].ID {
			return failing[i].ID < failing[j].ID
		}
		return failing[i].Stage < failing[j].Stage
	})
	return failing, nil
}

func (l *Ledger) entries() ([]domain.LedgerEntry, error) {
	raw := make(map[string][]byte)

	if l.db != nil {
		err := l.db.View(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketFetches).ForEach(func(k, v []byte) error {
				data := make([]byte, len(v))
				copy(data, v)
				raw[string(k)] = data
				return nil
			})
		})
		if err != nil {
			return nil, domain.NewError(domain.ErrIO, "read ledger", err)
		}
	} else {
		l.mu.RLock()
		for k, v := range l.cache {
			raw[k] = v
		}
		l.mu.RUnlock()
	}

	entries := make([]domain.LedgerEntry, 0, len(raw))
	for k, data := range raw {
		var e domain.LedgerEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, domain.NewError(domain.ErrParse, "decode ledger "+k, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

