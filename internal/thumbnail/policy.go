package thumbnail

import (
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Policy stores thumbnails and decides what to evict.
// Implementations need not be safe for concurrent use; Cache serializes access.
type Policy interface {
	Get(id int) (Thumbnail, bool)
	Add(id int, t Thumbnail) (evicted bool)
	Remove(id int)
	Contains(id int) bool
	Len() int
	Purge()
}

// Unbounded keeps every thumbnail for the life of the process.
// Memory grows with the collection (about 7 KiB per 48x48 thumbnail).
func Unbounded() Policy {
	return &unbounded{entries: make(map[int]Thumbnail)}
}

type unbounded struct {
	entries map[int]Thumbnail
}

func (u *unbounded) Get(id int) (Thumbnail, bool) {
	t, ok := u.entries[id]
	return t, ok
}

func (u *unbounded) Add(id int, t Thumbnail) bool {
	u.entries[id] = t
	return false
}

func (u *unbounded) Remove(id int) { delete(u.entries, id) }

func (u *unbounded) Contains(id int) bool {
	_, ok := u.entries[id]
	return ok
}

func (u *unbounded) Len() int { return len(u.entries) }
func (u *unbounded) Purge()   { u.entries = make(map[int]Thumbnail) }

// NewLRU keeps at most size thumbnails, evicting the least recently used.
// size < 1 falls back to Unbounded.
func NewLRU(size int, onEvict func(id int)) Policy {
	if size < 1 {
		return Unbounded()
	}
	var cb simplelru.EvictCallback[int, Thumbnail]
	if onEvict != nil {
		cb = func(id int, _ Thumbnail) { onEvict(id) }
	}
	l, err := simplelru.NewLRU[int, Thumbnail](size, cb)
	if err != nil {
		return Unbounded() // Only fails for size <= 0
	}
	return &lruPolicy{lru: l}
}

type lruPolicy struct {
	lru *simplelru.LRU[int, Thumbnail]
}

func (p *lruPolicy) Get(id int) (Thumbnail, bool) { return p.lru.Get(id) }
func (p *lruPolicy) Add(id int, t Thumbnail) bool { return p.lru.Add(id, t) }
func (p *lruPolicy) Remove(id int)                { p.lru.Remove(id) }
func (p *lruPolicy) Contains(id int) bool         { return p.lru.Contains(id) }
func (p *lruPolicy) Len() int                     { return p.lru.Len() }
func (p *lruPolicy) Purge()                       { p.lru.Purge() }
