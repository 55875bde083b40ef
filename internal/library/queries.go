package library

import "github.com/mmcdole/pokedex/internal/domain"

// maxStatScale caps the stat bar scale; no base stat exceeds 255
const maxStatScale = 255

// Queries provides synchronous, cache-only reads.
// Safe to call from View().
type Queries struct {
	records domain.RecordReader
	images  domain.ImageReader
}

// NewQueries creates a new Queries instance.
func NewQueries(records domain.RecordReader, images domain.ImageReader) *Queries {
	return &Queries{records: records, images: images}
}

func (q *Queries) Records() []domain.Pokemon {
	return q.records.All()
}

func (q *Queries) Record(id int) (domain.Pokemon, bool) {
	return q.records.Get(id)
}

func (q *Queries) Count() int {
	return q.records.Len()
}

func (q *Queries) HasImage(id int) bool {
	return q.images.Has(id)
}

// MissingImages returns ids of cached records that have no image yet
func (q *Queries) MissingImages() []int {
	var ids []int
	for _, p := range q.records.All() {
		if !q.images.Has(p.ID) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// MaxStat returns the highest base stat across all records, used to scale
// stat bars. Clamped to [1, 255].
func (q *Queries) MaxStat() int {
	best := 1
	for _, p := range q.records.All() {
		for _, s := range p.Stats {
			if s.Base > best {
				best = s.Base
			}
		}
	}
	return min(best, maxStatScale)
}
