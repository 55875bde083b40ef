package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/mmcdole/pokedex/internal/domain"
	"golang.org/x/sync/errgroup"
)

const defaultRefreshConcurrency = 4

// Options tunes the service; zero values get defaults.
type Options struct {
	// SpriteURL builds the fallback image URL for records without one
	SpriteURL func(id int) string

	// RefreshConcurrency bounds parallel fetches during Refresh
	RefreshConcurrency int
}

// Service orchestrates source + store operations.
type Service struct {
	source  domain.Source
	records domain.RecordStore
	images  domain.ImageStore
	ledger  domain.FetchLedger // May be nil
	opts    Options
	logger  *slog.Logger

	hookMu         sync.RWMutex
	onImageUpdated func(id int)
}

// NewService creates a new library service.
func NewService(
	source domain.Source,
	records domain.RecordStore,
	images domain.ImageStore,
	ledger domain.FetchLedger,
	opts Options,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.RefreshConcurrency < 1 {
		opts.RefreshConcurrency = defaultRefreshConcurrency
	}
	return &Service{
		source:  source,
		records: records,
		images:  images,
		ledger:  ledger,
		opts:    opts,
		logger:  logger,
	}
}

// SetImageUpdatedHook registers fn to run after every successful image write.
// The thumbnail cache uses it to drop stale entries.
func (s *Service) SetImageUpdatedHook(fn func(id int)) {
	s.hookMu.Lock()
	s.onImageUpdated = fn
	s.hookMu.Unlock()
}

// Seed makes sure records and images exist for ids 1..limit, in order.
// Cached items cost no network calls. Per-item failures are collected in the
// result; only cancellation stops the run early.
func (s *Service) Seed(ctx context.Context, limit int, onProgress domain.ProgressFunc) (domain.SyncResult, error) {
	result := domain.SyncResult{Total: max(limit, 0)}
	s.logger.Info("seed started", "limit", limit, "cached", s.records.Len())

	for id := 1; id <= limit; id++ {
		if err := ctx.Err(); err != nil {
			s.logger.Info("seed cancelled", "at", id)
			return result, err
		}

		itemErr := s.seedOne(ctx, id, &result)
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if onProgress != nil {
			onProgress(domain.SyncProgress{ID: id, Loaded: id, Total: limit, Err: itemErr})
		}
	}

	if onProgress != nil {
		onProgress(domain.SyncProgress{Loaded: result.Total, Total: result.Total, Done: true})
	}
	s.logger.Info("seed finished",
		"records_fetched", result.RecordsFetched,
		"images_fetched", result.ImagesFetched,
		"cached", result.Cached,
		"failures", len(result.Failures))
	return result, nil
}

func (s *Service) seedOne(ctx context.Context, id int, result *domain.SyncResult) error {
	var firstErr error
	cached := true

	p, ok := s.records.Get(id)
	switch {
	case !ok:
		cached = false
		fetched, err := s.fetchRecord(ctx, id)
		if err != nil {
			s.fail(ctx, result, id, domain.StageRecord, err)
			return err
		}
		p = fetched
		result.RecordsFetched++
	case s.needsRepair(p):
		// Keep the partial record if the re-fetch fails
		cached = false
		fetched, err := s.fetchRecord(ctx, id)
		if err != nil {
			s.fail(ctx, result, id, domain.StageRecord, err)
			firstErr = err
		} else {
			p = fetched
			result.RecordsFetched++
		}
	}

	if !s.images.Has(id) {
		cached = false
		if err := s.fetchImage(ctx, p); err != nil {
			s.fail(ctx, result, id, domain.StageImage, err)
			firstErr = err
		} else {
			result.ImagesFetched++
		}
	}

	if cached {
		result.Cached++
	}
	return firstErr
}

// Refresh force re-fetches record and image for each id, in parallel.
// Duplicates and ids <= 0 are ignored.
func (s *Service) Refresh(ctx context.Context, ids []int, onProgress domain.ProgressFunc) (domain.SyncResult, error) {
	ids = normalizeIDs(ids)
	result := domain.SyncResult{Total: len(ids)}
	if len(ids) == 0 {
		if onProgress != nil {
			onProgress(domain.SyncProgress{Done: true})
		}
		return result, nil
	}
	s.logger.Info("refresh started", "ids", ids)

	var (
		mu     sync.Mutex
		loaded int
	)
	g := new(errgroup.Group)
	g.SetLimit(s.opts.RefreshConcurrency)

	for _, id := range ids {
		id := id // per-iteration copy (go 1.21 loop semantics)
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			var item domain.SyncResult
			itemErr := s.refreshOne(ctx, id, &item)

			mu.Lock()
			result.RecordsFetched += item.RecordsFetched
			result.ImagesFetched += item.ImagesFetched
			result.Failures = append(result.Failures, item.Failures...)
			loaded++
			progress := domain.SyncProgress{ID: id, Loaded: loaded, Total: len(ids), Err: itemErr}
			mu.Unlock()

			if onProgress != nil {
				onProgress(progress)
			}
			return nil
		})
	}
	_ = g.Wait() // Workers never return errors

	sort.SliceStable(result.Failures, func(i, j int) bool {
		return result.Failures[i].ID < result.Failures[j].ID
	})

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if onProgress != nil {
		onProgress(domain.SyncProgress{Loaded: len(ids), Total: len(ids), Done: true})
	}
	s.logger.Info("refresh finished",
		"records_fetched", result.RecordsFetched,
		"images_fetched", result.ImagesFetched,
		"failures", len(result.Failures))
	return result, nil
}

// refreshOne re-fetches id. If the record fetch fails but an older copy is
// cached, the image is still refreshed from it.
func (s *Service) refreshOne(ctx context.Context, id int, result *domain.SyncResult) error {
	var firstErr error

	p, err := s.fetchRecord(ctx, id)
	if err != nil {
		s.fail(ctx, result, id, domain.StageRecord, err)
		firstErr = err
		cachedRecord, ok := s.records.Get(id)
		if !ok {
			return firstErr
		}
		p = cachedRecord
	} else {
		result.RecordsFetched++
	}

	if err := s.fetchImage(ctx, p); err != nil {
		s.fail(ctx, result, id, domain.StageImage, err)
		if firstErr == nil {
			firstErr = err
		}
	} else {
		result.ImagesFetched++
	}
	return firstErr
}

// FailedIDs returns ids with an outstanding fetch failure, ascending
func (s *Service) FailedIDs() []int {
	if s.ledger == nil {
		return nil
	}
	entries, err := s.ledger.Failures()
	if err != nil {
		s.logger.Error("failed to read fetch ledger", "error", err)
		return nil
	}
	ids := make([]int, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return normalizeIDs(ids)
}

// --- Private helpers ---

func (s *Service) fetchRecord(ctx context.Context, id int) (domain.Pokemon, error) {
	p, err := s.source.FetchPokemon(ctx, id)
	if err != nil {
		return domain.Pokemon{}, err
	}
	if p.ID != id {
		return domain.Pokemon{}, domain.NewError(domain.ErrParse, fmt.Sprintf("fetch pokemon %d", id),
			fmt.Errorf("source returned id %d", p.ID))
	}
	if err := s.records.Put(p); err != nil {
		return domain.Pokemon{}, err
	}
	s.recordSuccess(id, domain.StageRecord)
	s.logger.Debug("fetched record", "id", id, "name", p.Name)
	return p, nil
}

func (s *Service) fetchImage(ctx context.Context, p domain.Pokemon) error {
	url := s.imageURL(p)
	if url == "" {
		return domain.NewError(domain.ErrNotFound, fmt.Sprintf("fetch image %d", p.ID), errors.New("no image url"))
	}

	data, err := s.source.FetchImage(ctx, url)
	if err != nil {
		return err
	}
	if err := s.images.Write(p.ID, data); err != nil {
		return err
	}
	s.recordSuccess(p.ID, domain.StageImage)
	s.logger.Debug("fetched image", "id", p.ID, "bytes", len(data))

	s.hookMu.RLock()
	hook := s.onImageUpdated
	s.hookMu.RUnlock()
	if hook != nil {
		hook(p.ID)
	}
	return nil
}

// needsRepair reports whether a cached record is missing detail fields and
// was never fetched by this ledger. Records the API itself leaves partial are
// fetched once, not on every seed.
func (s *Service) needsRepair(p domain.Pokemon) bool {
	if p.IsComplete() {
		return false
	}
	if s.ledger == nil {
		return true
	}
	entry, ok := s.ledger.Entry(p.ID, domain.StageRecord)
	return !ok || entry.FetchedAt.IsZero()
}

// imageURL prefers the URL from the record, then the configured template
func (s *Service) imageURL(p domain.Pokemon) string {
	if p.SpriteURL != "" {
		return p.SpriteURL
	}
	if s.opts.SpriteURL != nil {
		return s.opts.SpriteURL(p.ID)
	}
	return ""
}

// fail logs and records a per-item failure. Cancellation is not a failure.
func (s *Service) fail(ctx context.Context, result *domain.SyncResult, id int, stage domain.Stage, err error) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Error("failed to fetch "+string(stage), "error", err, "id", id)
	result.Failures = append(result.Failures, domain.ItemFailure{ID: id, Stage: stage, Err: err})
	if s.ledger != nil {
		if lerr := s.ledger.RecordFailure(id, stage, err); lerr != nil {
			s.logger.Error("failed to update fetch ledger", "error", lerr, "id", id)
		}
	}
}

func (s *Service) recordSuccess(id int, stage domain.Stage) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.RecordSuccess(id, stage); err != nil {
		s.logger.Error("failed to update fetch ledger", "error", err, "id", id)
	}
}

// normalizeIDs drops ids <= 0 and duplicates, returning ascending order
func normalizeIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
