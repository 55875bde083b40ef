package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/mmcdole/pokedex/internal/adapter/source/pokeapi"
	"github.com/mmcdole/pokedex/internal/config"
	"github.com/mmcdole/pokedex/internal/domain"
	"github.com/mmcdole/pokedex/internal/library"
	"github.com/mmcdole/pokedex/internal/store"
	"github.com/mmcdole/pokedex/internal/thumbnail"
)

// app holds the wired components shared by every command
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	records *store.RecordStore
	images  *store.ImageStore
	ledger  *store.Ledger

	service *library.Service
	queries *library.Queries
	thumbs  *thumbnail.Cache
}

// newApp opens the local cache and builds the services. Only failures that
// leave the cache unusable are returned; a corrupt record file starts empty.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	if err := os.MkdirAll(cfg.Data.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	records := store.NewRecordStore(cfg.RecordsPath())
	loaded, err := records.Load()
	switch {
	case errors.Is(err, domain.ErrParse):
		logger.Warn("record cache is corrupt, starting empty", "path", cfg.RecordsPath(), "error", err)
	case err != nil:
		return nil, fmt.Errorf("failed to load records: %w", err)
	default:
		logger.Info("loaded record cache", "records", len(loaded))
	}

	images, err := store.NewImageStore(cfg.ImagesDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open image cache: %w", err)
	}

	ledger, err := store.NewLedger(cfg.LedgerPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open fetch ledger: %w", err)
	}

	client := pokeapi.NewClient(cfg.Fetch.BaseURL, cfg.Fetch.Rate, &http.Client{Timeout: cfg.Fetch.Timeout}, logger)
	service := library.NewService(client, records, images, ledger, library.Options{
		SpriteURL:          cfg.SpriteURL,
		RefreshConcurrency: cfg.Fetch.RefreshConcurrency,
	}, logger)

	var policy thumbnail.Policy
	if cfg.Thumbnail.MaxEntries > 0 {
		policy = thumbnail.NewLRU(cfg.Thumbnail.MaxEntries, func(id int) {
			logger.Debug("thumbnail evicted", "id", id)
		})
	}
	thumbs := thumbnail.NewCache(images, cfg.Thumbnail.Width, cfg.Thumbnail.Height, policy, logger)

	// Fresh images replace stale thumbnails
	service.SetImageUpdatedHook(thumbs.Invalidate)

	return &app{
		cfg:     cfg,
		logger:  logger,
		records: records,
		images:  images,
		ledger:  ledger,
		service: service,
		queries: library.NewQueries(records, images),
		thumbs:  thumbs,
	}, nil
}

// Close releases the fetch ledger
func (a *app) Close() error {
	return a.ledger.Close()
}
