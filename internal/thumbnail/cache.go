package thumbnail

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"github.com/mmcdole/pokedex/internal/domain"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Cache builds thumbnails on demand from the image store and keeps them
// according to its Policy. Safe for concurrent use.
type Cache struct {
	images domain.ImageReader
	width  int
	height int
	logger *slog.Logger

	mu     sync.Mutex // Protects policy, gen and epoch
	policy Policy
	gen    map[int]uint64 // Bumped by Invalidate
	epoch  uint64         // Bumped by Purge

	group singleflight.Group
}

// NewCache creates a cache producing width x height thumbnails.
// A nil policy means Unbounded.
func NewCache(images domain.ImageReader, width, height int, policy Policy, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == nil {
		policy = Unbounded()
	}
	return &Cache{
		images: images,
		width:  width,
		height: height,
		logger: logger,
		policy: policy,
		gen:    make(map[int]uint64),
	}
}

// GetOrBuild returns the thumbnail for id, building it from the stored image
// on a miss. Returns false when no usable image is stored; never touches the
// network.
func (c *Cache) GetOrBuild(id int) (Thumbnail, bool) {
	c.mu.Lock()
	if t, ok := c.policy.Get(id); ok {
		c.mu.Unlock()
		return t, true
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(strconv.Itoa(id), func() (any, error) {
		return c.build(id)
	})
	if err != nil {
		if !errors.Is(err, errNoImage) {
			c.logger.Error("failed to build thumbnail", "error", err, "id", id)
		}
		return Thumbnail{}, false
	}
	return v.(Thumbnail), true
}

var errNoImage = errors.New("no image")

func (c *Cache) build(id int) (Thumbnail, error) {
	c.mu.Lock()
	if t, ok := c.policy.Get(id); ok {
		c.mu.Unlock()
		return t, nil
	}
	startGen, startEpoch := c.gen[id], c.epoch
	c.mu.Unlock()

	raw, ok, err := c.images.Read(id)
	if err != nil {
		return Thumbnail{}, err
	}
	if !ok {
		return Thumbnail{}, errNoImage
	}

	t, err := Build(raw, c.width, c.height)
	if err != nil {
		return Thumbnail{}, err
	}

	c.mu.Lock()
	if c.gen[id] == startGen && c.epoch == startEpoch {
		c.policy.Add(id, t)
	}
	c.mu.Unlock()

	return t, nil
}

// Get returns a resident thumbnail without building
func (c *Cache) Get(id int) (Thumbnail, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy.Get(id)
}

// Invalidate drops id so the next GetOrBuild reads the image again.
// Builds already in flight for id will not be stored.
func (c *Cache) Invalidate(id int) {
	c.mu.Lock()
	c.gen[id]++
	c.policy.Remove(id)
	c.mu.Unlock()
	c.group.Forget(strconv.Itoa(id))
}

// Preload builds thumbnails for ids in the background, at most concurrency at
// a time. Missing images are skipped. Returns ctx.Err() if cancelled.
func (c *Cache) Preload(ctx context.Context, ids []int, concurrency int) (int, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu    sync.Mutex
		built int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		id := id // per-iteration copy (go 1.21 loop semantics)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, ok := c.GetOrBuild(id); ok {
				mu.Lock()
				built++
				mu.Unlock()
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	c.logger.Debug("thumbnail preload finished", "requested", len(ids), "built", built)
	return built, err
}

// Len returns the number of resident thumbnails
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy.Len()
}

// Purge drops every resident thumbnail
func (c *Cache) Purge() {
	c.mu.Lock()
	c.epoch++
	c.policy.Purge()
	c.mu.Unlock()
}
