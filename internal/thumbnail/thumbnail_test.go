package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/mmcdole/pokedex/internal/domain"
)

func encodePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type memImages struct {
	mu    sync.Mutex
	blobs map[int][]byte
	reads int
}

func newMemImages() *memImages {
	return &memImages{blobs: make(map[int][]byte)}
}

func (m *memImages) Has(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[id]
	return ok
}

func (m *memImages) Read(id int) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	b, ok := m.blobs[id]
	return b, ok, nil
}

func (m *memImages) put(id int, b []byte) {
	m.mu.Lock()
	m.blobs[id] = b
	m.mu.Unlock()
}

func (m *memImages) readCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func TestBuild_ResizesToFixedDimensions(t *testing.T) {
	raw := encodePNG(t, 96, 64, color.NRGBA{R: 255, A: 255})

	th, err := Build(raw, 48, 48)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if th.Width != 48 || th.Height != 48 || len(th.Pix) != 48*48*3 {
		t.Fatalf("unexpected thumbnail shape: %dx%d len=%d", th.Width, th.Height, len(th.Pix))
	}
	r, g, b := th.At(24, 24)
	if r < 250 || g > 5 || b > 5 {
		t.Fatalf("expected red center, got %d,%d,%d", r, g, b)
	}
}

func TestBuild_TransparentBecomesBlack(t *testing.T) {
	raw := encodePNG(t, 16, 16, color.NRGBA{R: 200, G: 100, B: 50, A: 0})

	th, err := Build(raw, 8, 8)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	for i, v := range th.Pix {
		if v != 0 {
			t.Fatalf("expected black at byte %d, got %d", i, v)
		}
	}
}

func TestBuild_IsDeterministic(t *testing.T) {
	raw := encodePNG(t, 40, 30, color.NRGBA{R: 10, G: 200, B: 90, A: 180})

	a, err := Build(raw, 48, 48)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	b, _ := Build(raw, 48, 48)
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Fatalf("expected identical pixels for identical input")
	}
}

func TestBuild_RejectsGarbage(t *testing.T) {
	_, err := Build([]byte("definitely not an image"), 48, 48)
	if !errors.Is(err, domain.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if _, err := Build(nil, 0, 48); err == nil {
		t.Fatalf("expected error for zero width")
	}
}

func TestThumbnail_AtOutOfRange(t *testing.T) {
	th := Thumbnail{Width: 1, Height: 1, Pix: []uint8{1, 2, 3}}
	if r, g, b := th.At(5, 0); r != 0 || g != 0 || b != 0 {
		t.Fatalf("expected black outside bounds")
	}
	if r, g, b := th.At(0, 0); r != 1 || g != 2 || b != 3 {
		t.Fatalf("unexpected pixel: %d,%d,%d", r, g, b)
	}
}

func TestCache_MissThenHit(t *testing.T) {
	images := newMemImages()
	images.put(25, encodePNG(t, 8, 8, color.NRGBA{G: 255, A: 255}))
	c := NewCache(images, 4, 4, nil, nil)

	if _, ok := c.GetOrBuild(25); !ok {
		t.Fatalf("expected thumbnail on miss")
	}
	if _, ok := c.GetOrBuild(25); !ok {
		t.Fatalf("expected thumbnail on hit")
	}
	if images.readCount() != 1 {
		t.Fatalf("expected one image read, got %d", images.readCount())
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestCache_AbsentOrCorruptImage(t *testing.T) {
	images := newMemImages()
	images.put(2, []byte("corrupt"))
	c := NewCache(images, 4, 4, nil, nil)

	if _, ok := c.GetOrBuild(1); ok {
		t.Fatalf("expected absent for missing image")
	}
	if _, ok := c.GetOrBuild(2); ok {
		t.Fatalf("expected absent for corrupt image")
	}
	if c.Len() != 0 {
		t.Fatalf("nothing should be resident, got %d", c.Len())
	}
}

func TestCache_LRUEvictsLeastRecentlyUsed(t *testing.T) {
	images := newMemImages()
	for id := 1; id <= 3; id++ {
		images.put(id, encodePNG(t, 4, 4, color.NRGBA{B: 255, A: 255}))
	}

	var evicted []int
	c := NewCache(images, 2, 2, NewLRU(2, func(id int) { evicted = append(evicted, id) }), nil)

	c.GetOrBuild(1)
	c.GetOrBuild(2)
	c.GetOrBuild(1) // 2 is now least recently used
	if _, ok := c.GetOrBuild(3); !ok {
		t.Fatalf("expected thumbnail for 3")
	}

	if len(evicted) != 1 || evicted[0] != 2 {
		t.Fatalf("evicted = %v, want [2]", evicted)
	}
	if _, ok := c.Get(1); !ok {
		t.Fatalf("expected 1 to stay resident")
	}
	if _, ok := c.Get(3); !ok {
		t.Fatalf("expected 3 to be resident")
	}
	if _, ok := c.Get(2); ok {
		t.Fatalf("expected 2 to be evicted")
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
}

func TestCache_InvalidateRebuildsFromNewImage(t *testing.T) {
	images := newMemImages()
	images.put(7, encodePNG(t, 4, 4, color.NRGBA{R: 255, A: 255}))
	c := NewCache(images, 2, 2, nil, nil)

	first, _ := c.GetOrBuild(7)
	images.put(7, encodePNG(t, 4, 4, color.NRGBA{B: 255, A: 255}))
	c.Invalidate(7)

	second, ok := c.GetOrBuild(7)
	if !ok {
		t.Fatalf("expected rebuild after invalidate")
	}
	if bytes.Equal(first.Pix, second.Pix) {
		t.Fatalf("expected new pixels after invalidate")
	}
	if _, _, b := second.At(0, 0); b < 250 {
		t.Fatalf("expected blue after rebuild, got b=%d", b)
	}
}

func TestCache_PreloadAndPurge(t *testing.T) {
	images := newMemImages()
	for id := 1; id <= 5; id++ {
		images.put(id, encodePNG(t, 4, 4, color.NRGBA{R: uint8(id * 40), A: 255}))
	}
	c := NewCache(images, 2, 2, Unbounded(), nil)

	built, err := c.Preload(context.Background(), []int{1, 2, 3, 4, 5, 6}, 3)
	if err != nil {
		t.Fatalf("Preload returned error: %v", err)
	}
	if built != 5 || c.Len() != 5 {
		t.Fatalf("expected 5 built and resident, got %d/%d", built, c.Len())
	}

	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after purge, got %d", c.Len())
	}
}

func TestCache_PreloadCancelled(t *testing.T) {
	images := newMemImages()
	images.put(1, encodePNG(t, 4, 4, color.White))
	c := NewCache(images, 2, 2, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Preload(ctx, []int{1}, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCache_ConcurrentMissesShareOneBuild(t *testing.T) {
	images := newMemImages()
	images.put(9, encodePNG(t, 64, 64, color.White))
	c := NewCache(images, 48, 48, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := c.GetOrBuild(9); !ok {
				t.Errorf("expected thumbnail")
			}
		}()
	}
	wg.Wait()

	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}
