package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mmcdole/pokedex/internal/domain"
)

const imageExt = ".png"

// ImageStore implements domain.ImageStore as one file per identifier.
// It stores raw bytes only; decoding belongs to the thumbnail package.
type ImageStore struct {
	dir string
}

// NewImageStore creates the image directory if needed
func NewImageStore(dir string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, domain.NewError(domain.ErrIO, "open image store", err)
	}
	return &ImageStore{dir: dir}, nil
}

// Dir returns the directory holding the images
func (s *ImageStore) Dir() string {
	return s.dir
}

func (s *ImageStore) path(id int) string {
	return filepath.Join(s.dir, strconv.Itoa(id)+imageExt)
}

// Has reports whether a non-empty image exists for id
func (s *ImageStore) Has(id int) bool {
	info, err := os.Stat(s.path(id))
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// Read returns the raw image bytes for id. A missing image is (nil, false, nil).
func (s *ImageStore) Read(id int) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.NewError(domain.ErrIO, fmt.Sprintf("read image %d", id), err)
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	return data, true, nil
}

// Write stores data for id, replacing any existing image atomically
func (s *ImageStore) Write(id int, data []byte) error {
	if id <= 0 {
		return fmt.Errorf("write image: invalid id %d", id)
	}
	if len(data) == 0 {
		return domain.NewError(domain.ErrParse, fmt.Sprintf("write image %d", id), errors.New("empty image"))
	}
	if err := writeFileAtomic(s.path(id), data); err != nil {
		return domain.NewError(domain.ErrIO, fmt.Sprintf("write image %d", id), err)
	}
	return nil
}

// IDs returns the identifiers that have an image, ascending
func (s *ImageStore) IDs() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, domain.NewError(domain.ErrIO, "list images", err)
	}

	var ids []int
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, imageExt) {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(name, imageExt))
		if err != nil || id <= 0 {
			continue // Stray file
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// Count returns the number of stored images, 0 if the directory is unreadable
func (s *ImageStore) Count() int {
	ids, err := s.IDs()
	if err != nil {
		return 0
	}
	return len(ids)
}

// Size returns the total bytes used by stored images
func (s *ImageStore) Size() (int64, error) {
	ids, err := s.IDs()
	if err != nil {
		return 0, err
	}

	var total int64
	for _, id := range ids {
		info, err := os.Stat(s.path(id))
		if err != nil {
			continue // Removed between listing and stat
		}
		total += info.Size()
	}
	return total, nil
}
