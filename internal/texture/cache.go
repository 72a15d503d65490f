package texture

import (
	"image"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Resolver resolves a texture ID to a decoded image.
type Resolver interface {
	Resolve(id uint32) *image.NRGBA
}

// Cache is a concurrency-safe, size-bounded texture cache. Failed loads are
// cached as nil so a missing file is only looked up once.
type Cache struct {
	items *lru.Cache[uint32, *image.NRGBA]
	index *Index
	log   *zap.Logger
}

// NewCache creates a cache holding at most size decoded textures.
func NewCache(index *Index, size int, log *zap.Logger) (*Cache, error) {
	items, err := lru.New[uint32, *image.NRGBA](size)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{items: items, index: index, log: log}, nil
}

// Resolve loads and caches a texture by ID. Returns nil if not found.
func (c *Cache) Resolve(id uint32) *image.NRGBA {
	if img, ok := c.items.Get(id); ok {
		return img
	}

	path, ok := c.index.ResolvePath(id)
	if !ok {
		c.items.Add(id, nil)
		return nil
	}

	img, err := LoadTexture(path)
	if err != nil {
		c.log.Warn("texture load failed", zap.Uint32("id", id), zap.Error(err))
	}
	c.items.Add(id, img)
	return img
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.items.Len()
}
