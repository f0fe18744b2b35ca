package basemap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTileCachePutGet(t *testing.T) {
	t.Parallel()

	c := NewTileCache(10, time.Minute)
	assert.Nil(t, c.Get("osm", 1, 2, 3))

	c.Put("osm", 1, 2, 3, []byte("tile"))
	assert.Equal(t, []byte("tile"), c.Get("osm", 1, 2, 3))
	assert.Nil(t, c.Get("voyager", 1, 2, 3), "styles are cached independently")
}

func TestTileCacheTTLExpiry(t *testing.T) {
	t.Parallel()

	c := NewTileCache(10, 10*time.Millisecond)
	c.Put("osm", 1, 2, 3, []byte("tile"))
	time.Sleep(25 * time.Millisecond)
	assert.Nil(t, c.Get("osm", 1, 2, 3))
}

func TestTileCacheLRUEviction(t *testing.T) {
	t.Parallel()

	c := NewTileCache(2, time.Minute)
	c.Put("osm", 1, 0, 0, []byte("a"))
	c.Put("osm", 1, 0, 1, []byte("b"))

	// Touch the first entry so the second becomes the eviction candidate.
	assert.NotNil(t, c.Get("osm", 1, 0, 0))

	c.Put("osm", 1, 0, 2, []byte("c"))
	assert.NotNil(t, c.Get("osm", 1, 0, 0))
	assert.Nil(t, c.Get("osm", 1, 0, 1))
	assert.NotNil(t, c.Get("osm", 1, 0, 2))
}

func TestTileCacheInvalidateStyle(t *testing.T) {
	t.Parallel()

	c := NewTileCache(10, time.Minute)
	c.Put("osm", 1, 0, 0, []byte("a"))
	c.Put("voyager", 1, 0, 0, []byte("b"))

	c.Invalidate("osm")
	assert.Nil(t, c.Get("osm", 1, 0, 0))
	assert.NotNil(t, c.Get("voyager", 1, 0, 0))
}

func TestTileCacheStats(t *testing.T) {
	t.Parallel()

	c := NewTileCache(10, time.Minute)
	c.Put("osm", 1, 0, 0, []byte("a"))
	c.Get("osm", 1, 0, 0)
	c.Get("osm", 9, 9, 9)

	s := c.Stats()
	assert.Equal(t, 1, s.Entries)
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.InDelta(t, 0.5, s.HitRate, 0.001)
}
