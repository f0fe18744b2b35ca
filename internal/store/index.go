package store

import (
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/avgeo/notam-studio/internal/model"
)

// indexEpsilon pads degenerate rectangles (points, vertical/horizontal
// lines) so they form valid R-tree entries.
const indexEpsilon = 1e-9

type indexEntry struct {
	record model.Record
	order  int
	rect   rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (e *indexEntry) Bounds() rtreego.Rect {
	return e.rect
}

// Index is an R-tree over record geometry bounds, used as the map's click
// hit-test primitive. It subscribes to a Store and rebuilds on every
// mutation; queries are O(log N) instead of a linear scan.
type Index struct {
	mu    sync.RWMutex
	store *Store
	rtree *rtreego.Rtree
}

// NewIndex builds an index over the store and keeps it current.
func NewIndex(s *Store) *Index {
	idx := &Index{store: s}
	idx.rebuild()
	s.Subscribe(idx.rebuild)
	return idx
}

func (idx *Index) rebuild() {
	tree := rtreego.NewTree(2, 25, 50)
	for i, r := range idx.store.All() {
		// Hidden records draw nothing, so a click can never land on them.
		if !r.Visible {
			continue
		}
		b := r.Geometry.Bounds()
		if b == nil {
			continue
		}
		w := b.Max(0) - b.Min(0)
		h := b.Max(1) - b.Min(1)
		if w <= 0 {
			w = indexEpsilon
		}
		if h <= 0 {
			h = indexEpsilon
		}
		rect, err := rtreego.NewRect(rtreego.Point{b.Min(0), b.Min(1)}, []float64{w, h})
		if err != nil {
			continue
		}
		tree.Insert(&indexEntry{record: r, order: i, rect: rect})
	}
	idx.mu.Lock()
	idx.rtree = tree
	idx.mu.Unlock()
}

// HitTest returns the ids of visible records whose geometry contains the
// given location, in insertion order. Areas are tested with an exact
// point-in-polygon check; circles, lines, and points match on their
// bounding rectangle.
func (idx *Index) HitTest(lat, lng float64) []string {
	idx.mu.RLock()
	tree := idx.rtree
	idx.mu.RUnlock()

	probe, err := rtreego.NewRect(rtreego.Point{lng, lat}, []float64{indexEpsilon, indexEpsilon})
	if err != nil {
		return nil
	}

	var hits []*indexEntry
	for _, spatial := range tree.SearchIntersect(probe) {
		e := spatial.(*indexEntry)
		if e.record.Geometry.Type == model.GeometryArea &&
			!pointInRing(lat, lng, e.record.Geometry.Coordinates) {
			continue
		}
		hits = append(hits, e)
	}

	// SearchIntersect order is unspecified; restore insertion order.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j-1].order > hits[j].order; j-- {
			hits[j-1], hits[j] = hits[j], hits[j-1]
		}
	}

	ids := make([]string, len(hits))
	for i, e := range hits {
		ids[i] = e.record.ID
	}
	return ids
}

// pointInRing is an even-odd ray cast over a closed or open vertex ring.
func pointInRing(lat, lng float64, ring []model.LatLng) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].Lng, ring[i].Lat
		xj, yj := ring[j].Lng, ring[j].Lat
		intersect := ((yi > lat) != (yj > lat)) &&
			(lng < (xj-xi)*(lat-yi)/(yj-yi+1e-12)+xi)
		if intersect {
			inside = !inside
		}
	}
	return inside
}
