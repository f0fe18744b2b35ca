// Package viewport keeps the map camera in sync with the active selection.
// It derives a fit-to-bounds request from the selected record's geometry and
// re-derives whenever the store or selection changes.
package viewport

import (
	"sync"

	"github.com/avgeo/notam-studio/internal/config"
	"github.com/avgeo/notam-studio/internal/store"
)

// State is the synchronizer's fit state.
type State string

const (
	// StateIdle means no camera fit is pending.
	StateIdle State = "idle"
	// StateFitting means a fit has been requested and the camera has not
	// acknowledged it yet.
	StateFitting State = "fitting"
)

// BBox is a geographic bounding rectangle.
type BBox struct {
	MinLng float64 `json:"min_lng"`
	MinLat float64 `json:"min_lat"`
	MaxLng float64 `json:"max_lng"`
	MaxLat float64 `json:"max_lat"`
}

// Fit asks the map to frame Bounds with PaddingPx margin, never zooming in
// past MaxZoom so small regions are not over-magnified. Generation increases
// on every re-trigger; the camera acknowledges the generation it applied.
type Fit struct {
	Bounds     BBox   `json:"bounds"`
	PaddingPx  int    `json:"padding_px"`
	MaxZoom    int    `json:"max_zoom"`
	Generation uint64 `json:"generation"`
}

// Synchronizer subscribes to the session store and maintains the pending
// camera fit for the active selection.
type Synchronizer struct {
	store     *store.Store
	paddingPx int
	maxZoom   int

	mu    sync.RWMutex
	state State
	fit   *Fit
	gen   uint64
}

// New creates a synchronizer and subscribes it to the store.
func New(st *store.Store, cfg config.ViewportConfig) *Synchronizer {
	s := &Synchronizer{
		store:     st,
		paddingPx: cfg.PaddingPx,
		maxZoom:   cfg.MaxZoom,
		state:     StateIdle,
	}
	st.Subscribe(s.refresh)
	return s
}

// refresh re-derives the fit. Runs on every store or selection mutation:
// geometry is immutable post-creation, so recomputing is a consistency
// measure, and re-selecting the same id deliberately re-triggers the fit.
func (s *Synchronizer) refresh() {
	id := s.store.Selected()
	if id == "" {
		s.mu.Lock()
		s.state = StateIdle
		s.fit = nil
		s.mu.Unlock()
		return
	}

	rec, ok := s.store.Get(id)
	if !ok {
		return
	}
	b := rec.Geometry.Bounds()
	if b == nil {
		// Unknown or empty geometry: no camera change, idle remains.
		return
	}

	s.mu.Lock()
	s.gen++
	s.fit = &Fit{
		Bounds: BBox{
			MinLng: b.Min(0),
			MinLat: b.Min(1),
			MaxLng: b.Max(0),
			MaxLat: b.Max(1),
		},
		PaddingPx:  s.paddingPx,
		MaxZoom:    s.maxZoom,
		Generation: s.gen,
	}
	s.state = StateFitting
	s.mu.Unlock()
}

// Snapshot returns the current state and pending fit (nil when none).
func (s *Synchronizer) Snapshot() (State, *Fit) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fit == nil {
		return s.state, nil
	}
	fit := *s.fit
	return s.state, &fit
}

// Acknowledge marks the given fit generation as applied by the camera. A
// stale generation is ignored so a concurrent re-trigger is not lost.
func (s *Synchronizer) Acknowledge(generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateFitting && s.gen == generation {
		s.state = StateIdle
	}
}
