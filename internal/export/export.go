// Package export captures PNG snapshots of the current overlay scene. The
// raster work happens in a headless render service; this package assembles
// the scene description, sends it out, and returns the image bytes without
// touching any session state.
package export

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"golang.org/x/sync/singleflight"

	"github.com/avgeo/notam-studio/internal/basemap"
	"github.com/avgeo/notam-studio/internal/config"
	"github.com/avgeo/notam-studio/internal/render"
	"github.com/avgeo/notam-studio/internal/store"
	"github.com/avgeo/notam-studio/internal/viewport"
)

// ErrExportFailed is returned when the render service could not produce a
// snapshot. The session is left exactly as it was.
var ErrExportFailed = eris.New("export: snapshot capture failed")

// worldBounds frames the whole map when there is nothing to fit.
var worldBounds = viewport.BBox{MinLng: -180, MinLat: -85, MaxLng: 180, MaxLat: 85}

// Renderer turns a scene description into PNG bytes.
type Renderer interface {
	Render(ctx context.Context, req Request) ([]byte, error)
}

// Request is the scene sent to the render service.
type Request struct {
	Bounds     viewport.BBox              `json:"bounds"`
	Style      string                     `json:"style"`
	Overlays   *geojson.FeatureCollection `json:"overlays"`
	Boundary   *basemap.Boundary          `json:"boundary,omitempty"`
	PixelRatio int                        `json:"pixel_ratio"`
}

// Service assembles snapshot requests from the live session.
type Service struct {
	renderer   Renderer
	store      *store.Store
	sync       *viewport.Synchronizer
	boundary   *basemap.Boundary
	pixelRatio int
	group      singleflight.Group
}

// NewService wires the snapshot service. boundary may be nil.
func NewService(r Renderer, st *store.Store, vp *viewport.Synchronizer, boundary *basemap.Boundary, cfg config.ExportConfig) *Service {
	return &Service{
		renderer:   r,
		store:      st,
		sync:       vp,
		boundary:   boundary,
		pixelRatio: cfg.PixelRatio,
	}
}

// Export captures one snapshot of the current scene using the given tile
// style. Concurrent exports of the same style coalesce into a single
// capture. On failure every piece of session state is untouched.
func (s *Service) Export(ctx context.Context, style string) ([]byte, error) {
	v, err, _ := s.group.Do("export/"+style, func() (interface{}, error) {
		return s.capture(ctx, style)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *Service) capture(ctx context.Context, style string) ([]byte, error) {
	records := s.store.All()
	overlays := render.Derive(records)

	req := Request{
		Bounds:     s.sceneBounds(),
		Style:      style,
		Overlays:   render.FeatureCollection(overlays),
		Boundary:   s.boundary,
		PixelRatio: s.pixelRatio,
	}

	png, err := s.renderer.Render(ctx, req)
	if err != nil {
		return nil, eris.Wrap(ErrExportFailed, err.Error())
	}
	if len(png) == 0 {
		return nil, eris.Wrap(ErrExportFailed, "renderer returned empty image")
	}
	return png, nil
}

// sceneBounds picks the frame: a pending camera fit wins, then the envelope
// of all visible geometry, then the whole world.
func (s *Service) sceneBounds() viewport.BBox {
	if _, fit := s.sync.Snapshot(); fit != nil {
		return fit.Bounds
	}

	acc := viewport.BBox{}
	have := false
	for _, r := range s.store.All() {
		if !r.Visible {
			continue
		}
		b := r.Geometry.Bounds()
		if b == nil {
			continue
		}
		if !have {
			acc = viewport.BBox{MinLng: b.Min(0), MinLat: b.Min(1), MaxLng: b.Max(0), MaxLat: b.Max(1)}
			have = true
			continue
		}
		acc.MinLng = math.Min(acc.MinLng, b.Min(0))
		acc.MinLat = math.Min(acc.MinLat, b.Min(1))
		acc.MaxLng = math.Max(acc.MaxLng, b.Max(0))
		acc.MaxLat = math.Max(acc.MaxLat, b.Max(1))
	}
	if !have {
		return worldBounds
	}
	return acc
}
