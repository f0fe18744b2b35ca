package model

import "github.com/twpayne/go-geom"

// GeometryType classifies the shape a parsed notice describes.
type GeometryType string

const (
	GeometryArea    GeometryType = "area"
	GeometryCircle  GeometryType = "circle"
	GeometryLine    GeometryType = "line"
	GeometryPoint   GeometryType = "point"
	GeometryUnknown GeometryType = "unknown"
)

// LatLng is a geographic coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geometry is the tagged shape variant of a notice record.
//
// The tag and the coordinate sequence must stay mutually consistent; parse
// responses that violate that are coerced to GeometryUnknown by Canonical
// at ingestion time, so downstream rendering never sees a mismatch.
type Geometry struct {
	Type        GeometryType `json:"type"`
	Coordinates []LatLng     `json:"coordinates"`
	RadiusNM    *float64     `json:"radius_nm,omitempty"`
}

// Canonical returns a geometry whose tag and coordinates are consistent:
// area needs at least 3 vertices, line at least 2, circle a center plus a
// positive radius, point a single location. Anything else collapses to
// GeometryUnknown with no coordinates. Circle and point keep only their
// first coordinate; radius is dropped for non-circles.
func (g Geometry) Canonical() Geometry {
	switch g.Type {
	case GeometryArea:
		if len(g.Coordinates) >= 3 {
			return Geometry{Type: GeometryArea, Coordinates: g.Coordinates}
		}
	case GeometryCircle:
		if len(g.Coordinates) >= 1 && g.RadiusNM != nil && *g.RadiusNM > 0 {
			r := *g.RadiusNM
			return Geometry{Type: GeometryCircle, Coordinates: g.Coordinates[:1], RadiusNM: &r}
		}
	case GeometryLine:
		if len(g.Coordinates) >= 2 {
			return Geometry{Type: GeometryLine, Coordinates: g.Coordinates}
		}
	case GeometryPoint:
		if len(g.Coordinates) >= 1 {
			return Geometry{Type: GeometryPoint, Coordinates: g.Coordinates[:1]}
		}
	}
	return Geometry{Type: GeometryUnknown}
}

// Renderable reports whether the geometry maps to a map primitive.
func (g Geometry) Renderable() bool {
	c := g.Canonical()
	return c.Type != GeometryUnknown && c.Type == g.Type
}

// Bounds returns the minimal bounding rectangle over the coordinate
// sequence, or nil when the geometry has no coordinates. For circles the
// bounds cover the center point only; the radius is not expanded.
func (g Geometry) Bounds() *geom.Bounds {
	if len(g.Coordinates) == 0 || g.Type == GeometryUnknown {
		return nil
	}
	b := geom.NewBounds(geom.XY)
	for _, c := range g.Coordinates {
		b.Extend(geom.NewPointFlat(geom.XY, []float64{c.Lng, c.Lat}))
	}
	return b
}
