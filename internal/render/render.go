// Package render derives the visible overlay set from the record store.
// Derivation is pure: records in, map primitives out, no side effects.
package render

import (
	"strconv"
	"strings"

	"github.com/avgeo/notam-studio/internal/model"
)

// MetersPerNauticalMile converts circle radii to the meters the map expects.
const MetersPerNauticalMile = 1852.0

// Kind is the map primitive an overlay draws.
type Kind string

const (
	KindPolygon  Kind = "polygon"
	KindCircle   Kind = "circle"
	KindPolyline Kind = "polyline"
	KindMarker   Kind = "marker"
)

// Style is the fixed per-kind drawing style. Color comes from the record;
// the rest is not user-configurable.
type Style struct {
	Color       string  `json:"color,omitempty"`
	FillColor   string  `json:"fill_color,omitempty"`
	FillOpacity float64 `json:"fill_opacity,omitempty"`
	Weight      int     `json:"weight,omitempty"`
	DashArray   string  `json:"dash_array,omitempty"`
}

// Popup is the informational popup content bound to an overlay.
type Popup struct {
	Title       string   `json:"title"`
	Lines       []string `json:"lines,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Overlay is one renderable map primitive derived from a record.
type Overlay struct {
	RecordID  string         `json:"record_id"`
	Kind      Kind           `json:"kind"`
	Positions []model.LatLng `json:"positions"`
	RadiusM   float64        `json:"radius_m,omitempty"`
	Style     Style          `json:"style"`
	Popup     Popup          `json:"popup"`
}

// Derive maps each visible record's geometry variant onto its primitive.
// Invisible records are excluded before any primitive is constructed, and
// unknown or malformed geometry contributes nothing.
func Derive(records []model.Record) []Overlay {
	overlays := make([]Overlay, 0, len(records))
	for _, r := range records {
		if !r.Visible {
			continue
		}
		g := r.Geometry
		if !g.Renderable() {
			continue
		}

		switch g.Type {
		case model.GeometryArea:
			overlays = append(overlays, Overlay{
				RecordID:  r.ID,
				Kind:      KindPolygon,
				Positions: g.Coordinates,
				Style:     Style{Color: r.Color, FillColor: r.Color, FillOpacity: 0.2},
				Popup: Popup{
					Title:       title(r),
					Lines:       []string{altitudeRange(r), "Type: Area/FIR"},
					Description: r.Description,
				},
			})
		case model.GeometryCircle:
			overlays = append(overlays, Overlay{
				RecordID:  r.ID,
				Kind:      KindCircle,
				Positions: g.Coordinates[:1],
				RadiusM:   *g.RadiusNM * MetersPerNauticalMile,
				Style:     Style{Color: r.Color, FillColor: r.Color, FillOpacity: 0.2},
				Popup: Popup{
					Title:       title(r),
					Lines:       []string{altitudeRange(r), radiusLine(*g.RadiusNM)},
					Description: r.Description,
				},
			})
		case model.GeometryLine:
			overlays = append(overlays, Overlay{
				RecordID:  r.ID,
				Kind:      KindPolyline,
				Positions: g.Coordinates,
				Style:     Style{Color: r.Color, Weight: 4, DashArray: "10, 10"},
				Popup: Popup{
					Title:       "Route/Airway Closure",
					Description: r.Description,
				},
			})
		case model.GeometryPoint:
			overlays = append(overlays, Overlay{
				RecordID:  r.ID,
				Kind:      KindMarker,
				Positions: g.Coordinates[:1],
				Style:     Style{Color: r.Color},
				Popup: Popup{
					Title:       title(r),
					Lines:       []string{altitudeRange(r)},
					Description: r.Description,
				},
			})
		}
	}
	return overlays
}

func title(r model.Record) string {
	if len(r.Identifiers) == 0 {
		return "Unknown ID"
	}
	return strings.Join(r.Identifiers, ", ")
}

func altitudeRange(r model.Record) string {
	return r.AltitudeLower + " - " + r.AltitudeUpper
}

func radiusLine(nm float64) string {
	return "Radius: " + strconv.FormatFloat(nm, 'f', -1, 64) + " NM"
}
