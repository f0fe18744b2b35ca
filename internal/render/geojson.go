package render

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/avgeo/notam-studio/internal/model"
)

// FeatureCollection encodes the overlay set as GeoJSON for the map
// substrate. Circles become point features carrying a radius_m property,
// the usual convention for raster map clients.
func FeatureCollection(overlays []Overlay) *geojson.FeatureCollection {
	features := make([]*geojson.Feature, 0, len(overlays))
	for _, o := range overlays {
		f := &geojson.Feature{
			ID:       o.RecordID,
			Geometry: overlayGeometry(o),
			Properties: map[string]interface{}{
				"record_id":    o.RecordID,
				"kind":         string(o.Kind),
				"color":        o.Style.Color,
				"fill_opacity": o.Style.FillOpacity,
				"popup_title":  o.Popup.Title,
			},
		}
		if o.Kind == KindCircle {
			f.Properties["radius_m"] = o.RadiusM
		}
		if o.Style.DashArray != "" {
			f.Properties["dash_array"] = o.Style.DashArray
		}
		if o.Style.Weight != 0 {
			f.Properties["weight"] = o.Style.Weight
		}
		if len(o.Popup.Lines) > 0 {
			f.Properties["popup_lines"] = o.Popup.Lines
		}
		if o.Popup.Description != "" {
			f.Properties["description"] = o.Popup.Description
		}
		features = append(features, f)
	}
	return &geojson.FeatureCollection{Features: features}
}

func overlayGeometry(o Overlay) geom.T {
	switch o.Kind {
	case KindPolygon:
		flat := flatCoords(o.Positions)
		// GeoJSON rings must close.
		first := o.Positions[0]
		last := o.Positions[len(o.Positions)-1]
		if first != last {
			flat = append(flat, first.Lng, first.Lat)
		}
		return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
	case KindPolyline:
		return geom.NewLineStringFlat(geom.XY, flatCoords(o.Positions))
	default: // circle and marker are both points on the wire
		p := o.Positions[0]
		return geom.NewPointFlat(geom.XY, []float64{p.Lng, p.Lat})
	}
}

func flatCoords(positions []model.LatLng) []float64 {
	flat := make([]float64, 0, len(positions)*2)
	for _, p := range positions {
		flat = append(flat, p.Lng, p.Lat)
	}
	return flat
}
