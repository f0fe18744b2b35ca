package basemap

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// BoundaryStyle is the fixed drawing style for the boundary overlay.
type BoundaryStyle struct {
	Color       string  `json:"color"`
	Weight      int     `json:"weight"`
	FillOpacity float64 `json:"fill_opacity"`
	DashArray   string  `json:"dash_array"`
}

// Boundary is the reference boundary dataset (FIRs, maritime zones) drawn
// under the record overlays.
type Boundary struct {
	Data  *geojson.FeatureCollection `json:"data"`
	Style BoundaryStyle              `json:"style"`
}

func defaultBoundaryStyle() BoundaryStyle {
	return BoundaryStyle{Color: "#339af0", Weight: 2, FillOpacity: 0.08, DashArray: "5, 5"}
}

// LoadBoundary reads the boundary dataset once at startup. A missing or
// empty path yields an empty collection rather than an error: the overlay
// is decorative and the pipeline must come up without it.
func LoadBoundary(path string) *Boundary {
	b := &Boundary{
		Data:  &geojson.FeatureCollection{Features: []*geojson.Feature{}},
		Style: defaultBoundaryStyle(),
	}
	if path == "" {
		return b
	}

	fc, err := readBoundaryFile(path)
	if err != nil {
		zap.L().Warn("basemap: boundary dataset unavailable, serving empty overlay",
			zap.String("path", path), zap.Error(err))
		return b
	}

	b.Data = fc
	zap.L().Info("basemap: loaded boundary dataset",
		zap.String("path", path), zap.Int("features", len(fc.Features)))
	return b
}

func readBoundaryFile(path string) (*geojson.FeatureCollection, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return readBoundaryGeoJSON(path)
	case ".shp":
		return readBoundaryShapefile(path)
	default:
		return nil, eris.Errorf("basemap: unsupported boundary format %s", filepath.Ext(path))
	}
}

func readBoundaryGeoJSON(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "basemap: read boundary %s", path)
	}
	var fc geojson.FeatureCollection
	if err := fc.UnmarshalJSON(data); err != nil {
		return nil, eris.Wrap(err, "basemap: unmarshal boundary geojson")
	}
	return &fc, nil
}

func readBoundaryShapefile(path string) (*geojson.FeatureCollection, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "basemap: open boundary shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()
		g := shapeGeometry(shape)
		if g == nil {
			skipped++
			continue
		}

		props := make(map[string]interface{}, len(names))
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val != "" {
				props[name] = val
			}
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   g,
			Properties: props,
		})
	}

	if skipped > 0 {
		zap.L().Debug("basemap: skipped boundary shapes", zap.Int("skipped", skipped))
	}
	return fc, nil
}

// shapeGeometry converts a shapefile record to a go-geom geometry.
// Unsupported or degenerate shapes map to nil.
func shapeGeometry(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.PolyLine:
		return polyLineToMultiLineString(s)
	case *shp.Polygon:
		return polygonToMultiPolygon(s)
	default:
		return nil
	}
}

func polyLineToMultiLineString(pl *shp.PolyLine) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY)
	for i := int32(0); i < pl.NumParts; i++ {
		flat := partFlatCoords(pl.Points, pl.Parts, i, pl.NumParts)
		ls := geom.NewLineStringFlat(geom.XY, flat)
		if err := mls.Push(ls); err != nil {
			zap.L().Debug("basemap: skipping malformed boundary line part", zap.Int32("part", i), zap.Error(err))
		}
	}
	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i := int32(0); i < p.NumParts; i++ {
		flat := partFlatCoords(p.Points, p.Parts, i, p.NumParts)
		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("basemap: skipping malformed boundary ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("basemap: skipping malformed boundary polygon", zap.Int32("part", i), zap.Error(err))
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

func partFlatCoords(points []shp.Point, parts []int32, i, numParts int32) []float64 {
	start := parts[i]
	end := int32(len(points))
	if i+1 < numParts {
		end = parts[i+1]
	}
	flat := make([]float64, 0, (end-start)*2)
	for j := start; j < end; j++ {
		flat = append(flat, points[j].X, points[j].Y)
	}
	return flat
}
