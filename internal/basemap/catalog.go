// Package basemap is the interface to the map tiling substrate: the catalog
// of named base styles, a caching proxy for upstream raster tiles, and the
// boundary overlay dataset loaded once at startup.
package basemap

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Style is one named tile layer. URL is a slippy-map template with
// {z}/{x}/{y} placeholders ({s} and {r} are normalized away by the proxy).
type Style struct {
	Key         string `yaml:"key" json:"key"`
	Name        string `yaml:"name" json:"name"`
	URL         string `yaml:"url" json:"url"`
	Attribution string `yaml:"attribution" json:"attribution"`
	MaxZoom     int    `yaml:"max_zoom" json:"max_zoom"`
	Format      string `yaml:"format,omitempty" json:"format,omitempty"`
	Overlay     bool   `yaml:"overlay,omitempty" json:"overlay,omitempty"`
	Default     bool   `yaml:"default,omitempty" json:"default,omitempty"`
}

// Catalog is the ordered set of styles offered to the map client.
type Catalog struct {
	Styles []Style `yaml:"styles" json:"styles"`
}

// Get looks a style up by key.
func (c Catalog) Get(key string) (Style, bool) {
	for _, s := range c.Styles {
		if s.Key == key {
			return s, true
		}
	}
	return Style{}, false
}

// LoadCatalog reads a catalog from a YAML file, or returns the built-in
// default catalog when path is empty.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, eris.Wrapf(err, "basemap: read catalog %s", path)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, eris.Wrap(err, "basemap: unmarshal catalog")
	}
	if len(c.Styles) == 0 {
		return Catalog{}, eris.New("basemap: catalog has no styles")
	}
	return c, nil
}

// DefaultCatalog returns the built-in style set.
func DefaultCatalog() Catalog {
	return Catalog{Styles: []Style{
		{Key: "dark-matter", Name: "Dark Matter", URL: "https://basemaps.cartocdn.com/dark_all/{z}/{x}/{y}.png", Attribution: "CARTO", MaxZoom: 20, Default: true},
		{Key: "esri-imagery", Name: "Satellite (Esri)", URL: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}", Attribution: "Esri", MaxZoom: 19},
		{Key: "esri-imagery-labels", Name: "Satellite Labels", URL: "https://server.arcgisonline.com/ArcGIS/rest/services/Reference/World_Boundaries_and_Places/MapServer/tile/{z}/{y}/{x}", Attribution: "Esri", MaxZoom: 19, Overlay: true},
		{Key: "voyager", Name: "Voyager", URL: "https://basemaps.cartocdn.com/rastertiles/voyager/{z}/{x}/{y}.png", Attribution: "CARTO", MaxZoom: 20},
		{Key: "positron", Name: "Positron (Light)", URL: "https://basemaps.cartocdn.com/light_all/{z}/{x}/{y}.png", Attribution: "CARTO", MaxZoom: 20},
		{Key: "stamen-terrain", Name: "Terrain", URL: "https://tiles.stadiamaps.com/tiles/stamen_terrain/{z}/{x}/{y}.png", Attribution: "Stamen", MaxZoom: 18},
		{Key: "stamen-watercolor", Name: "Watercolor", URL: "https://tiles.stadiamaps.com/tiles/stamen_watercolor/{z}/{x}/{y}.jpg", Attribution: "Stamen", MaxZoom: 16, Format: "jpg"},
		{Key: "stamen-toner", Name: "Toner (B&W)", URL: "https://tiles.stadiamaps.com/tiles/stamen_toner/{z}/{x}/{y}.png", Attribution: "Stamen", MaxZoom: 20},
		{Key: "stamen-toner-lite", Name: "Toner Lite", URL: "https://tiles.stadiamaps.com/tiles/stamen_toner_lite/{z}/{x}/{y}.png", Attribution: "Stamen", MaxZoom: 20},
		{Key: "stamen-toner-background", Name: "Toner Background", URL: "https://tiles.stadiamaps.com/tiles/stamen_toner_background/{z}/{x}/{y}.png", Attribution: "Stamen", MaxZoom: 20},
		{Key: "stamen-terrain-background", Name: "Terrain Background", URL: "https://tiles.stadiamaps.com/tiles/stamen_terrain_background/{z}/{x}/{y}.png", Attribution: "Stamen", MaxZoom: 18},
		{Key: "stamen-terrain-lines", Name: "Terrain Lines", URL: "https://tiles.stadiamaps.com/tiles/stamen_terrain_lines/{z}/{x}/{y}.png", Attribution: "Stamen", MaxZoom: 18},
		{Key: "osm", Name: "OpenStreetMap", URL: "https://tile.openstreetmap.org/{z}/{x}/{y}.png", Attribution: "OSM", MaxZoom: 19},
		{Key: "osm-hot", Name: "OSM Humanitarian", URL: "https://tile.openstreetmap.fr/hot/{z}/{x}/{y}.png", Attribution: "OSM HOT", MaxZoom: 19},
		{Key: "osm-de", Name: "OSM Germany", URL: "https://tile.openstreetmap.de/{z}/{x}/{y}.png", Attribution: "OSM DE", MaxZoom: 18},
		{Key: "cyclosm", Name: "CyclOSM (Cycling)", URL: "https://a.tile-cyclosm.openstreetmap.fr/cyclosm/{z}/{x}/{y}.png", Attribution: "CyclOSM", MaxZoom: 20},
		{Key: "opentopomap", Name: "OpenTopoMap", URL: "https://tile.opentopomap.org/{z}/{x}/{y}.png", Attribution: "OpenTopoMap", MaxZoom: 17},
		{Key: "esri-street", Name: "Esri Street Map", URL: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Street_Map/MapServer/tile/{z}/{y}/{x}", Attribution: "Esri", MaxZoom: 19},
		{Key: "esri-topo", Name: "Esri World Topo", URL: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Topo_Map/MapServer/tile/{z}/{y}/{x}", Attribution: "Esri", MaxZoom: 19},
		{Key: "esri-light-gray", Name: "Esri Light Gray", URL: "https://server.arcgisonline.com/ArcGIS/rest/services/Canvas/World_Light_Gray_Base/MapServer/tile/{z}/{y}/{x}", Attribution: "Esri", MaxZoom: 16},
		{Key: "esri-dark-gray", Name: "Esri Dark Gray", URL: "https://server.arcgisonline.com/ArcGIS/rest/services/Canvas/World_Dark_Gray_Base/MapServer/tile/{z}/{y}/{x}", Attribution: "Esri", MaxZoom: 16},
		{Key: "esri-terrain", Name: "Esri Terrain", URL: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Terrain_Base/MapServer/tile/{z}/{y}/{x}", Attribution: "Esri", MaxZoom: 13},
		{Key: "esri-shaded-relief", Name: "Esri Shaded Relief", URL: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Shaded_Relief/MapServer/tile/{z}/{y}/{x}", Attribution: "Esri", MaxZoom: 13},
		{Key: "esri-physical", Name: "Esri Physical Map", URL: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Physical_Map/MapServer/tile/{z}/{y}/{x}", Attribution: "Esri", MaxZoom: 8},
		{Key: "esri-natgeo", Name: "Esri NatGeo", URL: "https://server.arcgisonline.com/ArcGIS/rest/services/NatGeo_World_Map/MapServer/tile/{z}/{y}/{x}", Attribution: "Esri, NatGeo", MaxZoom: 16},
		{Key: "esri-delorme", Name: "Esri DeLorme", URL: "https://server.arcgisonline.com/ArcGIS/rest/services/Specialty/DeLorme_World_Base_Map/MapServer/tile/{z}/{y}/{x}", Attribution: "Esri, DeLorme", MaxZoom: 11},
		{Key: "esri-ocean", Name: "Esri Ocean", URL: "https://server.arcgisonline.com/ArcGIS/rest/services/Ocean/World_Ocean_Base/MapServer/tile/{z}/{y}/{x}", Attribution: "Esri", MaxZoom: 13},
		{Key: "usgs-imagery", Name: "USGS Imagery", URL: "https://basemap.nationalmap.gov/arcgis/rest/services/USGSImageryOnly/MapServer/tile/{z}/{y}/{x}", Attribution: "USGS", MaxZoom: 16},
		{Key: "usgs-topo", Name: "USGS Topo", URL: "https://basemap.nationalmap.gov/arcgis/rest/services/USGSTopo/MapServer/tile/{z}/{y}/{x}", Attribution: "USGS", MaxZoom: 16},
		{Key: "usgs-imagery-topo", Name: "USGS Imagery Topo", URL: "https://basemap.nationalmap.gov/arcgis/rest/services/USGSImageryTopo/MapServer/tile/{z}/{y}/{x}", Attribution: "USGS", MaxZoom: 16},
		{Key: "voyager-nolabels", Name: "Voyager (No Labels)", URL: "https://basemaps.cartocdn.com/rastertiles/voyager_nolabels/{z}/{x}/{y}.png", Attribution: "CARTO", MaxZoom: 20},
		{Key: "positron-nolabels", Name: "Positron (No Labels)", URL: "https://basemaps.cartocdn.com/light_nolabels/{z}/{x}/{y}.png", Attribution: "CARTO", MaxZoom: 20},
		{Key: "dark-matter-nolabels", Name: "Dark Matter (No Labels)", URL: "https://basemaps.cartocdn.com/dark_nolabels/{z}/{x}/{y}.png", Attribution: "CARTO", MaxZoom: 20},
		{Key: "openseamap", Name: "Maritime Charts", URL: "https://tiles.openseamap.org/seamark/{z}/{x}/{y}.png", Attribution: "OpenSeaMap", MaxZoom: 18, Overlay: true},
	}}
}
