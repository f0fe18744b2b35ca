package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "http://localhost:8001", cfg.Parser.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Parser.Timeout())
	assert.Equal(t, "tesseract", cfg.OCR.Provider)
	assert.Equal(t, "http://localhost:8884", cfg.OCR.TesseractURL)
	assert.Equal(t, "pixtral-large-latest", cfg.OCR.MistralModel)
	assert.Equal(t, 50, cfg.Viewport.PaddingPx)
	assert.Equal(t, 8, cfg.Viewport.MaxZoom)
	assert.Equal(t, 2048, cfg.Basemap.CacheEntries)
	assert.Equal(t, 24*time.Hour, cfg.Basemap.CacheTTL())
	assert.InDelta(t, 10.0, cfg.Basemap.UpstreamQPS, 0.001)
	assert.Equal(t, 20, cfg.Basemap.UpstreamBurst)
	assert.Equal(t, "http://localhost:8002", cfg.Export.RendererURL)
	assert.Equal(t, 3, cfg.Export.PixelRatio)
	assert.Equal(t, 60*time.Second, cfg.Export.Timeout())
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
parser:
  base_url: https://parse.example.com
  timeout_secs: 5
viewport:
  max_zoom: 10
basemap:
  boundary_path: data/eez.geojson
  cache_path: /tmp/tiles.db
export:
  renderer_url: http://renderer:9100
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://parse.example.com", cfg.Parser.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Parser.Timeout())
	assert.Equal(t, 10, cfg.Viewport.MaxZoom)
	assert.Equal(t, "data/eez.geojson", cfg.Basemap.BoundaryPath)
	assert.Equal(t, "/tmp/tiles.db", cfg.Basemap.CachePath)
	assert.Equal(t, "http://renderer:9100", cfg.Export.RendererURL)
	// Untouched sections keep defaults.
	assert.Equal(t, 3, cfg.Export.PixelRatio)
	assert.Equal(t, 50, cfg.Viewport.PaddingPx)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))

	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	require.Error(t, err)
}
