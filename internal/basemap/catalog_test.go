package basemap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()
	require.NotEmpty(t, c.Styles)

	seen := make(map[string]bool, len(c.Styles))
	defaults := 0
	for _, s := range c.Styles {
		assert.False(t, seen[s.Key], "duplicate style key %q", s.Key)
		seen[s.Key] = true
		assert.NotEmpty(t, s.URL, "style %q has no URL", s.Key)
		assert.Contains(t, s.URL, "{z}", "style %q URL missing zoom placeholder", s.Key)
		assert.Positive(t, s.MaxZoom, "style %q has no max zoom", s.Key)
		if s.Default {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults, "exactly one default style")

	dm, ok := c.Get("dark-matter")
	require.True(t, ok)
	assert.True(t, dm.Default)
}

func TestLoadCatalogEmptyPathReturnsDefault(t *testing.T) {
	t.Parallel()

	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCatalog(), c)
}

func TestLoadCatalogFromYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := `styles:
  - key: custom
    name: Custom Layer
    url: https://tiles.example.com/{z}/{x}/{y}.png
    attribution: Example
    max_zoom: 12
    default: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, c.Styles, 1)

	s, ok := c.Get("custom")
	require.True(t, ok)
	assert.Equal(t, "Custom Layer", s.Name)
	assert.Equal(t, 12, s.MaxZoom)
	assert.True(t, s.Default)
}

func TestLoadCatalogErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("styles: []\n"), 0o644))
	_, err = LoadCatalog(empty)
	assert.Error(t, err)
}
