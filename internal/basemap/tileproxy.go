package basemap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// ErrStyleUnknown is returned when a tile is requested for a style the
// catalog does not carry.
var ErrStyleUnknown = eris.New("basemap: unknown style")

// TileProxy serves raster tiles for any catalog style, caching in memory
// (and optionally on disk) and coalescing concurrent fetches of the same
// tile into a single upstream request.
type TileProxy struct {
	catalog Catalog
	client  *http.Client
	cache   *TileCache
	disk    *DiskCache
	limiter *rate.Limiter
	group   singleflight.Group
}

// NewTileProxy creates a tile proxy over the given catalog. disk may be nil;
// a zero timeout falls back to 30s.
func NewTileProxy(catalog Catalog, cache *TileCache, disk *DiskCache, limiter *rate.Limiter, timeout time.Duration) *TileProxy {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TileProxy{
		catalog: catalog,
		client: &http.Client{
			Timeout: timeout,
		},
		cache:   cache,
		disk:    disk,
		limiter: limiter,
	}
}

// Fetch retrieves one tile, from cache when possible.
func (p *TileProxy) Fetch(ctx context.Context, styleKey string, z, x, y int) ([]byte, string, error) {
	style, ok := p.catalog.Get(styleKey)
	if !ok {
		return nil, "", eris.Wrapf(ErrStyleUnknown, "%q", styleKey)
	}
	if z < 0 || z > style.MaxZoom {
		return nil, "", eris.Errorf("basemap: zoom %d out of range for %s (max %d)", z, styleKey, style.MaxZoom)
	}

	ct := contentType(style.Format)

	if p.cache != nil {
		if cached := p.cache.Get(styleKey, z, x, y); cached != nil {
			return cached, ct, nil
		}
	}
	if p.disk != nil {
		if cached, err := p.disk.Get(ctx, styleKey, z, x, y); err == nil && cached != nil {
			if p.cache != nil {
				p.cache.Put(styleKey, z, x, y, cached)
			}
			return cached, ct, nil
		}
	}

	// Coalesce duplicate in-flight fetches of the same tile.
	v, err, _ := p.group.Do(tileKey(styleKey, z, x, y), func() (interface{}, error) {
		return p.fetchUpstream(ctx, style, z, x, y)
	})
	if err != nil {
		return nil, "", err
	}
	data := v.([]byte)

	if p.cache != nil {
		p.cache.Put(styleKey, z, x, y, data)
	}
	if p.disk != nil {
		if err := p.disk.Put(ctx, styleKey, z, x, y, data); err != nil {
			zap.L().Warn("basemap: disk cache write failed", zap.Error(err))
		}
	}
	return data, ct, nil
}

// CacheStats reports in-memory tile cache performance.
func (p *TileProxy) CacheStats() CacheStats {
	if p.cache == nil {
		return CacheStats{}
	}
	return p.cache.Stats()
}

// InvalidateStyle drops a style's cached tiles so the next requests refetch
// from upstream, e.g. after the catalog file changed a style's URL.
func (p *TileProxy) InvalidateStyle(key string) {
	if p.cache != nil {
		p.cache.Invalidate(key)
	}
}

func (p *TileProxy) fetchUpstream(ctx context.Context, style Style, z, x, y int) ([]byte, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "basemap: rate limit wait")
		}
	}

	url := expandURL(style.URL, z, x, y)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "basemap: create tile request")
	}
	req.Header.Set("User-Agent", "notam-studio/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "basemap: fetch tile")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("basemap: upstream returned %d for %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "basemap: read tile body")
	}

	zap.L().Debug("basemap: fetched tile", zap.String("url", url), zap.Int("bytes", len(data)))
	return data, nil
}

// expandURL substitutes the slippy-map placeholders. {s} pins to a fixed
// subdomain and {r} (retina suffix) is dropped: the proxy is the only
// client, so spreading load across subdomains buys nothing.
func expandURL(template string, z, x, y int) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(z),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
		"{s}", "a",
		"{r}", "",
	)
	return r.Replace(template)
}

func contentType(format string) string {
	switch format {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	case "", "png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// ServeHTTP handles /{style}/{z}/{x}/{y} tile paths relative to the mount
// point.
func (p *TileProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 {
		http.Error(w, "invalid tile path", http.StatusBadRequest)
		return
	}
	styleKey := parts[0]
	var z, x, y int
	if _, err := fmt.Sscanf(parts[1]+"/"+parts[2]+"/"+parts[3], "%d/%d/%d", &z, &x, &y); err != nil {
		http.Error(w, "invalid tile path", http.StatusBadRequest)
		return
	}

	data, ct, err := p.Fetch(r.Context(), styleKey, z, x, y)
	if err != nil {
		if eris.Is(err, ErrStyleUnknown) {
			http.Error(w, "unknown style", http.StatusNotFound)
			return
		}
		zap.L().Error("basemap: tile fetch failed", zap.Error(err))
		http.Error(w, "upstream fetch failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}
