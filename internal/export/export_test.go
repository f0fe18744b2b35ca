package export

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avgeo/notam-studio/internal/config"
	"github.com/avgeo/notam-studio/internal/model"
	"github.com/avgeo/notam-studio/internal/store"
	"github.com/avgeo/notam-studio/internal/viewport"
)

type fakeRenderer struct {
	mu    sync.Mutex
	calls int
	last  Request
	png   []byte
	err   error
	block chan struct{}
}

func (f *fakeRenderer) Render(ctx context.Context, req Request) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.last = req
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.png, f.err
}

var exportCfg = config.ExportConfig{PixelRatio: 3, TimeoutSecs: 60}

func newScene(t *testing.T) (*store.Store, *viewport.Synchronizer, model.Record) {
	t.Helper()
	st := store.New()
	vp := viewport.New(st, config.ViewportConfig{PaddingPx: 50, MaxZoom: 8})
	rec := model.NewRecord(model.Draft{
		RawText: "area",
		Geometry: model.Geometry{
			Type: model.GeometryArea,
			Coordinates: []model.LatLng{
				{Lat: 0, Lng: 0}, {Lat: 0, Lng: 10}, {Lat: 10, Lng: 10},
			},
		},
	})
	st.Add([]model.Record{rec})
	return st, vp, rec
}

func TestExportSnapshotsCurrentScene(t *testing.T) {
	t.Parallel()

	st, vp, rec := newScene(t)
	st.Select(rec.ID)

	r := &fakeRenderer{png: []byte("png-bytes")}
	svc := NewService(r, st, vp, nil, exportCfg)

	png, err := svc.Export(context.Background(), "dark-matter")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), png)

	assert.Equal(t, 3, r.last.PixelRatio)
	assert.Equal(t, "dark-matter", r.last.Style)
	require.NotNil(t, r.last.Overlays)
	assert.Len(t, r.last.Overlays.Features, 1)
	// Pending camera fit frames the snapshot.
	assert.Equal(t, viewport.BBox{MinLng: 0, MinLat: 0, MaxLng: 10, MaxLat: 10}, r.last.Bounds)
}

func TestExportBoundsFallBackToVisibleEnvelope(t *testing.T) {
	t.Parallel()

	st, vp, _ := newScene(t)
	r := &fakeRenderer{png: []byte("png")}
	svc := NewService(r, st, vp, nil, exportCfg)

	_, err := svc.Export(context.Background(), "osm")
	require.NoError(t, err)
	assert.Equal(t, viewport.BBox{MinLng: 0, MinLat: 0, MaxLng: 10, MaxLat: 10}, r.last.Bounds)
}

func TestExportEmptySceneFramesWorld(t *testing.T) {
	t.Parallel()

	st := store.New()
	vp := viewport.New(st, config.ViewportConfig{PaddingPx: 50, MaxZoom: 8})
	r := &fakeRenderer{png: []byte("png")}
	svc := NewService(r, st, vp, nil, exportCfg)

	_, err := svc.Export(context.Background(), "osm")
	require.NoError(t, err)
	assert.Equal(t, worldBounds, r.last.Bounds)
}

func TestExportFailureLeavesSessionUntouched(t *testing.T) {
	t.Parallel()

	st, vp, rec := newScene(t)
	st.Select(rec.ID)
	stateBefore, fitBefore := vp.Snapshot()

	r := &fakeRenderer{err: errors.New("browser crashed")}
	svc := NewService(r, st, vp, nil, exportCfg)

	_, err := svc.Export(context.Background(), "osm")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrExportFailed))

	assert.Equal(t, 1, st.Len())
	assert.Equal(t, rec.ID, st.Selected())
	stateAfter, fitAfter := vp.Snapshot()
	assert.Equal(t, stateBefore, stateAfter)
	assert.Equal(t, fitBefore, fitAfter)
}

func TestExportEmptyImageIsFailure(t *testing.T) {
	t.Parallel()

	st, vp, _ := newScene(t)
	r := &fakeRenderer{png: nil}
	svc := NewService(r, st, vp, nil, exportCfg)

	_, err := svc.Export(context.Background(), "osm")
	assert.True(t, eris.Is(err, ErrExportFailed))
}

func TestConcurrentExportsCoalesce(t *testing.T) {
	t.Parallel()

	st, vp, _ := newScene(t)
	r := &fakeRenderer{png: []byte("png"), block: make(chan struct{})}
	svc := NewService(r, st, vp, nil, exportCfg)

	var done sync.WaitGroup
	var successes atomic.Int64
	for i := 0; i < 4; i++ {
		done.Add(1)
		go func() {
			defer done.Done()
			if _, err := svc.Export(context.Background(), "osm"); err == nil {
				successes.Add(1)
			}
		}()
	}

	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.calls == 1
	}, time.Second, 5*time.Millisecond)
	// Give the remaining goroutines time to join the in-flight capture.
	time.Sleep(50 * time.Millisecond)
	close(r.block)
	done.Wait()

	r.mu.Lock()
	calls := r.calls
	r.mu.Unlock()
	assert.Equal(t, 1, calls, "concurrent triggers share one capture")
	assert.Equal(t, int64(4), successes.Load())
}

func TestHTTPRenderer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/render", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("fake-png"))
	}))
	defer srv.Close()

	r := NewHTTPRenderer(srv.URL, time.Second)
	png, err := r.Render(context.Background(), Request{Style: "osm", PixelRatio: 3})
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-png"), png)
}

func TestHTTPRendererUpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no browser", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewHTTPRenderer(srv.URL, time.Second)
	_, err := r.Render(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
