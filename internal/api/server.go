// Package api exposes the ingestion session over HTTP: notice intake,
// record management, overlay and viewport state for the map client, the
// tile proxy, and snapshot export.
package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/avgeo/notam-studio/internal/basemap"
	"github.com/avgeo/notam-studio/internal/export"
	"github.com/avgeo/notam-studio/internal/ingest"
	"github.com/avgeo/notam-studio/internal/store"
	"github.com/avgeo/notam-studio/internal/viewport"
)

// maxUploadBytes caps notice image uploads.
const maxUploadBytes = 20 << 20

// Server holds the wired session components behind the HTTP surface.
type Server struct {
	store    *store.Store
	index    *store.Index
	pipeline *ingest.Pipeline
	viewport *viewport.Synchronizer
	catalog  basemap.Catalog
	boundary *basemap.Boundary
	tiles    *basemap.TileProxy
	export   *export.Service
}

// NewServer wires the HTTP surface over the session components.
func NewServer(
	st *store.Store,
	idx *store.Index,
	pipeline *ingest.Pipeline,
	vp *viewport.Synchronizer,
	catalog basemap.Catalog,
	boundary *basemap.Boundary,
	tiles *basemap.TileProxy,
	exporter *export.Service,
) *Server {
	return &Server{
		store:    st,
		index:    idx,
		pipeline: pipeline,
		viewport: vp,
		catalog:  catalog,
		boundary: boundary,
		tiles:    tiles,
		export:   exporter,
	}
}

// Routes configures the full route tree.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
	)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/recognize", s.recognize)
		r.Post("/ingest", s.ingestNotice)

		r.Get("/records", s.listRecords)
		r.Delete("/records/{id}", s.deleteRecord)
		r.Post("/records/{id}/visibility", s.toggleVisibility)
		r.Post("/records/{id}/select", s.selectRecord)
		r.Get("/select", s.selectAt)

		r.Get("/overlays", s.overlays)
		r.Get("/viewport", s.viewportState)
		r.Post("/viewport/ack", s.acknowledgeViewport)
		r.Get("/status", s.pipelineStatus)

		r.Get("/basemaps", s.basemaps)
		r.Get("/boundaries", s.boundaries)
		r.Get("/tilecache", s.tileCacheStats)
		r.Delete("/tilecache/{style}", s.invalidateTileCache)

		r.Post("/export", s.exportSnapshot)
	})

	r.Handle("/tiles/*", http.StripPrefix("/tiles", s.tiles))

	return r
}

// readUpload pulls the notice image out of a multipart request. Both
// "image" and "file" field names are accepted.
func readUpload(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, eris.Wrap(err, "api: parse multipart form")
	}
	for _, field := range []string{"image", "file"} {
		f, _, err := r.FormFile(field)
		if err != nil {
			continue
		}
		defer func() { _ = f.Close() }()
		data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		if err != nil {
			return nil, eris.Wrap(err, "api: read upload")
		}
		return data, nil
	}
	return nil, eris.New("api: no image field in form")
}

// pipelineError maps ingestion failures onto HTTP statuses: a busy
// pipeline is a conflict, collaborator failures are bad gateways.
func pipelineError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, ingest.ErrBusy):
		writeError(w, http.StatusConflict, "an ingestion is already in flight")
	case eris.Is(err, ingest.ErrOCRFailed):
		writeError(w, http.StatusBadGateway, "image recognition failed")
	case eris.Is(err, ingest.ErrParseFailed):
		writeError(w, http.StatusBadGateway, "notice parsing failed")
	default:
		zap.L().Error("api: ingestion failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "ingestion failed")
	}
}
