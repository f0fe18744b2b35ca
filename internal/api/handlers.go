package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/avgeo/notam-studio/internal/export"
	"github.com/avgeo/notam-studio/internal/model"
	"github.com/avgeo/notam-studio/internal/render"
)

// recognize runs only the OCR step so a client can show the recognized
// text for verification before committing to a parse.
func (s *Server) recognize(w http.ResponseWriter, r *http.Request) {
	image, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart image upload required")
		return
	}

	text, err := s.pipeline.Recognize(r.Context(), image)
	if err != nil {
		pipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// ingestNotice accepts either a JSON body with notice text or a multipart
// image, runs the pipeline, and returns the new records.
func (s *Server) ingestNotice(w http.ResponseWriter, r *http.Request) {
	var (
		text    string
		records []model.Record
		err     error
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		var image []byte
		image, err = readUpload(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "multipart image upload required")
			return
		}
		text, records, err = s.pipeline.IngestImage(r.Context(), image)
	} else {
		var payload struct {
			Text string `json:"text"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request payload")
			return
		}
		text = payload.Text
		records, err = s.pipeline.IngestText(r.Context(), payload.Text)
	}

	if err != nil {
		pipelineError(w, err)
		return
	}

	if records == nil {
		records = []model.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"text":    text,
		"records": records,
	})
}

func (s *Server) listRecords(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"records":  s.store.All(),
		"selected": s.store.Selected(),
	})
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.store.Get(id); !ok {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	s.store.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleVisibility(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.store.Get(id); !ok {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	s.store.ToggleVisibility(id)

	rec, _ := s.store.Get(id)
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) selectRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.store.Get(id); !ok {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	s.store.Select(id)
	w.WriteHeader(http.StatusNoContent)
}

// selectAt hit-tests a map click and selects the topmost hit. A miss
// leaves the selection alone.
func (s *Server) selectAt(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(w, http.StatusBadRequest, "lat and lng query parameters required")
		return
	}

	hits := s.index.HitTest(lat, lng)
	if len(hits) > 0 {
		s.store.Select(hits[0])
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"selected": s.store.Selected(),
	})
}

func (s *Server) overlays(w http.ResponseWriter, _ *http.Request) {
	fc := render.FeatureCollection(render.Derive(s.store.All()))
	writeJSON(w, http.StatusOK, fc)
}

func (s *Server) viewportState(w http.ResponseWriter, _ *http.Request) {
	state, fit := s.viewport.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"state": state,
		"fit":   fit,
	})
}

func (s *Server) acknowledgeViewport(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Generation uint64 `json:"generation"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	s.viewport.Acknowledge(payload.Generation)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) pipelineStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": s.pipeline.Status()})
}

func (s *Server) basemaps(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog)
}

func (s *Server) boundaries(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.boundary)
}

func (s *Server) tileCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tiles.CacheStats())
}

func (s *Server) invalidateTileCache(w http.ResponseWriter, r *http.Request) {
	style := chi.URLParam(r, "style")
	if _, ok := s.catalog.Get(style); !ok {
		writeError(w, http.StatusNotFound, "unknown basemap style")
		return
	}
	s.tiles.InvalidateStyle(style)
	w.WriteHeader(http.StatusNoContent)
}

// exportSnapshot captures a PNG of the current scene. The style defaults
// to the catalog's default layer.
func (s *Server) exportSnapshot(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Style string `json:"style"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request payload")
			return
		}
	}

	style := payload.Style
	if style == "" {
		style = s.defaultStyle()
	} else if _, ok := s.catalog.Get(style); !ok {
		writeError(w, http.StatusBadRequest, "unknown basemap style")
		return
	}

	png, err := s.export.Export(r.Context(), style)
	if err != nil {
		if eris.Is(err, export.ErrExportFailed) {
			writeError(w, http.StatusBadGateway, "snapshot capture failed")
			return
		}
		zap.L().Error("api: export failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="map-snapshot.png"`)
	_, _ = w.Write(png)
}

func (s *Server) defaultStyle() string {
	for _, st := range s.catalog.Styles {
		if st.Default {
			return st.Key
		}
	}
	if len(s.catalog.Styles) > 0 {
		return s.catalog.Styles[0].Key
	}
	return ""
}
