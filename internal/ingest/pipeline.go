// Package ingest orchestrates the ingestion pipeline: optional image
// recognition, the remote parse call, normalization into records, and the
// append-plus-auto-select into the session store.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/avgeo/notam-studio/internal/model"
	"github.com/avgeo/notam-studio/internal/ocr"
	"github.com/avgeo/notam-studio/internal/store"
	"github.com/avgeo/notam-studio/pkg/parseapi"
)

// Recoverable pipeline failures. All abort the operation, surface a status
// message, and leave the store exactly as it was.
var (
	ErrOCRFailed   = eris.New("ingest: image recognition failed")
	ErrParseFailed = eris.New("ingest: notice parsing failed")
	ErrBusy        = eris.New("ingest: an ingestion is already in flight")
)

// Pipeline turns raw input (image or text) into zero or more records in the
// session store. Only one operation may be in flight at a time; a second
// trigger is rejected with ErrBusy rather than interleaved.
type Pipeline struct {
	parser     parseapi.Client
	recognizer ocr.Recognizer
	store      *store.Store

	inflight sync.Mutex
	status   atomic.Value // string
}

// New creates a pipeline writing into the given store.
func New(parser parseapi.Client, recognizer ocr.Recognizer, st *store.Store) *Pipeline {
	p := &Pipeline{parser: parser, recognizer: recognizer, store: st}
	p.status.Store("")
	return p
}

// Status returns the advisory status message of the most recent pipeline
// phase: "recognizing", "parsing", "done: <count>", or "failed: <reason>".
// It carries no control semantics.
func (p *Pipeline) Status() string {
	return p.status.Load().(string)
}

func (p *Pipeline) setStatus(s string) {
	p.status.Store(s)
}

// Recognize runs only the OCR step so the caller can show the recognized
// text for verification before parsing. The store is never touched.
func (p *Pipeline) Recognize(ctx context.Context, image []byte) (string, error) {
	if !p.inflight.TryLock() {
		return "", ErrBusy
	}
	defer p.inflight.Unlock()

	return p.recognize(ctx, image)
}

func (p *Pipeline) recognize(ctx context.Context, image []byte) (string, error) {
	p.setStatus("recognizing")
	text, err := p.recognizer.Recognize(ctx, image)
	if err != nil {
		p.setStatus("failed: image recognition")
		zap.L().Warn("ocr failed", zap.Error(err))
		return "", eris.Wrap(ErrOCRFailed, err.Error())
	}
	return text, nil
}

// IngestText parses notice text and appends the resulting records.
// Whitespace-only input is a no-op: no collaborator call is made and the
// store is left unchanged.
func (p *Pipeline) IngestText(ctx context.Context, text string) ([]model.Record, error) {
	if !p.inflight.TryLock() {
		return nil, ErrBusy
	}
	defer p.inflight.Unlock()

	return p.ingestText(ctx, text)
}

// IngestImage recognizes the image, then parses the recognized text. The
// recognized text is returned alongside the records so the editing surface
// can display it; on OCR failure parsing is never attempted.
func (p *Pipeline) IngestImage(ctx context.Context, image []byte) (string, []model.Record, error) {
	if !p.inflight.TryLock() {
		return "", nil, ErrBusy
	}
	defer p.inflight.Unlock()

	text, err := p.recognize(ctx, image)
	if err != nil {
		return "", nil, err
	}
	records, err := p.ingestText(ctx, text)
	return text, records, err
}

func (p *Pipeline) ingestText(ctx context.Context, text string) ([]model.Record, error) {
	text = strings.TrimSpace(norm.NFC.String(text))
	if text == "" {
		return nil, nil
	}

	p.setStatus("parsing")
	entries, err := p.parser.Parse(ctx, text)
	if err != nil {
		p.setStatus("failed: parsing")
		zap.L().Warn("parse failed", zap.Error(err))
		return nil, eris.Wrap(ErrParseFailed, err.Error())
	}

	records := make([]model.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, model.NewRecord(draftFromEntry(e)))
	}

	// Appended as one batch, in response order. Selection moves to the
	// first new record so the viewport fits it; zero results leave the
	// selection alone.
	p.store.Add(records)
	if len(records) > 0 {
		p.store.Select(records[0].ID)
	}

	p.setStatus(fmt.Sprintf("done: %d", len(records)))
	zap.L().Info("ingested notice text",
		zap.Int("records", len(records)),
		zap.Int("text_len", len(text)),
	)
	return records, nil
}

// draftFromEntry maps a parse-service entry onto the record model. The wire
// tag "polygon" is the model's area variant; unrecognized tags become
// unknown via canonicalization.
func draftFromEntry(e parseapi.Entry) model.Draft {
	coords := make([]model.LatLng, 0, len(e.Geometry.Coordinates))
	for _, c := range e.Geometry.Coordinates {
		if len(c) < 2 {
			continue
		}
		coords = append(coords, model.LatLng{Lat: c[0], Lng: c[1]})
	}

	var typ model.GeometryType
	switch e.Geometry.Type {
	case "polygon", "area":
		typ = model.GeometryArea
	case "circle":
		typ = model.GeometryCircle
	case "line":
		typ = model.GeometryLine
	case "point":
		typ = model.GeometryPoint
	default:
		typ = model.GeometryUnknown
	}

	return model.Draft{
		RawText:       e.RawText,
		Identifiers:   e.IDs,
		Geometry:      model.Geometry{Type: typ, Coordinates: coords, RadiusNM: e.Geometry.RadiusNM},
		AltitudeLower: e.Altitude.Lower,
		AltitudeUpper: e.Altitude.Upper,
		Description:   e.Description,
	}
}
