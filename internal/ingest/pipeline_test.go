package ingest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avgeo/notam-studio/internal/model"
	"github.com/avgeo/notam-studio/internal/store"
	"github.com/avgeo/notam-studio/pkg/parseapi"
)

type fakeParser struct {
	entries []parseapi.Entry
	err     error
	calls   atomic.Int32
	block   chan struct{} // when non-nil, Parse waits until closed
}

func (f *fakeParser) Parse(ctx context.Context, text string) ([]parseapi.Entry, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	return f.entries, f.err
}

type fakeRecognizer struct {
	text  string
	err   error
	calls atomic.Int32
}

func (f *fakeRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	f.calls.Add(1)
	return f.text, f.err
}

func circleEntry(id string) parseapi.Entry {
	r := 5.0
	return parseapi.Entry{
		RawText: id + " raw",
		Geometry: parseapi.Geometry{
			Type:        "circle",
			Coordinates: [][]float64{{10, 20}},
			RadiusNM:    &r,
		},
		Altitude: parseapi.Altitude{Lower: "SFC", Upper: "UNL"},
		IDs:      []string{id},
	}
}

func TestIngestText_EmptyInputIsNoOp(t *testing.T) {
	t.Parallel()

	parser := &fakeParser{}
	st := store.New()
	p := New(parser, &fakeRecognizer{}, st)

	for _, input := range []string{"", "   ", "\n\t  \n"} {
		records, err := p.IngestText(context.Background(), input)
		require.NoError(t, err)
		assert.Nil(t, records)
	}

	assert.Equal(t, int32(0), parser.calls.Load(), "no collaborator call for empty input")
	assert.Equal(t, 0, st.Len())
	assert.Empty(t, p.Status())
}

func TestIngestText_AppendsInResponseOrderAndSelectsFirst(t *testing.T) {
	t.Parallel()

	parser := &fakeParser{entries: []parseapi.Entry{
		circleEntry("A0001/25"), circleEntry("A0002/25"), circleEntry("A0003/25"),
	}}
	st := store.New()
	p := New(parser, &fakeRecognizer{}, st)

	records, err := p.IngestText(context.Background(), "three notices")
	require.NoError(t, err)
	require.Len(t, records, 3)

	all := st.All()
	require.Len(t, all, 3)
	ids := map[string]bool{}
	for i, r := range all {
		assert.Equal(t, records[i].ID, r.ID)
		assert.False(t, ids[r.ID])
		ids[r.ID] = true
	}
	assert.Equal(t, []string{"A0001/25"}, all[0].Identifiers)
	assert.Equal(t, records[0].ID, st.Selected())
	assert.Equal(t, "done: 3", p.Status())
}

func TestIngestText_ZeroResultsLeaveSelectionUnchanged(t *testing.T) {
	t.Parallel()

	st := store.New()
	existing := model.NewRecord(model.Draft{RawText: "old"})
	st.Add([]model.Record{existing})
	st.Select(existing.ID)

	p := New(&fakeParser{}, &fakeRecognizer{}, st)
	records, err := p.IngestText(context.Background(), "no geometry here")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, existing.ID, st.Selected())
	assert.Equal(t, "done: 0", p.Status())
}

func TestIngestText_ParseFailureAddsNothing(t *testing.T) {
	t.Parallel()

	st := store.New()
	p := New(&fakeParser{err: errors.New("connection refused")}, &fakeRecognizer{}, st)

	_, err := p.IngestText(context.Background(), "some text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParseFailed))
	assert.Equal(t, 0, st.Len())
	assert.Empty(t, st.Selected())
	assert.Equal(t, "failed: parsing", p.Status())
}

func TestIngestImage_OCRFailureSkipsParsing(t *testing.T) {
	t.Parallel()

	parser := &fakeParser{}
	st := store.New()
	p := New(parser, &fakeRecognizer{err: errors.New("unreadable")}, st)

	_, _, err := p.IngestImage(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOCRFailed))
	assert.Equal(t, int32(0), parser.calls.Load())
	assert.Equal(t, 0, st.Len())
	assert.Equal(t, "failed: image recognition", p.Status())
}

func TestIngestImage_Success(t *testing.T) {
	t.Parallel()

	parser := &fakeParser{entries: []parseapi.Entry{circleEntry("B0100/25")}}
	st := store.New()
	p := New(parser, &fakeRecognizer{text: "B0100/25 NOTAMN ..."}, st)

	text, records, err := p.IngestImage(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "B0100/25 NOTAMN ...", text)
	require.Len(t, records, 1)
	assert.Equal(t, records[0].ID, st.Selected())
}

func TestRecognize_DoesNotTouchStore(t *testing.T) {
	t.Parallel()

	st := store.New()
	p := New(&fakeParser{}, &fakeRecognizer{text: "recognized"}, st)

	text, err := p.Recognize(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "recognized", text)
	assert.Equal(t, 0, st.Len())
}

func TestIngest_SecondTriggerRejectedWhilePending(t *testing.T) {
	t.Parallel()

	parser := &fakeParser{
		entries: []parseapi.Entry{circleEntry("C0001/25")},
		block:   make(chan struct{}),
	}
	st := store.New()
	p := New(parser, &fakeRecognizer{}, st)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := p.IngestText(context.Background(), "first")
		assert.NoError(t, err)
	}()

	// Wait for the first ingestion to reach the blocked parse call.
	require.Eventually(t, func() bool { return parser.calls.Load() == 1 },
		time.Second, time.Millisecond)

	_, err := p.IngestText(context.Background(), "second")
	assert.True(t, errors.Is(err, ErrBusy))
	assert.Equal(t, 0, st.Len(), "no interleaved store mutation")

	close(parser.block)
	<-done
	assert.Equal(t, 1, st.Len())
}

func TestDraftFromEntry_UnknownTag(t *testing.T) {
	t.Parallel()

	d := draftFromEntry(parseapi.Entry{Geometry: parseapi.Geometry{Type: "blob"}})
	assert.Equal(t, model.GeometryUnknown, d.Geometry.Type)

	d = draftFromEntry(parseapi.Entry{Geometry: parseapi.Geometry{
		Type:        "polygon",
		Coordinates: [][]float64{{0, 0}, {0, 10}, {10, 10}},
	}})
	assert.Equal(t, model.GeometryArea, d.Geometry.Type)
	assert.Len(t, d.Geometry.Coordinates, 3)
}
