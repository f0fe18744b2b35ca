package parseapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Success(t *testing.T) {
	t.Parallel()

	radius := 5.0
	want := parseResponse{
		Results: []Entry{
			{
				RawText: "A0012/25 NOTAMN ...",
				Geometry: Geometry{
					Type:        "circle",
					Coordinates: [][]float64{{10, 20}},
					RadiusNM:    &radius,
				},
				Altitude:    Altitude{Lower: "SFC", Upper: "FL450"},
				Description: "GUN FIRING",
				IDs:         []string{"A0012/25"},
			},
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/parse", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req parseRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "A0012/25 NOTAMN ...", req.Text)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	got, err := client.Parse(context.Background(), "A0012/25 NOTAMN ...")

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "circle", got[0].Geometry.Type)
	require.NotNil(t, got[0].Geometry.RadiusNM)
	assert.InDelta(t, 5.0, *got[0].Geometry.RadiusNM, 0.001)
	assert.Equal(t, "SFC", got[0].Altitude.Lower)
	assert.Equal(t, []string{"A0012/25"}, got[0].IDs)
}

func TestParse_EmptyResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	got, err := client.Parse(context.Background(), "nothing here")

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParse_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Parse(context.Background(), "text")

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestParse_ClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad input"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Parse(context.Background(), "text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestParse_MalformedResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": not json`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Parse(context.Background(), "text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}
