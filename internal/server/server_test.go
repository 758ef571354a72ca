package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beetlebugorg/seacharts/internal/enctest"
	"github.com/beetlebugorg/seacharts/internal/observability"
)

func newTestServer(t *testing.T) http.Handler {
	gin.SetMode(gin.TestMode)
	chart := enctest.New(t, enctest.Source())

	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	m.ArchiveExtracted()
	return New(chart, observability.Discard(), reg).Handler()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(t), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLayers(t *testing.T) {
	rec := get(t, newTestServer(t), "/layers")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Projection string         `json:"projection"`
		Window     [4]float64     `json:"window"`
		Layers     []layerSummary `json:"layers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "EUREF89 UTM sone 33, 2d", body.Projection)
	assert.Equal(t, enctest.Origin[0]+enctest.Size, body.Window[2])

	names := map[string]int{}
	for _, l := range body.Layers {
		names[l.Name] = l.Features
	}
	assert.Equal(t, map[string]int{"seabed": 2, "land": 1, "shore": 1, "shallows": 1, "rocks": 1}, names)
}

func TestLayerGeoJSON(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		path string
		want int
	}{
		{"/layers/seabed", 2},
		{"/layers/ocean", 2},
		{"/layers/Surface", 2},
		{"/layers/land", 1},
		{"/layers/rocks", 1},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, h, tt.path)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

			fc, err := geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
			require.NoError(t, err)
			assert.Len(t, fc.Features, tt.want)
		})
	}

	rec := get(t, h, "/layers/kelp")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHazards(t *testing.T) {
	h := newTestServer(t)

	rec := get(t, h, "/hazards?depth=5")
	require.Equal(t, http.StatusOK, rec.Code)
	fc, err := geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
	require.NoError(t, err)
	// land, shore and the 0m bin
	assert.Len(t, fc.Features, 3)

	rec = get(t, h, "/hazards?depth=deep")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestObstacles(t *testing.T) {
	rec := get(t, newTestServer(t), "/obstacles")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Obstacles [][][2]float64 `json:"obstacles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Obstacles, 1)
	assert.GreaterOrEqual(t, len(body.Obstacles[0]), 4)
}

func TestMetrics(t *testing.T) {
	rec := get(t, newTestServer(t), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "seacharts_archives_extracted_total 1")
}
