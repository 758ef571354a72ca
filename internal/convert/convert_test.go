package convert

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonas-p/go-shp"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beetlebugorg/seacharts/internal/features"
	"github.com/beetlebugorg/seacharts/internal/geometry"
	"github.com/beetlebugorg/seacharts/internal/gis"
	"github.com/beetlebugorg/seacharts/internal/observability"
)

const region = "Basisdata_15_More_og_Romsdal_25833_Dybdedata_FGDB"

func square(x0, y0, x1, y1 float64) orb.Polygon {
	return orb.Polygon{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}
}

func seabed(p orb.Polygon, depth any) gis.Record {
	return gis.Record{Geometry: orb.MultiPolygon{p}, Properties: map[string]any{"minimumsdybde": depth}}
}

func fixture() *gis.Memory {
	return gis.NewMemory().
		Add("Dybdeareal",
			seabed(square(10, 10, 20, 20), 0.0),
			seabed(square(30, 30, 40, 40), 4.5),
			seabed(square(90, 90, 150, 150), "12"),
			seabed(square(200, 200, 300, 300), 50.0),
		).
		Add("Landareal", gis.Record{Geometry: square(50, 50, 60, 60)}).
		Add("Torrfall").
		Add("Grunne").
		Add("Skjaer", gis.Record{Geometry: orb.MultiPoint{{5, 5}, {500, 500}}})
}

type harness struct {
	conv   *Converter
	opened int
}

func newHarness(t *testing.T, src gis.Source) *harness {
	h := &harness{}
	h.conv = &Converter{
		Open: func(string) (gis.Source, error) {
			h.opened++
			return src, nil
		},
		CacheDir: filepath.Join(t.TempDir(), "shapefiles"),
		Logger:   observability.Discard(),
		Metrics:  observability.NewMetricsForTesting(),
		Clock:    clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
	}
	return h
}

func request(t *testing.T) Request {
	w, err := geometry.NewWindow(orb.Point{0, 0}, 100, 100)
	require.NoError(t, err)
	return Request{
		Regions:    []string{region},
		GDBDirs:    []string{"/data/unpacked/" + region + "/Basisdata.gdb"},
		Window:     w,
		Categories: features.All(),
		Depths:     features.DepthBins{0, 3, 6, 10},
	}
}

func names(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func TestConvert(t *testing.T) {
	h := newHarness(t, fixture())
	req := request(t)

	res, err := h.conv.Convert(req)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, h.conv.Dir(req), res.Dir)

	assert.Equal(t, []string{"seabed_0m", "seabed_3m", "seabed_10m", "land", "rocks"}, names(res.Manifest.Files))
	for _, f := range res.Manifest.Files {
		for _, ext := range []string{".shp", ".shx", ".dbf"} {
			assert.FileExists(t, filepath.Join(res.Dir, f.Name+ext))
		}
		if f.Category == "seabed" {
			require.NotNil(t, f.Depth)
		} else {
			assert.Nil(t, f.Depth)
		}
	}
	assert.Equal(t, 3.0, *res.Manifest.Files[1].Depth)
	assert.Equal(t, 1, res.Manifest.Files[4].Records, "the rock outside the window is dropped")

	m, err := ReadManifest(res.Dir)
	require.NoError(t, err)
	assert.Equal(t, []string{region}, m.Regions)
	assert.Equal(t, [4]float64{0, 0, 100, 100}, m.Window)
	assert.Equal(t, []float64{0, 3, 6, 10}, m.Depths)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), m.CreatedAt)

	entries, err := os.ReadDir(h.conv.CacheDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary directories are left behind")
}

func TestConvertSkipsValidCache(t *testing.T) {
	h := newHarness(t, fixture())
	req := request(t)

	first, err := h.conv.Convert(req)
	require.NoError(t, err)
	require.Equal(t, 1, h.opened)

	manifest := filepath.Join(first.Dir, ManifestName)
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(manifest, old, old))

	second, err := h.conv.Convert(req)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, 1, h.opened, "a cached conversion opens no container")
	assert.Equal(t, first.Manifest.Files, second.Manifest.Files)

	info, err := os.Stat(manifest)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old))

	req.Force = true
	third, err := h.conv.Convert(req)
	require.NoError(t, err)
	assert.False(t, third.Skipped)
	assert.Equal(t, 2, h.opened)
}

func TestLookup(t *testing.T) {
	h := newHarness(t, fixture())
	req := request(t)

	_, ok, err := h.conv.Lookup(req)
	require.NoError(t, err)
	assert.False(t, ok)

	res, err := h.conv.Convert(req)
	require.NoError(t, err)

	got, ok, err := h.conv.Lookup(req)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Skipped)

	// A missing file invalidates the entry.
	require.NoError(t, os.Remove(filepath.Join(res.Dir, "land.dbf")))
	_, ok, err = h.conv.Lookup(req)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookupMismatch(t *testing.T) {
	h := newHarness(t, fixture())
	req := request(t)

	res, err := h.conv.Convert(req)
	require.NoError(t, err)

	m := res.Manifest
	m.Depths = []float64{0, 5}
	require.NoError(t, WriteManifest(res.Dir, &m))

	_, _, err = h.conv.Lookup(req)
	var mismatch *CacheMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, []string{"depths"}, mismatch.Fields)

	_, err = h.conv.Convert(req)
	assert.True(t, errors.As(err, &mismatch))
}

func TestKey(t *testing.T) {
	req := request(t)
	base := Key(req)
	assert.Len(t, base, 16)

	reordered := req
	reordered.Categories = []features.Category{features.All()[4], features.All()[0], features.All()[1], features.All()[2], features.All()[3]}
	assert.Equal(t, base, Key(reordered), "category order does not change the key")

	deeper := req
	deeper.Depths = features.DepthBins{0, 3, 6, 10, 20}
	assert.NotEqual(t, base, Key(deeper))

	moved := req
	moved.Window, _ = geometry.NewWindow(orb.Point{0.5, 0}, 100, 100)
	assert.NotEqual(t, base, Key(moved))

	simplified := req
	simplified.Tolerance = 2
	assert.NotEqual(t, base, Key(simplified))
}

func TestConvertTolerance(t *testing.T) {
	jagged := orb.Polygon{{{10, 10}, {50, 10.2}, {90, 10}, {90, 90}, {10, 90}, {10, 10}}}
	speck := square(95, 95, 95.5, 95.5)
	src := gis.NewMemory().
		Add("Dybdeareal").
		Add("Landareal", gis.Record{Geometry: orb.MultiPolygon{jagged, speck}}).
		Add("Torrfall").
		Add("Grunne").
		Add("Skjaer")
	h := newHarness(t, src)
	req := request(t)
	req.Tolerance = 1

	res, err := h.conv.Convert(req)
	require.NoError(t, err)
	require.Equal(t, []string{"land"}, names(res.Manifest.Files))
	assert.Equal(t, 1, res.Manifest.Files[0].Records, "shapes below the tolerance are dropped")
	assert.Equal(t, 1.0, res.Manifest.Tolerance)

	r, err := shp.Open(res.Path(res.Manifest.Files[0]))
	require.NoError(t, err)
	defer r.Close()
	require.True(t, r.Next())
	_, shape := r.Shape()
	poly, ok := shape.(*shp.Polygon)
	require.True(t, ok)
	assert.Len(t, poly.Points, 5)

	req.Tolerance = -1
	_, err = h.conv.Convert(req)
	assert.Error(t, err)
}

func TestConvertLayerNotFound(t *testing.T) {
	src := gis.NewMemory().Add("Dybdeareal", seabed(square(10, 10, 20, 20), 1.0))
	h := newHarness(t, src)
	req := request(t)

	_, err := h.conv.Convert(req)
	var notFound *LayerNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "Landareal", notFound.Layer)
	assert.NoDirExists(t, h.conv.Dir(req))
}

func TestConvertMalformed(t *testing.T) {
	tests := []struct {
		name   string
		record gis.Record
	}{
		{"missing depth", gis.Record{Geometry: square(10, 10, 20, 20), Properties: map[string]any{}}},
		{"non-numeric depth", seabed(square(10, 10, 20, 20), "deep")},
		{"line geometry", gis.Record{Geometry: orb.LineString{{0, 0}, {1, 1}}}},
		{"short ring", gis.Record{Geometry: orb.Polygon{{{0, 0}, {1, 1}, {0, 0}}}, Properties: map[string]any{"minimumsdybde": 1.0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := fixture()
			src.Add("Dybdeareal", tt.record)
			h := newHarness(t, src)
			req := request(t)

			_, err := h.conv.Convert(req)
			var convErr *ConversionError
			require.True(t, errors.As(err, &convErr), "got %v", err)
			assert.Equal(t, "Dybdeareal", convErr.Layer)
			assert.NoDirExists(t, h.conv.Dir(req))
		})
	}
}

func TestConvertMergesRegions(t *testing.T) {
	h := newHarness(t, fixture())
	req := request(t)
	req.Regions = []string{region, "Basisdata_46_Vestland_25833_Dybdedata_FGDB"}
	req.GDBDirs = []string{"a.gdb", "b.gdb"}

	res, err := h.conv.Convert(req)
	require.NoError(t, err)
	assert.Equal(t, 2, h.opened)

	for _, f := range res.Manifest.Files {
		if f.Name == "land" {
			assert.Equal(t, 2, f.Records)
		}
	}
	assert.Equal(t, []string{"Basisdata_15_More_og_Romsdal_25833_Dybdedata_FGDB", "Basisdata_46_Vestland_25833_Dybdedata_FGDB"}, res.Manifest.Regions)
}
