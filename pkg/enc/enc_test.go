package enc

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beetlebugorg/seacharts/internal/gis"
	"github.com/beetlebugorg/seacharts/internal/observability"
)

const moreOgRomsdal = "Basisdata_15_More_og_Romsdal_25833_Dybdedata_FGDB"

var origin = orb.Point{38100, 6948700}

func square(x0, y0, x1, y1 float64) orb.Polygon {
	x0, x1 = origin[0]+x0, origin[0]+x1
	y0, y1 = origin[1]+y0, origin[1]+y1
	return orb.Polygon{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}
}

func seabed(p orb.Polygon, depth float64) gis.Record {
	return gis.Record{Geometry: orb.MultiPolygon{p}, Properties: map[string]any{"minimumsdybde": depth}}
}

func fixtureSource() *gis.Memory {
	return gis.NewMemory().
		Add("Dybdeareal",
			seabed(square(0, 0, 400, 500), 1),
			seabed(square(400, 0, 1000, 500), 4),
			seabed(square(0, 500, 600, 1000), 15),
			seabed(square(600, 500, 1500, 1500), 60),
			seabed(square(2000, 2000, 3000, 3000), 200),
		).
		Add("Landareal", gis.Record{Geometry: square(800, 800, 1200, 1200)}).
		Add("Torrfall", gis.Record{Geometry: square(700, 700, 800, 800)}).
		Add("Grunne", gis.Record{Geometry: orb.MultiPoint{{origin[0] + 10, origin[1] + 10}}}).
		Add("Skjaer", gis.Record{Geometry: orb.MultiPoint{{origin[0] + 20, origin[1] + 20}, {origin[0] - 20, origin[1]}}})
}

type fixture struct {
	dataDir string
	opened  int
	source  gis.Source
	metrics *Metrics
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		dataDir: t.TempDir(),
		source:  fixtureSource(),
		metrics: observability.NewMetricsForTesting(),
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("Basisdata.gdb/gdb")
	require.NoError(t, err)
	_, err = w.Write([]byte("gdb"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	external := filepath.Join(f.dataDir, "external")
	require.NoError(t, os.MkdirAll(external, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(external, moreOgRomsdal+".zip"), buf.Bytes(), 0o644))
	return f
}

func (f *fixture) options() Options {
	o := origin
	return Options{
		Origin:  &o,
		Size:    [2]float64{1000, 1000},
		Regions: []string{"Møre og Romsdal"},
		DataDir: f.dataDir,
		Opener: func(string) (Source, error) {
			f.opened++
			return f.source, nil
		},
		Logger:  observability.Discard(),
		Metrics: f.metrics,
		Cache:   NewCache(0),
	}
}

func TestNew(t *testing.T) {
	f := newFixture(t)
	opts := f.options()
	opts.NewData = true

	chart, err := New(opts)
	require.NoError(t, err)

	assert.Contains(t, chart.SupportedFeatures(), "land")
	assert.Contains(t, chart.SupportedFeatures(), "seabed")
	assert.Equal(t, []string{"Møre og Romsdal"}, chart.Regions())
	assert.Equal(t, origin, chart.Origin())
	assert.Equal(t, orb.Point{origin[0] + 500, origin[1] + 500}, chart.Center())

	seabed := chart.Ocean.Seabed()
	require.Len(t, seabed, 4)
	var names []string
	for _, s := range seabed {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"seabed_0m", "seabed_3m", "seabed_10m", "seabed_50m"}, names)

	require.Len(t, chart.Surface.Land(), 1)
	require.Len(t, chart.Surface.Shore(), 1)
	require.Len(t, chart.Details.Shallows(), 1)
	require.Len(t, chart.Details.Rocks(), 1)
	assert.Equal(t, []orb.Point{{origin[0] + 20, origin[1] + 20}}, chart.Details.Rocks()[0].Coordinates())

	c, ok := chart.Collection("land")
	require.True(t, ok)
	assert.Equal(t, "surface", c.Name())
	_, ok = chart.Collection("kelp")
	assert.False(t, ok)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ArchivesExtracted))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Conversions.WithLabelValues("converted")))
}

func TestNewDepthPartition(t *testing.T) {
	f := newFixture(t)
	chart, err := New(f.options())
	require.NoError(t, err)

	depths := chart.Depths()
	var total float64
	for _, s := range chart.Ocean.Seabed() {
		d, ok := s.Depth()
		require.True(t, ok)
		assert.Contains(t, depths, d, "depth is a bin lower bound")
		total += s.Area()
	}
	// The four seabed areas inside the window tile it without overlap.
	assert.InDelta(t, 1000*1000, total, 1e-6)

	_, ok := chart.Surface.Land()[0].Depth()
	assert.False(t, ok)
}

func TestNewWindowing(t *testing.T) {
	f := newFixture(t)
	chart, err := New(f.options())
	require.NoError(t, err)

	b := chart.Window()
	for _, feat := range chart.Features() {
		for _, p := range feat.Coordinates() {
			assert.True(t, b.Contains(p), "%s: %v outside %v", feat.Name(), p, b)
		}
	}
	// Land straddles the window edge and is clipped to a quarter.
	assert.InDelta(t, 200*200, chart.Surface.Land()[0].Area(), 1e-6)
}

func TestNewSecondRunReusesCache(t *testing.T) {
	f := newFixture(t)
	first, err := New(f.options())
	require.NoError(t, err)
	require.Equal(t, 1, f.opened)
	assert.False(t, first.Cached())

	// Remove the archive: a second run must not need it.
	require.NoError(t, os.RemoveAll(filepath.Join(f.dataDir, "external")))
	before := snapshot(t, f.dataDir)

	second, err := New(f.options())
	require.NoError(t, err)
	assert.True(t, second.Cached())
	assert.Equal(t, 1, f.opened, "no container is opened on a cached run")
	assert.Equal(t, before, snapshot(t, f.dataDir), "a cached run writes nothing")

	assert.Equal(t, first.Ocean.Len(), second.Ocean.Len())
	assert.Equal(t, first.Surface.Len(), second.Surface.Len())
	assert.Equal(t, first.Details.Len(), second.Details.Len())
	assert.Equal(t, coordinateTotal(first), coordinateTotal(second))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ArchivesExtracted))
}

func TestNewDataRebuilds(t *testing.T) {
	f := newFixture(t)
	_, err := New(f.options())
	require.NoError(t, err)

	opts := f.options()
	opts.NewData = true
	chart, err := New(opts)
	require.NoError(t, err)
	assert.False(t, chart.Cached())
	assert.Equal(t, 2, f.opened)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.ArchivesExtracted))
}

func TestFeatureGeometryIsolated(t *testing.T) {
	f := newFixture(t)
	cache := NewCache(64 << 20)

	opts := f.options()
	opts.Cache = cache
	first, err := New(opts)
	require.NoError(t, err)

	land := first.Surface.Land()[0]
	want := land.Geometry().(orb.MultiPolygon)[0][0][0]
	wantArea := land.Area()

	edited := land.Geometry().(orb.MultiPolygon)
	edited[0][0][0] = orb.Point{0, 0}
	assert.Equal(t, want, land.Geometry().(orb.MultiPolygon)[0][0][0])

	opts = f.options()
	opts.Cache = cache
	second, err := New(opts)
	require.NoError(t, err)
	got := second.Surface.Land()[0]
	assert.Equal(t, want, got.Geometry().(orb.MultiPolygon)[0][0][0])
	assert.Equal(t, wantArea, got.Area())
}

func TestNewUnknownRegion(t *testing.T) {
	f := newFixture(t)
	opts := f.options()
	opts.Regions = []string{"Atlantis"}
	before := snapshot(t, f.dataDir)

	chart, err := New(opts)
	assert.Nil(t, chart)
	var unknown *UnknownRegionError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "Atlantis", unknown.Name)
	assert.Equal(t, before, snapshot(t, f.dataDir))
}

func TestNewMissingArchive(t *testing.T) {
	f := newFixture(t)
	opts := f.options()
	opts.Regions = []string{"Nordland"}

	_, err := New(opts)
	var notFound *ArchiveNotFoundError
	require.True(t, errors.As(err, &notFound))
}

func TestNewLayerNotFound(t *testing.T) {
	f := newFixture(t)
	f.source = gis.NewMemory().Add("Dybdeareal")

	_, err := New(f.options())
	var notFound *LayerNotFoundError
	require.True(t, errors.As(err, &notFound))
}

func TestNewCategories(t *testing.T) {
	f := newFixture(t)
	opts := f.options()
	opts.Categories = []string{"Land", "rocks"}

	chart, err := New(opts)
	require.NoError(t, err)
	assert.Zero(t, chart.Ocean.Len())
	assert.Equal(t, 1, chart.Surface.Len())
	assert.Equal(t, 1, chart.Details.Len())
}

func TestNewCenter(t *testing.T) {
	f := newFixture(t)
	opts := f.options()
	center := orb.Point{origin[0] + 500, origin[1] + 500}
	opts.Origin = nil
	opts.Center = &center

	chart, err := New(opts)
	require.NoError(t, err)
	assert.Equal(t, origin, chart.Origin())
}

func TestInvalidOptions(t *testing.T) {
	p := orb.Point{1, 2}
	tests := []struct {
		name   string
		mutate func(o *Options)
		field  string
	}{
		{"origin and center", func(o *Options) { o.Center = &p }, "origin"},
		{"negative size", func(o *Options) { o.Size = [2]float64{-1, 100} }, "size"},
		{"unsorted depths", func(o *Options) { o.Depths = []float64{10, 5} }, "depths"},
		{"unknown category", func(o *Options) { o.Categories = []string{"kelp"} }, "categories"},
		{"negative workers", func(o *Options) { o.Workers = -1 }, "workers"},
		{"nan depth", func(o *Options) { o.Depths = []float64{0, math.NaN(), 5} }, "depths"},
		{"nan origin", func(o *Options) { o.Origin = &orb.Point{math.NaN(), 0} }, "origin"},
		{"infinite center", func(o *Options) { o.Origin, o.Center = nil, &orb.Point{0, math.Inf(1)} }, "center"},
		{"negative tolerance", func(o *Options) { o.Tolerance = -1 }, "tolerance"},
		{"nan tolerance", func(o *Options) { o.Tolerance = math.NaN() }, "tolerance"},
		{"nan size", func(o *Options) { o.Size = [2]float64{math.NaN(), 100} }, "size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			opts := f.options()
			tt.mutate(&opts)

			_, err := New(opts)
			var invalid *InvalidOptionsError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestHazardsAndObstacles(t *testing.T) {
	f := newFixture(t)
	chart, err := New(f.options())
	require.NoError(t, err)

	// Land, shore and the 0m and 3m seabed bins.
	hazards := chart.HazardousAreas(5)
	var names []string
	for _, h := range hazards {
		names = append(names, h.Name())
	}
	assert.ElementsMatch(t, []string{"land", "shore", "seabed_0m", "seabed_3m"}, names)

	obstacles := chart.StaticObstacles()
	require.Len(t, obstacles, 1)
	for _, p := range obstacles[0] {
		assert.True(t, chart.Window().Contains(p))
	}

	assert.True(t, chart.InHorizon(chart.Center()))
	assert.False(t, chart.InHorizon(chart.Origin()))
}

func TestCollectionInBounds(t *testing.T) {
	f := newFixture(t)
	chart, err := New(f.options())
	require.NoError(t, err)

	near := orb.Bound{Min: orb.Point{origin[0], origin[1]}, Max: orb.Point{origin[0] + 50, origin[1] + 50}}
	hits := chart.Ocean.InBounds(near)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.True(t, h.Bound().Intersects(near))
	}
	assert.Empty(t, chart.Details.InBounds(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}))
}

func TestSupported(t *testing.T) {
	assert.Equal(t, "seabed, land, shore, shallows, rocks", SupportedFeatures())
	assert.Contains(t, SupportedRegions(), "Møre og Romsdal")
	assert.Equal(t, "EUREF89 UTM sone 33, 2d", SupportedProjection)
}

// snapshot maps every file under dir to its modification time.
func snapshot(t *testing.T, dir string) map[string]int64 {
	t.Helper()
	out := make(map[string]int64)
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		out[path] = info.ModTime().UnixNano()
		return nil
	})
	require.NoError(t, err)
	return out
}

func coordinateTotal(chart *ENC) (n int) {
	for _, f := range chart.Features() {
		n += len(f.Coordinates())
	}
	return n
}

func TestGeoJSON(t *testing.T) {
	f := newFixture(t)
	chart, err := New(f.options())
	require.NoError(t, err)

	fc := GeoJSON(chart.Ocean.Seabed())
	require.Len(t, fc.Features, len(chart.Ocean.Seabed()))
	assert.Equal(t, "seabed_0m", fc.Features[0].Properties["name"])
	assert.Equal(t, 0.0, fc.Features[0].Properties["depth"])

	data, err := fc.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FeatureCollection"`)

	land := GeoJSON(chart.Surface.Land())
	_, hasDepth := land.Features[0].Properties["depth"]
	assert.False(t, hasDepth)
}
