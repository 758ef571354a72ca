// Package enctest builds charts over in-memory layers for tests of packages
// that consume *enc.ENC.
package enctest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/paulmach/orb"

	"github.com/beetlebugorg/seacharts/internal/gis"
	"github.com/beetlebugorg/seacharts/internal/observability"
	"github.com/beetlebugorg/seacharts/pkg/enc"
)

// Origin is the lower-left corner of the fixture window.
var Origin = orb.Point{38100, 6948700}

// Size is the fixture window size.
const Size = 1000.0

// Square returns a square polygon with corners offset from Origin.
func Square(x0, y0, x1, y1 float64) orb.Polygon {
	x0, x1 = Origin[0]+x0, Origin[0]+x1
	y0, y1 = Origin[1]+y0, Origin[1]+y1
	return orb.Polygon{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}
}

// Source returns layers with every category populated inside the window.
func Source() *gis.Memory {
	seabed := func(p orb.Polygon, d float64) gis.Record {
		return gis.Record{Geometry: p, Properties: map[string]any{"minimumsdybde": d}}
	}
	return gis.NewMemory().
		Add("Dybdeareal",
			seabed(Square(0, 0, 500, 1000), 2),
			seabed(Square(500, 0, 1000, 1000), 30),
		).
		Add("Landareal", gis.Record{Geometry: Square(100, 100, 300, 300)}).
		Add("Torrfall", gis.Record{Geometry: Square(300, 100, 350, 300)}).
		Add("Grunne", gis.Record{Geometry: orb.MultiPoint{{Origin[0] + 600, Origin[1] + 600}}}).
		Add("Skjaer", gis.Record{Geometry: orb.MultiPoint{{Origin[0] + 700, Origin[1] + 700}}})
}

// New builds a chart over src in a temporary data directory.
func New(t testing.TB, src gis.Source) *enc.ENC {
	t.Helper()
	dataDir := t.TempDir()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("Basisdata.gdb/gdb")
	if err == nil {
		_, err = w.Write([]byte("gdb"))
	}
	if err == nil {
		err = zw.Close()
	}
	if err != nil {
		t.Fatalf("build archive: %v", err)
	}

	external := filepath.Join(dataDir, "external")
	if err := os.MkdirAll(external, 0o755); err != nil {
		t.Fatal(err)
	}
	name := "Basisdata_15_More_og_Romsdal_25833_Dybdedata_FGDB.zip"
	if err := os.WriteFile(filepath.Join(external, name), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	origin := Origin
	chart, err := enc.New(enc.Options{
		Origin:  &origin,
		Size:    [2]float64{Size, Size},
		Regions: []string{"Møre og Romsdal"},
		DataDir: dataDir,
		Opener:  func(string) (gis.Source, error) { return src, nil },
		Logger:  observability.Discard(),
		Cache:   enc.NewCache(0),
	})
	if err != nil {
		t.Fatalf("build chart: %v", err)
	}
	return chart
}
