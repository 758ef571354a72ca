// Package convert turns FileGDB layers into per-category shapefiles stored in
// a parameter-addressed cache directory.
package convert

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"

	"github.com/beetlebugorg/seacharts/internal/features"
	"github.com/beetlebugorg/seacharts/internal/geometry"
	"github.com/beetlebugorg/seacharts/internal/gis"
	"github.com/beetlebugorg/seacharts/internal/observability"
)

// Request describes one conversion.
type Request struct {
	Regions    []string // archive identifiers
	GDBDirs    []string // unpacked containers, one per region; unused by Lookup
	Window     geometry.Window
	Categories []features.Category
	Depths     features.DepthBins
	Tolerance  float64 // Douglas-Peucker distance in metres; zero keeps every vertex
	Force      bool    // convert even when a valid cache entry exists
}

// Result locates the shapefiles of a conversion.
type Result struct {
	Dir      string
	Manifest Manifest
	Skipped  bool // true when an existing cache entry was reused
}

// Path returns the absolute path of a manifest file.
func (r Result) Path(f File) string {
	return filepath.Join(r.Dir, f.Path)
}

// Converter writes shapefiles for Requests.
type Converter struct {
	Open     gis.Opener
	CacheDir string
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Clock    clockwork.Clock
}

// Key returns the cache key of req: a hash over the sorted regions, the
// window bounds, the sorted category names, the depth bins and the
// simplification tolerance.
func Key(req Request) string {
	m := manifestFor(req)
	h := xxhash.New()
	fmt.Fprintf(h, "regions=%s\n", strings.Join(m.Regions, ","))
	fmt.Fprintf(h, "window=%v\n", m.Window)
	fmt.Fprintf(h, "categories=%s\n", strings.Join(m.Categories, ","))
	fmt.Fprintf(h, "depths=%s\n", req.Depths.Signature())
	fmt.Fprintf(h, "tolerance=%v\n", req.Tolerance)
	return fmt.Sprintf("%016x", h.Sum64())
}

// Dir returns the cache directory for req.
func (c *Converter) Dir(req Request) string {
	return filepath.Join(c.CacheDir, Key(req))
}

// Lookup returns the cached result for req when a complete entry exists.
// It fails with *CacheMismatchError when the entry was produced with other
// parameters.
func (c *Converter) Lookup(req Request) (Result, bool, error) {
	dir := c.Dir(req)
	m, err := ReadManifest(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, false, nil
		}
		observability.OrDefault(c.Logger).Warn("ignoring unreadable manifest", "dir", dir, "error", err)
		return Result{}, false, nil
	}

	if diff := m.diff(manifestFor(req)); len(diff) > 0 {
		return Result{}, false, &CacheMismatchError{Dir: dir, Fields: diff}
	}

	ok, err := m.complete(dir)
	if err != nil {
		return Result{}, false, fmt.Errorf("check cache %s: %w", dir, err)
	}
	if !ok {
		return Result{}, false, nil
	}
	return Result{Dir: dir, Manifest: *m, Skipped: true}, true, nil
}

// Convert writes the shapefiles for req unless a valid cache entry exists
// and req.Force is false.
func (c *Converter) Convert(req Request) (Result, error) {
	logger := observability.OrDefault(c.Logger)

	if err := req.Depths.Validate(); err != nil {
		return Result{}, err
	}
	if math.IsNaN(req.Tolerance) || math.IsInf(req.Tolerance, 0) || req.Tolerance < 0 {
		return Result{}, fmt.Errorf("convert: invalid tolerance %g", req.Tolerance)
	}
	if len(req.GDBDirs) != len(req.Regions) {
		return Result{}, fmt.Errorf("convert: %d containers for %d regions", len(req.GDBDirs), len(req.Regions))
	}

	if !req.Force {
		res, ok, err := c.Lookup(req)
		if err != nil {
			return Result{}, err
		}
		if ok {
			c.Metrics.Conversion(true)
			logger.Info("shapefiles up to date", "dir", res.Dir, "files", len(res.Manifest.Files))
			return res, nil
		}
	}

	sources := make([]gis.Source, len(req.GDBDirs))
	for i, dir := range req.GDBDirs {
		src, err := c.Open(dir)
		if err != nil {
			return Result{}, fmt.Errorf("open container: %w", err)
		}
		sources[i] = src
	}

	if err := os.MkdirAll(c.CacheDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create cache dir: %w", err)
	}
	key := Key(req)
	tmp, err := os.MkdirTemp(c.CacheDir, key+".tmp-")
	if err != nil {
		return Result{}, fmt.Errorf("create cache dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	m := manifestFor(req)
	m.Key = key
	for _, cat := range req.Categories {
		files, err := c.convertCategory(tmp, cat, sources, req)
		if err != nil {
			return Result{}, err
		}
		m.Files = append(m.Files, files...)
	}
	m.CreatedAt = c.now()

	if err := WriteManifest(tmp, m); err != nil {
		return Result{}, err
	}

	dir := filepath.Join(c.CacheDir, key)
	if err := os.RemoveAll(dir); err != nil {
		return Result{}, fmt.Errorf("replace cache dir: %w", err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		return Result{}, fmt.Errorf("replace cache dir: %w", err)
	}

	c.Metrics.Conversion(false)
	logger.Info("shapefiles converted", "dir", dir, "files", len(m.Files), "window", req.Window.String())
	return Result{Dir: dir, Manifest: *m}, nil
}

func (c *Converter) convertCategory(dir string, cat features.Category, sources []gis.Source, req Request) ([]File, error) {
	b := req.Window.Bounds()

	var records []gis.Record
	for i, src := range sources {
		layers, err := src.Layers()
		if err != nil {
			return nil, fmt.Errorf("list layers: %w", err)
		}
		layer, ok := findFold(layers, cat.Layer)
		if !ok {
			return nil, &LayerNotFoundError{Layer: cat.Layer, Source: req.GDBDirs[i]}
		}
		recs, err := src.Read(layer, b)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", cat.Layer, err)
		}
		records = append(records, recs...)
	}

	switch cat.Kind {
	case features.KindPoint:
		points, err := collectPoints(cat, records, b)
		if err != nil {
			return nil, err
		}
		if len(points) == 0 {
			return nil, nil
		}
		f := File{Name: cat.Name, Path: cat.Name + ".shp", Category: cat.Name, Kind: cat.Kind.String(), Records: len(points)}
		if err := writePoints(filepath.Join(dir, f.Path), points, attributes{name: f.Name, category: cat.Name}); err != nil {
			return nil, err
		}
		c.Metrics.ShapefileWritten()
		return []File{f}, nil

	default:
		bins, err := collectPolygons(cat, records, b, req.Depths, req.Tolerance)
		if err != nil {
			return nil, err
		}
		var files []File
		for _, bin := range bins {
			f := File{Name: cat.Name, Category: cat.Name, Kind: cat.Kind.String(), Records: len(bin.polygons)}
			attrs := attributes{category: cat.Name}
			if cat.Binned() {
				lower := req.Depths.Lower(bin.index)
				f.Name = cat.Name + "_" + strconv.FormatFloat(lower, 'f', -1, 64) + "m"
				f.Depth = &lower
				attrs.depth = &lower
			}
			f.Path = f.Name + ".shp"
			attrs.name = f.Name
			if err := writePolygons(filepath.Join(dir, f.Path), bin.polygons, attrs); err != nil {
				return nil, err
			}
			c.Metrics.ShapefileWritten()
			files = append(files, f)
		}
		return files, nil
	}
}

type polygonBin struct {
	index    int
	polygons []orb.Polygon
}

// collectPolygons clips the records to b, simplifies them when tolerance is
// positive and groups the polygons by depth bin. Non-binned categories yield
// a single group. Empty groups are omitted.
func collectPolygons(cat features.Category, records []gis.Record, b orb.Bound, depths features.DepthBins, tolerance float64) ([]polygonBin, error) {
	groups := make(map[int][]orb.Polygon)
	for _, r := range records {
		mp, err := asMultiPolygon(cat.Layer, r.Geometry)
		if err != nil {
			return nil, err
		}
		clipped := geometry.ClipPolygons(b, mp)
		if tolerance > 0 {
			clipped = geometry.Simplify(clipped, tolerance)
		}
		if len(clipped) == 0 {
			continue
		}

		idx := 0
		if cat.Binned() {
			depth, err := depthOf(cat, r.Properties)
			if err != nil {
				return nil, err
			}
			idx = depths.Index(depth)
		}
		groups[idx] = append(groups[idx], clipped...)
	}

	indices := make([]int, 0, len(groups))
	for i := range groups {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	bins := make([]polygonBin, len(indices))
	for i, idx := range indices {
		bins[i] = polygonBin{index: idx, polygons: groups[idx]}
	}
	return bins, nil
}

func collectPoints(cat features.Category, records []gis.Record, b orb.Bound) (orb.MultiPoint, error) {
	var out orb.MultiPoint
	for _, r := range records {
		var mp orb.MultiPoint
		switch g := r.Geometry.(type) {
		case orb.Point:
			mp = orb.MultiPoint{g}
		case orb.MultiPoint:
			mp = g
		default:
			return nil, &ConversionError{Layer: cat.Layer, Reason: fmt.Sprintf("unsupported geometry %s for point layer", geometryName(r.Geometry))}
		}
		out = append(out, geometry.ClipPoints(b, mp)...)
	}
	return out, nil
}

func asMultiPolygon(layer string, g orb.Geometry) (orb.MultiPolygon, error) {
	var mp orb.MultiPolygon
	switch v := g.(type) {
	case orb.Polygon:
		mp = orb.MultiPolygon{v}
	case orb.MultiPolygon:
		mp = v
	default:
		return nil, &ConversionError{Layer: layer, Reason: fmt.Sprintf("unsupported geometry %s for polygon layer", geometryName(g))}
	}
	for _, p := range mp {
		if len(p) == 0 {
			return nil, &ConversionError{Layer: layer, Reason: "polygon without rings"}
		}
		for _, ring := range p {
			if len(ring) < 4 {
				return nil, &ConversionError{Layer: layer, Reason: fmt.Sprintf("ring with %d vertices", len(ring))}
			}
		}
	}
	return mp, nil
}

func depthOf(cat features.Category, props map[string]any) (float64, error) {
	v, ok := lookupFold(props, cat.DepthField)
	if !ok || v == nil {
		return 0, &ConversionError{Layer: cat.Layer, Reason: fmt.Sprintf("missing %s attribute", cat.DepthField)}
	}
	depth, ok := toFloat(v)
	if !ok {
		return 0, &ConversionError{Layer: cat.Layer, Reason: fmt.Sprintf("non-numeric %s %v", cat.DepthField, v)}
	}
	return depth, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func lookupFold(props map[string]any, key string) (any, bool) {
	if v, ok := props[key]; ok {
		return v, true
	}
	for k, v := range props {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func findFold(list []string, s string) (string, bool) {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return v, true
		}
	}
	return "", false
}

func geometryName(g orb.Geometry) string {
	if g == nil {
		return "<nil>"
	}
	return g.GeoJSONType()
}

func manifestFor(req Request) *Manifest {
	regions := append([]string(nil), req.Regions...)
	sort.Strings(regions)
	b := req.Window.Bounds()
	return &Manifest{
		Regions:    regions,
		Window:     [4]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]},
		Categories: features.SortedNames(req.Categories),
		Depths:     append([]float64(nil), req.Depths...),
		Tolerance:  req.Tolerance,
	}
}

func (c *Converter) now() time.Time {
	if c.Clock == nil {
		return time.Now().UTC()
	}
	return c.Clock.Now().UTC()
}
