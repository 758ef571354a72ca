package enc

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"

	"github.com/beetlebugorg/seacharts/internal/archive"
	"github.com/beetlebugorg/seacharts/internal/convert"
	"github.com/beetlebugorg/seacharts/internal/features"
	"github.com/beetlebugorg/seacharts/internal/geometry"
	"github.com/beetlebugorg/seacharts/internal/loader"
	"github.com/beetlebugorg/seacharts/internal/observability"
	"github.com/beetlebugorg/seacharts/internal/region"
)

// SupportedProjection names the coordinate reference system of every chart.
const SupportedProjection = "EUREF89 UTM sone 33, 2d"

// ENC is a loaded electronic navigational chart window.
type ENC struct {
	Ocean   Ocean
	Surface Surface
	Details Details

	window  geometry.Window
	regions []region.Region
	depths  features.DepthBins
	result  convert.Result
}

// New resolves the regions, unpacks their archives, converts the requested
// layers when needed and loads the window into memory. Any failure aborts
// construction.
func New(opts Options) (*ENC, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	clock := opts.Clock

	var (
		window geometry.Window
		err    error
	)
	if opts.Center != nil {
		window, err = geometry.WindowFromCenter(*opts.Center, opts.Size[0], opts.Size[1])
	} else {
		window, err = geometry.NewWindow(*opts.Origin, opts.Size[0], opts.Size[1])
	}
	if err != nil {
		return nil, &InvalidOptionsError{Field: "size", Reason: err.Error()}
	}
	// validate has rejected unknown category names.
	categories, _ := features.Select(opts.Categories)

	start := clock.Now()
	regions, err := region.Resolve(opts.Regions...)
	if err != nil {
		return nil, fmt.Errorf("resolve regions: %w", err)
	}
	opts.Metrics.ObserveStage(observability.StageResolve, clock.Since(start))

	conv := &convert.Converter{
		Open:     opts.Opener,
		CacheDir: filepath.Join(opts.DataDir, "shapefiles"),
		Logger:   logger,
		Metrics:  opts.Metrics,
		Clock:    clock,
	}
	req := convert.Request{
		Regions:    region.Archives(regions),
		Window:     window,
		Categories: categories,
		Depths:     features.DepthBins(opts.Depths),
		Tolerance:  opts.Tolerance,
		Force:      opts.NewData,
	}

	var (
		res    convert.Result
		cached bool
	)
	if !opts.NewData {
		res, cached, err = conv.Lookup(req)
		if err != nil {
			return nil, fmt.Errorf("convert: %w", err)
		}
	}

	if cached {
		opts.Metrics.Conversion(true)
		logger.Info("using cached shapefiles", "dir", res.Dir)
	} else {
		start = clock.Now()
		unpacker := &archive.Unpacker{
			ExternalDir: filepath.Join(opts.DataDir, "external"),
			WorkDir:     filepath.Join(opts.DataDir, "unpacked"),
			Force:       opts.NewData,
			Logger:      logger,
			Metrics:     opts.Metrics,
		}
		for _, r := range regions {
			gdb, err := unpacker.Unpack(r.Archive)
			if err != nil {
				return nil, fmt.Errorf("unpack %s: %w", r.Name, err)
			}
			req.GDBDirs = append(req.GDBDirs, gdb)
		}
		opts.Metrics.ObserveStage(observability.StageUnpack, clock.Since(start))

		start = clock.Now()
		res, err = conv.Convert(req)
		if err != nil {
			return nil, fmt.Errorf("convert: %w", err)
		}
		opts.Metrics.ObserveStage(observability.StageConvert, clock.Since(start))
	}

	start = clock.Now()
	l := &loader.Loader{
		Window:  window,
		Logger:  logger,
		Metrics: opts.Metrics,
		Cache:   opts.Cache,
		Workers: opts.Workers,
	}
	loaded, err := l.Load(res)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	opts.Metrics.ObserveStage(observability.StageLoad, clock.Since(start))

	start = clock.Now()
	byTheme := make(map[string][]*Feature)
	for _, f := range loaded {
		cat, ok := features.Lookup(f.Category)
		if !ok {
			continue
		}
		byTheme[cat.Theme] = append(byTheme[cat.Theme], convertFeature(f))
	}

	e := &ENC{
		Ocean:   Ocean{newCollection(features.ThemeOcean, byTheme[features.ThemeOcean])},
		Surface: Surface{newCollection(features.ThemeSurface, byTheme[features.ThemeSurface])},
		Details: Details{newCollection(features.ThemeDetails, byTheme[features.ThemeDetails])},
		window:  window,
		regions: regions,
		depths:  req.Depths,
		result:  res,
	}
	opts.Metrics.ObserveStage(observability.StageIndex, clock.Since(start))

	logger.Info("chart loaded",
		"regions", strings.Join(opts.Regions, ","),
		"window", window.String(),
		"ocean", e.Ocean.Len(),
		"surface", e.Surface.Len(),
		"details", e.Details.Len(),
	)
	return e, nil
}

// Collection returns the collection of a theme ("ocean", "surface",
// "details") or of a category ("seabed", "land", ...).
func (e *ENC) Collection(name string) (*Collection, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if cat, ok := features.Lookup(key); ok {
		key = cat.Theme
	}
	switch key {
	case features.ThemeOcean:
		return e.Ocean.Collection, true
	case features.ThemeSurface:
		return e.Surface.Collection, true
	case features.ThemeDetails:
		return e.Details.Collection, true
	}
	return nil, false
}

// Collections returns every collection in theme order.
func (e *ENC) Collections() []*Collection {
	return []*Collection{e.Ocean.Collection, e.Surface.Collection, e.Details.Collection}
}

// Features returns every feature of every collection.
func (e *ENC) Features() []*Feature {
	var out []*Feature
	for _, c := range e.Collections() {
		out = append(out, c.features...)
	}
	return out
}

// Window returns the chart window bounds.
func (e *ENC) Window() orb.Bound { return e.window.Bounds() }

// Origin returns the lower-left corner of the window.
func (e *ENC) Origin() orb.Point { return e.window.Origin }

// Center returns the window center.
func (e *ENC) Center() orb.Point { return e.window.Center() }

// Size returns the window (width, height) in metres.
func (e *ENC) Size() [2]float64 { return e.window.Size }

// Regions returns the canonical names of the loaded regions.
func (e *ENC) Regions() []string {
	names := make([]string, len(e.regions))
	for i, r := range e.regions {
		names[i] = r.Name
	}
	return names
}

// Depths returns the depth bin thresholds.
func (e *ENC) Depths() []float64 { return append([]float64(nil), e.depths...) }

// DataDir returns the cache directory the features were loaded from.
func (e *ENC) DataDir() string { return e.result.Dir }

// Cached reports whether the shapefiles were reused from an earlier run.
func (e *ENC) Cached() bool { return e.result.Skipped }

// InHorizon reports whether p lies strictly inside the window.
func (e *ENC) InHorizon(p orb.Point) bool { return e.window.InHorizon(p) }

// HazardousAreas returns the areas unsafe for a vessel of the given draught:
// land, shore, and every seabed bin shallower than depth.
func (e *ENC) HazardousAreas(depth float64) []*Feature {
	out := append(e.Surface.Land(), e.Surface.Shore()...)
	for _, f := range e.Ocean.Seabed() {
		if d, ok := f.Depth(); ok && d < depth {
			out = append(out, f)
		}
	}
	return out
}

// StaticObstacles returns the exterior rings of the land polygons.
func (e *ENC) StaticObstacles() [][]orb.Point {
	var out [][]orb.Point
	for _, f := range e.Surface.Land() {
		mp, ok := f.Geometry().(orb.MultiPolygon)
		if !ok {
			continue
		}
		for _, p := range mp {
			if len(p) > 0 {
				out = append(out, append([]orb.Point(nil), p[0]...))
			}
		}
	}
	return out
}

// SupportedFeatures lists the supported category names, comma separated.
func SupportedFeatures() string {
	return strings.Join(features.Names(), ", ")
}

// SupportedCategories returns the supported category names.
func SupportedCategories() []string {
	return features.Names()
}

// SupportedRegions returns the canonical names of every supported region.
func SupportedRegions() []string {
	all := region.All()
	names := make([]string, len(all))
	for i, r := range all {
		names[i] = r.Name
	}
	return names
}

// SupportedFeatures is the package function, exposed on the chart.
func (e *ENC) SupportedFeatures() string { return SupportedFeatures() }

// SupportedProjection returns SupportedProjection.
func (e *ENC) SupportedProjection() string { return SupportedProjection }
