// Package loader reads converted shapefiles into in-memory features clipped
// to a window.
package loader

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/paulmach/orb"

	"github.com/beetlebugorg/seacharts/internal/convert"
	"github.com/beetlebugorg/seacharts/internal/features"
	"github.com/beetlebugorg/seacharts/internal/geometry"
	"github.com/beetlebugorg/seacharts/internal/observability"
)

// Loader reads the shapefiles of a conversion result.
type Loader struct {
	Window  geometry.Window
	Logger  *slog.Logger
	Metrics *observability.Metrics
	Cache   *Cache // optional
	Workers int    // 0 means runtime.NumCPU()
}

// Load reads every file of res in manifest order. Files with nothing inside
// the window yield no feature. The first failing file, in manifest order,
// aborts the load.
func (l *Loader) Load(res convert.Result) ([]*Feature, error) {
	files := res.Manifest.Files
	if len(files) == 0 {
		return nil, nil
	}

	workers := l.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(files) {
		workers = len(files)
	}

	type loadResult struct {
		index   int
		feature *Feature
		err     error
	}

	jobs := make(chan int, len(files))
	results := make(chan loadResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				f, err := l.loadFile(res.Path(files[index]), files[index])
				results <- loadResult{index: index, feature: f, err: err}
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	loaded := make([]*Feature, len(files))
	errs := make([]error, len(files))
	for r := range results {
		loaded[r.index] = r.feature
		errs[r.index] = r.err
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out := make([]*Feature, 0, len(files))
	for _, f := range loaded {
		if f == nil {
			continue
		}
		l.Metrics.FeatureLoaded(f.Category)
		out = append(out, f)
	}
	observability.OrDefault(l.Logger).Debug("features loaded", "dir", res.Dir, "files", len(files), "features", len(out))
	return out, nil
}

func (l *Loader) loadFile(path string, file convert.File) (*Feature, error) {
	if l.Cache == nil {
		return l.readFeature(path, file)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &ShapefileMissingError{Path: path}
	}
	key := fmt.Sprintf("%s|%d|%v", path, info.ModTime().UnixNano(), l.Window.Bounds())

	f, hit, err := l.Cache.Get(key, func() (*Feature, error) {
		return l.readFeature(path, file)
	})
	if err != nil {
		return nil, err
	}
	l.Metrics.CacheLookup(hit)
	return f, nil
}

func (l *Loader) readFeature(path string, file convert.File) (*Feature, error) {
	kind, ok := features.ParseKind(file.Kind)
	if !ok {
		return nil, &CorruptShapefileError{Path: path, Err: fmt.Errorf("unknown kind %q in manifest", file.Kind)}
	}

	g, err := readShapefile(path)
	if err != nil {
		return nil, err
	}

	b := l.Window.Bounds()
	var clipped orb.Geometry
	switch v := g.(type) {
	case orb.MultiPolygon:
		if kind != features.KindPolygon && len(v) > 0 {
			return nil, &CorruptShapefileError{Path: path, Err: fmt.Errorf("polygons in %s file", kind)}
		}
		mp := geometry.ClipPolygons(b, v)
		if len(mp) == 0 {
			return nil, nil
		}
		clipped = mp
	case orb.MultiPoint:
		if kind != features.KindPoint {
			return nil, &CorruptShapefileError{Path: path, Err: fmt.Errorf("points in %s file", kind)}
		}
		mp := geometry.ClipPoints(b, v)
		if len(mp) == 0 {
			return nil, nil
		}
		clipped = mp
	}

	var depth *float64
	if file.Depth != nil {
		d := *file.Depth
		depth = &d
	}
	return newFeature(file.Name, file.Category, kind, clipped, depth), nil
}
