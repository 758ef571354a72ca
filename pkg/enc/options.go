package enc

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"

	"github.com/beetlebugorg/seacharts/internal/features"
	"github.com/beetlebugorg/seacharts/internal/gis"
	"github.com/beetlebugorg/seacharts/internal/loader"
	"github.com/beetlebugorg/seacharts/internal/observability"
)

// Source reads the layers of one FileGDB container. The default Source runs
// the GDAL command line tools.
type Source = gis.Source

// Record is one feature read from a Source.
type Record = gis.Record

// Opener opens the Source for an unpacked .gdb directory.
type Opener = gis.Opener

// Metrics collects pipeline metrics. Create with NewMetrics.
type Metrics = observability.Metrics

// NewMetrics is observability.NewMetrics.
var NewMetrics = observability.NewMetrics

// Cache holds loaded features in memory across charts.
type Cache = loader.Cache

// NewCache creates a Cache limited to maxMemoryBytes (0 for unlimited).
func NewCache(maxMemoryBytes int64) *Cache {
	return loader.NewCache(maxMemoryBytes)
}

// Defaults.
var (
	DefaultOrigin  = orb.Point{38100, 6948700}
	DefaultSize    = [2]float64{20000, 16000}
	DefaultRegions = []string{"Møre og Romsdal"}
)

// DefaultDataDir is the data directory used when none is configured.
const DefaultDataDir = "data"

// sharedCache backs charts built without an explicit Cache.
var sharedCache = loader.NewCache(512 * 1024 * 1024)

// Options configures New.
type Options struct {
	// Origin is the lower-left corner of the window in EUREF89 UTM zone 33
	// (easting, northing). Mutually exclusive with Center.
	Origin *orb.Point
	// Center is the window center. Mutually exclusive with Origin.
	Center *orb.Point
	// Size is the window (width, height) in metres.
	Size [2]float64

	// Regions are county names, or "Hele landet" for the whole country.
	Regions []string
	// Depths are strictly increasing seabed depth thresholds in metres.
	Depths []float64
	// Categories restricts loading to these category names; empty loads all.
	Categories []string
	// Tolerance is the maximum distance in metres a polygon vertex may move
	// when shapes are simplified during conversion. Zero disables it.
	Tolerance float64

	// NewData forces the archives to be extracted and the shapefiles converted again.
	NewData bool
	// DataDir holds external/, unpacked/ and shapefiles/.
	DataDir string

	Opener  Opener
	Logger  *slog.Logger
	Metrics *Metrics
	Clock   clockwork.Clock
	Cache   *Cache
	Workers int
}

// DefaultOptions returns options for the default Møre og Romsdal window.
func DefaultOptions() Options {
	origin := DefaultOrigin
	return Options{
		Origin:  &origin,
		Size:    DefaultSize,
		Regions: append([]string(nil), DefaultRegions...),
		Depths:  append([]float64(nil), features.DefaultDepths...),
		DataDir: DefaultDataDir,
	}
}

// withDefaults fills unset fields.
func (o Options) withDefaults() Options {
	if o.Origin == nil && o.Center == nil {
		origin := DefaultOrigin
		o.Origin = &origin
	}
	if o.Size == [2]float64{} {
		o.Size = DefaultSize
	}
	if len(o.Regions) == 0 {
		o.Regions = append([]string(nil), DefaultRegions...)
	}
	if len(o.Depths) == 0 {
		o.Depths = append([]float64(nil), features.DefaultDepths...)
	}
	if o.DataDir == "" {
		o.DataDir = DefaultDataDir
	}
	if o.Opener == nil {
		o.Opener = gis.NewOGROpener(context.Background(), gis.DefaultOGROptions())
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Cache == nil {
		o.Cache = sharedCache
	}
	return o
}

func (o Options) validate() error {
	if o.Origin != nil && o.Center != nil {
		return &InvalidOptionsError{Field: "origin", Reason: "origin and center are mutually exclusive"}
	}
	if o.Origin != nil && !finite(o.Origin[0], o.Origin[1]) {
		return &InvalidOptionsError{Field: "origin", Reason: fmt.Sprintf("must be finite, got %v", *o.Origin)}
	}
	if o.Center != nil && !finite(o.Center[0], o.Center[1]) {
		return &InvalidOptionsError{Field: "center", Reason: fmt.Sprintf("must be finite, got %v", *o.Center)}
	}
	if !finite(o.Size[0], o.Size[1]) || o.Size[0] <= 0 || o.Size[1] <= 0 {
		return &InvalidOptionsError{Field: "size", Reason: fmt.Sprintf("must be positive, got %gx%g", o.Size[0], o.Size[1])}
	}
	if err := features.DepthBins(o.Depths).Validate(); err != nil {
		return &InvalidOptionsError{Field: "depths", Reason: err.Error()}
	}
	if _, unknown := features.Select(o.Categories); len(unknown) > 0 {
		return &InvalidOptionsError{
			Field:  "categories",
			Reason: fmt.Sprintf("unknown %s; supported: %s", strings.Join(unknown, ", "), SupportedFeatures()),
		}
	}
	if !finite(o.Tolerance) || o.Tolerance < 0 {
		return &InvalidOptionsError{Field: "tolerance", Reason: fmt.Sprintf("must be a non-negative distance, got %g", o.Tolerance)}
	}
	if o.Workers < 0 {
		return &InvalidOptionsError{Field: "workers", Reason: "must not be negative"}
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
