package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "seacharts"

// Stage names used as the stage label.
const (
	StageResolve = "resolve"
	StageUnpack  = "unpack"
	StageConvert = "convert"
	StageLoad    = "load"
	StageIndex   = "index"
)

// Metrics holds the Prometheus collectors for the chart pipeline. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	StageDuration     *prometheus.HistogramVec // labels: stage
	ArchivesExtracted prometheus.Counter
	Conversions       *prometheus.CounterVec // labels: outcome={converted,skipped}
	ShapefilesWritten prometheus.Counter
	FeaturesLoaded    *prometheus.CounterVec // labels: category
	LoaderCache       *prometheus.CounterVec // labels: result={hit,miss}
}

func newMetrics() *Metrics {
	return &Metrics{
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage"}),
		ArchivesExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archives_extracted_total",
			Help:      "Total FileGDB archives extracted.",
		}),
		Conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Feature conversions by outcome.",
		}, []string{"outcome"}),
		ShapefilesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shapefiles_written_total",
			Help:      "Total shapefiles written by the converter.",
		}),
		FeaturesLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "features_loaded_total",
			Help:      "Features loaded into memory by category.",
		}, []string{"category"}),
		LoaderCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loader_cache_total",
			Help:      "Loader cache lookups by result.",
		}, []string{"result"}),
	}
}

// NewMetrics creates the pipeline metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.StageDuration,
		m.ArchivesExtracted,
		m.Conversions,
		m.ShapefilesWritten,
		m.FeaturesLoaded,
		m.LoaderCache,
	)
	return m
}

// NewMetricsForTesting creates unregistered metrics, so tests can build as
// many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// ObserveStage records the duration of a stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ArchiveExtracted counts one extracted archive.
func (m *Metrics) ArchiveExtracted() {
	if m == nil {
		return
	}
	m.ArchivesExtracted.Inc()
}

// Conversion counts a converter run by outcome.
func (m *Metrics) Conversion(skipped bool) {
	if m == nil {
		return
	}
	outcome := "converted"
	if skipped {
		outcome = "skipped"
	}
	m.Conversions.WithLabelValues(outcome).Inc()
}

// ShapefileWritten counts one written shapefile.
func (m *Metrics) ShapefileWritten() {
	if m == nil {
		return
	}
	m.ShapefilesWritten.Inc()
}

// FeatureLoaded counts a loaded feature of category.
func (m *Metrics) FeatureLoaded(category string) {
	if m == nil {
		return
	}
	m.FeaturesLoaded.WithLabelValues(category).Inc()
}

// CacheLookup counts a loader cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.LoaderCache.WithLabelValues(result).Inc()
}
