package loader

import (
	"github.com/paulmach/orb"

	"github.com/beetlebugorg/seacharts/internal/features"
	"github.com/beetlebugorg/seacharts/internal/geometry"
)

// Feature is one loaded shapefile: every record of one category (and depth
// bin) merged into a single multi-part geometry, clipped to the window.
type Feature struct {
	Name        string
	Category    string
	Kind        features.Kind
	Geometry    orb.Geometry // orb.MultiPolygon or orb.MultiPoint
	Area        float64
	Coordinates []orb.Point
	Depth       *float64 // bin lower bound; nil unless depth-binned
}

func newFeature(name, category string, kind features.Kind, g orb.Geometry, depth *float64) *Feature {
	return &Feature{
		Name:        name,
		Category:    category,
		Kind:        kind,
		Geometry:    g,
		Area:        geometry.Area(g),
		Coordinates: geometry.Coordinates(g),
		Depth:       depth,
	}
}

// Bound returns the bounding box of the feature geometry.
func (f *Feature) Bound() orb.Bound {
	return f.Geometry.Bound()
}
