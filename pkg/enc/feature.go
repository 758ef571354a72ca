package enc

import (
	"strings"

	"github.com/paulmach/orb"

	"github.com/beetlebugorg/seacharts/internal/features"
	"github.com/beetlebugorg/seacharts/internal/geometry"
	"github.com/beetlebugorg/seacharts/internal/loader"
)

// Kind is the geometric shape of a feature.
type Kind = features.Kind

// Feature kinds.
const (
	KindPolygon = features.KindPolygon
	KindPoint   = features.KindPoint
)

// Feature is one named geometry clipped to the chart window.
//
// All fields are private; a Feature is immutable once loaded.
type Feature struct {
	name        string
	category    string
	kind        Kind
	geometry    orb.Geometry
	area        float64
	coordinates []orb.Point
	depth       *float64
}

// Name returns the feature name, e.g. "seabed_10m" or "land".
func (f *Feature) Name() string { return f.name }

// Category returns the category tag, e.g. "seabed".
func (f *Feature) Category() string { return f.category }

// Kind returns KindPolygon or KindPoint.
func (f *Feature) Kind() Kind { return f.kind }

// Geometry returns a copy of the orb.MultiPolygon or orb.MultiPoint, in
// EUREF89 UTM 33. The loaded geometry may be shared with other charts
// through the loader cache.
func (f *Feature) Geometry() orb.Geometry { return orb.Clone(f.geometry) }

// Area returns the planar area in square metres; zero for points.
func (f *Feature) Area() float64 { return f.area }

// Coordinates returns the exterior ring vertices of every polygon part, or
// the points.
func (f *Feature) Coordinates() []orb.Point {
	return append([]orb.Point(nil), f.coordinates...)
}

// Depth returns the lower bound of the feature's depth bin. ok is false for
// categories that are not depth-binned.
func (f *Feature) Depth() (depth float64, ok bool) {
	if f.depth == nil {
		return 0, false
	}
	return *f.depth, true
}

// Bound returns the bounding box of the geometry.
func (f *Feature) Bound() orb.Bound { return f.geometry.Bound() }

func convertFeature(f *loader.Feature) *Feature {
	out := &Feature{
		name:        f.Name,
		category:    f.Category,
		kind:        f.Kind,
		geometry:    f.Geometry,
		area:        f.Area,
		coordinates: f.Coordinates,
	}
	if f.Depth != nil {
		d := *f.Depth
		out.depth = &d
	}
	return out
}

// Collection is an ordered, read-only group of features sharing a theme.
type Collection struct {
	name     string
	features []*Feature
	index    *geometry.Index
}

func newCollection(name string, feats []*Feature) *Collection {
	bounds := make([]orb.Bound, len(feats))
	for i, f := range feats {
		bounds[i] = f.Bound()
	}
	return &Collection{name: name, features: feats, index: geometry.NewIndex(bounds)}
}

// Name returns the theme name.
func (c *Collection) Name() string { return c.name }

// Len returns the number of features.
func (c *Collection) Len() int { return len(c.features) }

// At returns feature i.
func (c *Collection) At(i int) *Feature { return c.features[i] }

// Features returns every feature in load order.
func (c *Collection) Features() []*Feature {
	return append([]*Feature(nil), c.features...)
}

// Category returns the features of one category, in order.
func (c *Collection) Category(name string) []*Feature {
	name = strings.ToLower(strings.TrimSpace(name))
	var out []*Feature
	for _, f := range c.features {
		if f.category == name {
			out = append(out, f)
		}
	}
	return out
}

// InBounds returns the features whose bounding box intersects b.
func (c *Collection) InBounds(b orb.Bound) []*Feature {
	ids := c.index.Search(b)
	out := make([]*Feature, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.features[id])
	}
	return out
}

// Ocean holds the depth-binned seabed.
type Ocean struct{ *Collection }

// Seabed returns one feature per non-empty depth bin, shallowest first.
func (o Ocean) Seabed() []*Feature { return o.Category("seabed") }

// Surface holds land and shore.
type Surface struct{ *Collection }

// Land returns the land features.
func (s Surface) Land() []*Feature { return s.Category("land") }

// Shore returns the shore (drying) features.
func (s Surface) Shore() []*Feature { return s.Category("shore") }

// Details holds point hazards.
type Details struct{ *Collection }

// Shallows returns the shallow point features.
func (d Details) Shallows() []*Feature { return d.Category("shallows") }

// Rocks returns the rock point features.
func (d Details) Rocks() []*Feature { return d.Category("rocks") }
