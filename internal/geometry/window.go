// Package geometry holds the projected-coordinate primitives shared by the
// converter, loader and facade: the chart window, clipping helpers, a
// spatial index and the UTM zone 33 projection.
package geometry

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Window is the rectangular area of interest in EUREF89 / UTM zone 33N
// (EPSG:25833) coordinates.
//
// Origin is the lower-left (south-west) corner; Size is (width, height) in
// metres.
type Window struct {
	Origin orb.Point
	Size   [2]float64
}

// NewWindow creates a window from its lower-left corner and size.
func NewWindow(origin orb.Point, width, height float64) (Window, error) {
	if width <= 0 || height <= 0 {
		return Window{}, fmt.Errorf("window size must be positive, got %gx%g", width, height)
	}
	return Window{Origin: origin, Size: [2]float64{width, height}}, nil
}

// WindowFromCenter creates a window centered on the given point.
func WindowFromCenter(center orb.Point, width, height float64) (Window, error) {
	origin := orb.Point{center[0] - width/2, center[1] - height/2}
	return NewWindow(origin, width, height)
}

// Bounds returns the window as an orb.Bound.
func (w Window) Bounds() orb.Bound {
	return orb.Bound{
		Min: w.Origin,
		Max: orb.Point{w.Origin[0] + w.Size[0], w.Origin[1] + w.Size[1]},
	}
}

// Center returns the window center.
func (w Window) Center() orb.Point {
	return orb.Point{w.Origin[0] + w.Size[0]/2, w.Origin[1] + w.Size[1]/2}
}

// Area returns the window area in square metres.
func (w Window) Area() float64 {
	return w.Size[0] * w.Size[1]
}

// Contains reports whether p lies inside the window or on its edge.
func (w Window) Contains(p orb.Point) bool {
	return w.Bounds().Contains(p)
}

// InHorizon reports whether p lies strictly inside the window.
func (w Window) InHorizon(p orb.Point) bool {
	b := w.Bounds()
	return p[0] > b.Min[0] && p[0] < b.Max[0] &&
		p[1] > b.Min[1] && p[1] < b.Max[1]
}

// String formats the window as "xmin,ymin,xmax,ymax".
func (w Window) String() string {
	b := w.Bounds()
	return fmt.Sprintf("%.0f,%.0f,%.0f,%.0f", b.Min[0], b.Min[1], b.Max[0], b.Max[1])
}
