package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// ClipPolygons clips every polygon in mp to b. Polygons that fall entirely
// outside b, or whose exterior ring degenerates, are dropped.
//
// Vertices produced by the clipper are snapped into b so that floating point
// error at the edges can never place a coordinate outside the window.
func ClipPolygons(b orb.Bound, mp orb.MultiPolygon) orb.MultiPolygon {
	out := make(orb.MultiPolygon, 0, len(mp))
	for _, p := range mp {
		if len(p) == 0 || !b.Intersects(p.Bound()) {
			continue
		}
		clipped := clip.Polygon(b, p.Clone())
		if len(clipped) == 0 {
			continue
		}

		poly := make(orb.Polygon, 0, len(clipped))
		for i, ring := range clipped {
			ring = snapRing(b, ring)
			if len(ring) < 4 {
				if i == 0 {
					break // exterior collapsed
				}
				continue
			}
			poly = append(poly, ring)
		}
		if len(poly) == 0 || math.Abs(planar.Area(poly)) == 0 {
			continue
		}
		out = append(out, poly)
	}
	return out
}

// Simplify reduces the vertices of every polygon in mp with Douglas-Peucker
// at tolerance metres. Holes that collapse are dropped, and so are polygons
// whose exterior collapses. mp is left untouched.
func Simplify(mp orb.MultiPolygon, tolerance float64) orb.MultiPolygon {
	dp := simplify.DouglasPeucker(tolerance)
	out := make(orb.MultiPolygon, 0, len(mp))
	for _, p := range mp {
		if len(p) == 0 {
			continue
		}
		simplified := dp.Polygon(p.Clone())

		poly := make(orb.Polygon, 0, len(simplified))
		for i, ring := range simplified {
			if len(ring) < 4 || planar.Area(ring) == 0 {
				if i == 0 {
					break
				}
				continue
			}
			poly = append(poly, ring)
		}
		if len(poly) > 0 {
			out = append(out, poly)
		}
	}
	return out
}

// ClipPoints keeps the points of mp that lie inside b.
func ClipPoints(b orb.Bound, mp orb.MultiPoint) orb.MultiPoint {
	out := make(orb.MultiPoint, 0, len(mp))
	for _, p := range mp {
		if b.Contains(p) {
			out = append(out, p)
		}
	}
	return out
}

// Area returns the planar area of g in square metres. Points have zero area.
func Area(g orb.Geometry) float64 {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon, orb.Ring:
		return math.Abs(planar.Area(g))
	}
	return 0
}

// Coordinates flattens g into an ordered vertex list: the exterior ring of
// every polygon part in order, or the points of a point set.
func Coordinates(g orb.Geometry) []orb.Point {
	switch v := g.(type) {
	case orb.Point:
		return []orb.Point{v}
	case orb.MultiPoint:
		return append([]orb.Point(nil), v...)
	case orb.Polygon:
		if len(v) == 0 {
			return nil
		}
		return append([]orb.Point(nil), v[0]...)
	case orb.MultiPolygon:
		var coords []orb.Point
		for _, p := range v {
			if len(p) > 0 {
				coords = append(coords, p[0]...)
			}
		}
		return coords
	}
	return nil
}

// Orient rewrites the rings of p so the exterior is clockwise and holes are
// counter-clockwise, the ring order required by the shapefile format.
func Orient(p orb.Polygon) orb.Polygon {
	out := p.Clone()
	for i, ring := range out {
		want := orb.CCW
		if i == 0 {
			want = orb.CW
		}
		if ring.Orientation() != want {
			ring.Reverse()
		}
	}
	return out
}

// snapRing clamps every vertex into b and drops consecutive duplicates.
func snapRing(b orb.Bound, ring orb.Ring) orb.Ring {
	out := make(orb.Ring, 0, len(ring))
	for _, p := range ring {
		p = orb.Point{clamp(p[0], b.Min[0], b.Max[0]), clamp(p[1], b.Min[1], b.Max[1])}
		if n := len(out); n > 0 && out[n-1] == p {
			continue
		}
		out = append(out, p)
	}
	if n := len(out); n > 0 && out[0] != out[n-1] {
		out = append(out, out[0])
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
