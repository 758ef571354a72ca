package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
)

const shpHeaderSize = 100

// readShapefile reads every shape in path. Polygon files yield an
// orb.MultiPolygon and point files an orb.MultiPoint.
func readShapefile(path string) (g orb.Geometry, err error) {
	base := path[:len(path)-len(filepath.Ext(path))]
	for _, p := range []string{base + ".shp", base + ".dbf"} {
		info, statErr := os.Stat(p)
		if statErr != nil {
			if errors.Is(statErr, fs.ErrNotExist) {
				return nil, &ShapefileMissingError{Path: p}
			}
			return nil, &CorruptShapefileError{Path: path, Err: statErr}
		}
		if filepath.Ext(p) == ".shp" && info.Size() < shpHeaderSize {
			return nil, &CorruptShapefileError{Path: path, Err: fmt.Errorf("truncated header (%d bytes)", info.Size())}
		}
	}

	// go-shp panics on some truncated files.
	defer func() {
		if r := recover(); r != nil {
			g = nil
			err = &CorruptShapefileError{Path: path, Err: fmt.Errorf("%v", r)}
		}
	}()

	r, err := shp.Open(base + ".shp")
	if err != nil {
		return nil, &CorruptShapefileError{Path: path, Err: err}
	}
	defer r.Close()

	var (
		polygons orb.MultiPolygon
		points   orb.MultiPoint
	)
	for r.Next() {
		_, shape := r.Shape()
		switch s := shape.(type) {
		case *shp.Polygon:
			polygons = append(polygons, polygonRings(s.Parts, s.Points)...)
		case *shp.Point:
			points = append(points, orb.Point{s.X, s.Y})
		case *shp.MultiPoint:
			for _, p := range s.Points {
				points = append(points, orb.Point{p.X, p.Y})
			}
		case *shp.Null, nil:
		default:
			return nil, &CorruptShapefileError{Path: path, Err: fmt.Errorf("unsupported shape %T", shape)}
		}
	}
	if err := r.Err(); err != nil {
		return nil, &CorruptShapefileError{Path: path, Err: err}
	}

	switch {
	case len(polygons) > 0 && len(points) > 0:
		return nil, &CorruptShapefileError{Path: path, Err: errors.New("mixed point and polygon shapes")}
	case len(points) > 0:
		return points, nil
	}
	return polygons, nil
}

// polygonRings splits shapefile parts into polygons: a clockwise ring starts
// a new polygon and a counter-clockwise ring is a hole of the previous one.
func polygonRings(parts []int32, pts []shp.Point) orb.MultiPolygon {
	var out orb.MultiPolygon
	for i, start := range parts {
		end := int32(len(pts))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start >= end || int(end) > len(pts) {
			continue
		}

		ring := make(orb.Ring, 0, end-start)
		for _, p := range pts[start:end] {
			ring = append(ring, orb.Point{p.X, p.Y})
		}
		if len(ring) < 4 {
			continue
		}

		if ring.Orientation() == orb.CCW && len(out) > 0 {
			last := len(out) - 1
			out[last] = append(out[last], ring)
			continue
		}
		out = append(out, orb.Polygon{ring})
	}
	return out
}
