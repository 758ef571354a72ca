package convert

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"

	"github.com/beetlebugorg/seacharts/internal/geometry"
)

// Attribute columns written to every shapefile.
const (
	fieldName     = 0
	fieldCategory = 1
	fieldDepth    = 2
)

func shapeFields() []shp.Field {
	return []shp.Field{
		shp.StringField("name", 64),
		shp.StringField("category", 32),
		shp.FloatField("depth", 12, 2),
	}
}

type attributes struct {
	name     string
	category string
	depth    *float64
}

// writePolygons writes one shape record per polygon.
func writePolygons(path string, polys []orb.Polygon, attrs attributes) error {
	shapes := make([]shp.Shape, len(polys))
	for i, p := range polys {
		shapes[i] = toShpPolygon(geometry.Orient(p))
	}
	return writeShapes(path, shp.POLYGON, shapes, attrs)
}

// writePoints writes one shape record per point.
func writePoints(path string, points orb.MultiPoint, attrs attributes) error {
	shapes := make([]shp.Shape, len(points))
	for i, p := range points {
		shapes[i] = &shp.Point{X: p[0], Y: p[1]}
	}
	return writeShapes(path, shp.POINT, shapes, attrs)
}

func writeShapes(path string, shapeType shp.ShapeType, shapes []shp.Shape, attrs attributes) error {
	w, err := shp.Create(path, shapeType)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := w.SetFields(shapeFields()); err != nil {
		w.Close()
		return fmt.Errorf("create %s: %w", path, err)
	}

	for _, shape := range shapes {
		row := int(w.Write(shape))
		if err := writeAttributes(w, row, attrs); err != nil {
			w.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Close()
	return fixDBFName(path)
}

// fixDBFName moves "<base>dbf" to "<base>.dbf". shp.Create drops the dot
// from the base name before SetFields derives the attribute table path.
func fixDBFName(path string) error {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	misnamed := base + "dbf"
	if _, err := os.Stat(misnamed); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", misnamed, err)
	}
	if err := os.Rename(misnamed, base+".dbf"); err != nil {
		return fmt.Errorf("rename %s: %w", misnamed, err)
	}
	return nil
}

func writeAttributes(w *shp.Writer, row int, attrs attributes) error {
	if err := w.WriteAttribute(row, fieldName, attrs.name); err != nil {
		return err
	}
	if err := w.WriteAttribute(row, fieldCategory, attrs.category); err != nil {
		return err
	}
	if attrs.depth != nil {
		if err := w.WriteAttribute(row, fieldDepth, *attrs.depth); err != nil {
			return err
		}
	}
	return nil
}

func toShpPolygon(p orb.Polygon) *shp.Polygon {
	parts := make([][]shp.Point, len(p))
	for i, ring := range p {
		pts := make([]shp.Point, len(ring))
		for j, v := range ring {
			pts[j] = shp.Point{X: v[0], Y: v[1]}
		}
		parts[i] = pts
	}
	poly := shp.Polygon(*shp.NewPolyLine(parts))
	return &poly
}
