// Package gis is the boundary to the external geospatial library that reads
// FileGDB containers. The rest of the pipeline only sees Source.
package gis

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Record is one feature read from a layer: a geometry in EPSG:25833 plus its
// attribute table row.
type Record struct {
	Geometry   orb.Geometry
	Properties map[string]any
}

// Source reads layers from one FileGDB container.
type Source interface {
	// Layers lists the layer names in the container.
	Layers() ([]string, error)
	// Read returns the records of layer intersecting b.
	Read(layer string, b orb.Bound) ([]Record, error)
}

// Opener opens the container at a .gdb directory.
type Opener func(gdbDir string) (Source, error)

// CommandError is returned when a GDAL command exits unsuccessfully.
type CommandError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
