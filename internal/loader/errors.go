package loader

import "fmt"

// ShapefileMissingError indicates a shapefile listed for loading does not
// exist. The conversion has to be rerun.
type ShapefileMissingError struct {
	Path string
}

func (e *ShapefileMissingError) Error() string {
	return fmt.Sprintf("shapefile missing: %s", e.Path)
}

// CorruptShapefileError indicates a shapefile could not be read.
type CorruptShapefileError struct {
	Path string
	Err  error
}

func (e *CorruptShapefileError) Error() string {
	return fmt.Sprintf("corrupt shapefile %s: %v", e.Path, e.Err)
}

func (e *CorruptShapefileError) Unwrap() error {
	return e.Err
}
