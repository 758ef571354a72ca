package enc

import (
	"fmt"

	"github.com/beetlebugorg/seacharts/internal/archive"
	"github.com/beetlebugorg/seacharts/internal/convert"
	"github.com/beetlebugorg/seacharts/internal/loader"
	"github.com/beetlebugorg/seacharts/internal/region"
)

// Pipeline errors. Use errors.As to inspect them:
//
//	var unknown *enc.UnknownRegionError
//	if errors.As(err, &unknown) {
//	    fmt.Println("no such region:", unknown.Name)
//	}
type (
	UnknownRegionError    = region.UnknownRegionError
	ArchiveNotFoundError  = archive.ArchiveNotFoundError
	ExtractionError       = archive.ExtractionError
	LayerNotFoundError    = convert.LayerNotFoundError
	ConversionError       = convert.ConversionError
	CacheMismatchError    = convert.CacheMismatchError
	ShapefileMissingError = loader.ShapefileMissingError
	CorruptShapefileError = loader.CorruptShapefileError
)

// InvalidOptionsError indicates Options that cannot describe a chart.
type InvalidOptionsError struct {
	Field  string
	Reason string
}

func (e *InvalidOptionsError) Error() string {
	return fmt.Sprintf("invalid option %s: %s", e.Field, e.Reason)
}
