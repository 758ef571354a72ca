package convert

import (
	"fmt"
	"strings"
)

// LayerNotFoundError indicates a required layer is missing from a container.
type LayerNotFoundError struct {
	Layer  string
	Source string
}

func (e *LayerNotFoundError) Error() string {
	return fmt.Sprintf("layer %q not found in %s", e.Layer, e.Source)
}

// ConversionError indicates a record could not be converted.
type ConversionError struct {
	Layer  string
	Reason string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert layer %s: %s", e.Layer, e.Reason)
}

// CacheMismatchError indicates that the cache directory for a request holds
// a manifest produced with different parameters.
type CacheMismatchError struct {
	Dir    string
	Fields []string // manifest fields that differ
}

func (e *CacheMismatchError) Error() string {
	return fmt.Sprintf("cached shapefiles in %s do not match request (%s); rerun with new data",
		e.Dir, strings.Join(e.Fields, ", "))
}
