package archive

import "fmt"

// ArchiveNotFoundError indicates the expected zip file is absent.
type ArchiveNotFoundError struct {
	Path string
}

func (e *ArchiveNotFoundError) Error() string {
	return fmt.Sprintf("archive not found: %s", e.Path)
}

// ExtractionError indicates a zip file could not be extracted.
type ExtractionError struct {
	Archive string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Archive, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
