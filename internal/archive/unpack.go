// Package archive unpacks the zipped FileGDB distributions into a working
// directory.
package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/beetlebugorg/seacharts/internal/observability"
)

// ErrNoGeodatabase is wrapped in an ExtractionError when an archive holds no
// .gdb directory.
var ErrNoGeodatabase = errors.New("no .gdb directory in archive")

const partialSuffix = ".partial"

// Unpacker extracts <ExternalDir>/<id>.zip into <WorkDir>/<id>/.
type Unpacker struct {
	ExternalDir string
	WorkDir     string
	Force       bool // re-extract even when the target exists
	Logger      *slog.Logger
	Metrics     *observability.Metrics
}

// ZipPath returns the path of the zip file for archiveID.
func (u *Unpacker) ZipPath(archiveID string) string {
	return filepath.Join(u.ExternalDir, archiveID+".zip")
}

// TargetDir returns the extraction directory for archiveID.
func (u *Unpacker) TargetDir(archiveID string) string {
	return filepath.Join(u.WorkDir, archiveID)
}

// Unpack extracts the archive unless it is already extracted, and returns
// the .gdb directory inside it.
func (u *Unpacker) Unpack(archiveID string) (string, error) {
	logger := observability.OrDefault(u.Logger)
	zipPath := u.ZipPath(archiveID)
	target := u.TargetDir(archiveID)

	if !u.Force {
		if _, err := os.Stat(target); err == nil {
			logger.Debug("archive already unpacked", "archive", archiveID, "dir", target)
			gdb, err := FindGeodatabase(target)
			if err != nil {
				return "", &ExtractionError{Archive: zipPath, Err: err}
			}
			return gdb, nil
		}
	}

	if _, err := os.Stat(zipPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &ArchiveNotFoundError{Path: zipPath}
		}
		return "", &ExtractionError{Archive: zipPath, Err: err}
	}

	partial := target + partialSuffix
	if err := os.RemoveAll(partial); err != nil {
		return "", &ExtractionError{Archive: zipPath, Err: err}
	}
	if err := extractZip(zipPath, partial); err != nil {
		os.RemoveAll(partial)
		return "", &ExtractionError{Archive: zipPath, Err: err}
	}
	if _, err := FindGeodatabase(partial); err != nil {
		os.RemoveAll(partial)
		return "", &ExtractionError{Archive: zipPath, Err: err}
	}

	if err := os.RemoveAll(target); err != nil {
		return "", &ExtractionError{Archive: zipPath, Err: err}
	}
	if err := os.Rename(partial, target); err != nil {
		return "", &ExtractionError{Archive: zipPath, Err: err}
	}

	u.Metrics.ArchiveExtracted()
	logger.Info("archive unpacked", "archive", archiveID, "dir", target)

	gdb, err := FindGeodatabase(target)
	if err != nil {
		return "", &ExtractionError{Archive: zipPath, Err: err}
	}
	return gdb, nil
}

// FindGeodatabase returns the first *.gdb directory below root, in lexical
// order.
func FindGeodatabase(root string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && strings.EqualFold(filepath.Ext(d.Name()), ".gdb") {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", ErrNoGeodatabase
	}
	return found, nil
}

func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	cleanDest := filepath.Clean(destDir) + string(os.PathSeparator)
	for _, f := range r.File {
		fpath := filepath.Join(destDir, f.Name)

		// Zip slip.
		if !strings.HasPrefix(fpath, cleanDest) {
			return fmt.Errorf("invalid file path: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(fpath), 0o755); err != nil {
			return err
		}
		if err := extractFile(f, fpath); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, fpath string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(fpath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
