package convert

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/beetlebugorg/seacharts/internal/features"
)

// ManifestName is the file name of the manifest inside a cache directory.
const ManifestName = "manifest.yaml"

// Manifest records the parameters a cache directory was produced with and
// the shapefiles it contains.
type Manifest struct {
	Key        string     `yaml:"key"`
	Regions    []string   `yaml:"regions"`
	Window     [4]float64 `yaml:"window"` // xmin, ymin, xmax, ymax
	Categories []string   `yaml:"categories"`
	Depths     []float64  `yaml:"depths"`
	Tolerance  float64    `yaml:"tolerance"`
	CreatedAt  time.Time  `yaml:"created_at"`
	Files      []File     `yaml:"files"`
}

// File describes one shapefile in a cache directory.
type File struct {
	Name     string   `yaml:"name"` // feature name, e.g. "seabed_3m"
	Path     string   `yaml:"path"` // relative to the cache directory
	Category string   `yaml:"category"`
	Kind     string   `yaml:"kind"`
	Depth    *float64 `yaml:"depth,omitempty"`
	Records  int      `yaml:"records"`
}

// ReadManifest reads the manifest in dir.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// WriteManifest writes m into dir.
func WriteManifest(dir string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, ManifestName), data, 0o644)
}

// diff returns the names of the parameters on which m and want differ.
func (m *Manifest) diff(want *Manifest) []string {
	var fields []string
	if !slices.Equal(m.Regions, want.Regions) {
		fields = append(fields, "regions")
	}
	if m.Window != want.Window {
		fields = append(fields, "window")
	}
	if !slices.Equal(m.Categories, want.Categories) {
		fields = append(fields, "categories")
	}
	if !features.DepthBins(m.Depths).Equal(want.Depths) {
		fields = append(fields, "depths")
	}
	if m.Tolerance != want.Tolerance {
		fields = append(fields, "tolerance")
	}
	return fields
}

// complete reports whether every file the manifest lists exists in dir.
func (m *Manifest) complete(dir string) (bool, error) {
	for _, f := range m.Files {
		for _, ext := range []string{".shp", ".shx", ".dbf"} {
			path := filepath.Join(dir, trimExt(f.Path)+ext)
			if _, err := os.Stat(path); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return false, nil
				}
				return false, err
			}
		}
	}
	return true, nil
}

func trimExt(p string) string {
	return p[:len(p)-len(filepath.Ext(p))]
}
