package gis

import (
	"sort"

	"github.com/paulmach/orb"
)

// Memory is an in-process Source holding records per layer. It backs tests
// and pre-extracted data.
type Memory struct {
	layers map[string][]Record
}

// NewMemory returns an empty Memory source.
func NewMemory() *Memory {
	return &Memory{layers: make(map[string][]Record)}
}

// Add appends records to layer, creating it if needed.
func (m *Memory) Add(layer string, records ...Record) *Memory {
	m.layers[layer] = append(m.layers[layer], records...)
	return m
}

// Layers implements Source.
func (m *Memory) Layers() ([]string, error) {
	names := make([]string, 0, len(m.layers))
	for name := range m.layers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Read implements Source. Records whose bounds do not intersect b are
// omitted; clipping is left to the caller.
func (m *Memory) Read(layer string, b orb.Bound) ([]Record, error) {
	var out []Record
	for _, r := range m.layers[layer] {
		if r.Geometry == nil || !r.Geometry.Bound().Intersects(b) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
