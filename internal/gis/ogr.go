package gis

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// EPSG is the spatial reference every record is delivered in.
const EPSG = "EPSG:25833"

// Runner executes an external command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &CommandError{
			Command: name,
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}
	return stdout.Bytes(), nil
}

// OGROptions configures the GDAL command line tools.
type OGROptions struct {
	OGRInfo string // ogrinfo binary
	OGR2OGR string // ogr2ogr binary
	Runner  Runner
}

// DefaultOGROptions returns options honouring the OGRINFO and OGR2OGR
// environment variables.
func DefaultOGROptions() OGROptions {
	opts := OGROptions{
		OGRInfo: "ogrinfo",
		OGR2OGR: "ogr2ogr",
		Runner:  ExecRunner{},
	}
	if v := os.Getenv("OGRINFO"); v != "" {
		opts.OGRInfo = v
	}
	if v := os.Getenv("OGR2OGR"); v != "" {
		opts.OGR2OGR = v
	}
	return opts
}

// OGR reads a FileGDB through ogrinfo and ogr2ogr.
type OGR struct {
	path string
	opts OGROptions
	ctx  context.Context
}

// NewOGROpener returns an Opener backed by the GDAL command line tools.
func NewOGROpener(ctx context.Context, opts OGROptions) Opener {
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return func(gdbDir string) (Source, error) {
		info, err := os.Stat(gdbDir)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", gdbDir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("open %s: not a directory", gdbDir)
		}
		return &OGR{path: gdbDir, opts: opts, ctx: ctx}, nil
	}
}

// Path returns the container path.
func (o *OGR) Path() string {
	return o.path
}

// Layers implements Source.
func (o *OGR) Layers() ([]string, error) {
	out, err := o.opts.Runner.Run(o.ctx, o.opts.OGRInfo, "-ro", "-q", o.path)
	if err != nil {
		return nil, fmt.Errorf("list layers of %s: %w", o.path, err)
	}
	return ParseLayerList(out), nil
}

// Read implements Source.
func (o *OGR) Read(layer string, b orb.Bound) ([]Record, error) {
	out, err := o.opts.Runner.Run(o.ctx, o.opts.OGR2OGR, readArgs(o.path, layer, b)...)
	if err != nil {
		return nil, fmt.Errorf("read layer %s: %w", layer, err)
	}
	records, err := DecodeRecords(out)
	if err != nil {
		return nil, fmt.Errorf("read layer %s: %w", layer, err)
	}
	return records, nil
}

func readArgs(path, layer string, b orb.Bound) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		"-f", "GeoJSON", "/vsistdout/",
		path, layer,
		"-spat", f(b.Min[0]), f(b.Min[1]), f(b.Max[0]), f(b.Max[1]),
		"-spat_srs", EPSG,
		"-clipsrc", "spat_extent",
		"-t_srs", EPSG,
		"-nlt", "PROMOTE_TO_MULTI",
	}
}

// layerLine matches ogrinfo summary lines such as "1: Dybdeareal (Multi Polygon)".
var layerLine = regexp.MustCompile(`^\s*\d+:\s+(\S+)(?:\s+\(.*\))?\s*$`)

// ParseLayerList extracts layer names from ogrinfo summary output.
func ParseLayerList(out []byte) []string {
	var layers []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if m := layerLine.FindStringSubmatch(scanner.Text()); m != nil {
			layers = append(layers, m[1])
		}
	}
	return layers
}

// DecodeRecords decodes a GeoJSON FeatureCollection. Features without a
// geometry are skipped.
func DecodeRecords(data []byte) ([]Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	records := make([]Record, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		records = append(records, Record{
			Geometry:   f.Geometry,
			Properties: map[string]any(f.Properties),
		})
	}
	return records, nil
}
