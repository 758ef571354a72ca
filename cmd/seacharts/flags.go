package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/beetlebugorg/seacharts/internal/config"
	"github.com/beetlebugorg/seacharts/internal/features"
	"github.com/beetlebugorg/seacharts/internal/geometry"
)

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// chartFlags are the flags shared by every chart-building command.
type chartFlags struct {
	config       string
	origin       string
	center       string
	centerLonLat string
	size         string
	regions      stringList
	layers       string
	depths       string
	tolerance    float64
	newData      bool
	dataDir      string
	logLevel     string
}

func (f *chartFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.config, "config", "", "YAML configuration file")
	fs.StringVar(&f.origin, "origin", "", "window origin as easting,northing (EUREF89 UTM 33)")
	fs.StringVar(&f.center, "center", "", "window center as easting,northing")
	fs.StringVar(&f.centerLonLat, "center-lonlat", "", "window center as longitude,latitude")
	fs.StringVar(&f.size, "size", "", "window size as width,height in metres")
	fs.Var(&f.regions, "region", "county name (repeatable)")
	fs.StringVar(&f.layers, "layers", "", "comma separated categories: "+strings.Join(features.Names(), ","))
	fs.StringVar(&f.depths, "depths", "", "comma separated depth bins in metres")
	fs.Float64Var(&f.tolerance, "tolerance", 0, "polygon simplification distance in metres")
	fs.BoolVar(&f.newData, "new-data", false, "convert shapefiles again")
	fs.StringVar(&f.dataDir, "data-dir", "", "data directory")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
}

// load reads the configuration and applies the flags set on fs over it.
func (f *chartFlags) load(fs *flag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}

	var applyErr error
	fs.Visit(func(fl *flag.Flag) {
		if applyErr != nil {
			return
		}
		applyErr = f.apply(cfg, fl.Name)
	})
	if applyErr != nil {
		return nil, applyErr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f *chartFlags) apply(cfg *config.Config, name string) error {
	switch name {
	case "origin":
		p, err := parsePair(f.origin)
		if err != nil {
			return fmt.Errorf("-origin: %w", err)
		}
		cfg.ENC.Origin, cfg.ENC.Center = []float64{p[0], p[1]}, nil
	case "center":
		p, err := parsePair(f.center)
		if err != nil {
			return fmt.Errorf("-center: %w", err)
		}
		cfg.ENC.Center, cfg.ENC.Origin = []float64{p[0], p[1]}, nil
	case "center-lonlat":
		p, err := parsePair(f.centerLonLat)
		if err != nil {
			return fmt.Errorf("-center-lonlat: %w", err)
		}
		en := geometry.UTM33.Forward(p)
		cfg.ENC.Center, cfg.ENC.Origin = []float64{en[0], en[1]}, nil
	case "size":
		p, err := parsePair(f.size)
		if err != nil {
			return fmt.Errorf("-size: %w", err)
		}
		cfg.ENC.Size = []float64{p[0], p[1]}
	case "region":
		cfg.ENC.Regions = append([]string(nil), f.regions...)
	case "layers":
		cfg.ENC.Layers = splitList(f.layers)
	case "depths":
		bins, err := features.ParseDepths(f.depths)
		if err != nil {
			return fmt.Errorf("-depths: %w", err)
		}
		cfg.ENC.Depths = bins
	case "tolerance":
		cfg.ENC.Tolerance = f.tolerance
	case "new-data":
		cfg.ENC.NewData = f.newData
	case "data-dir":
		cfg.ENC.DataDir = f.dataDir
	case "log-level":
		cfg.Log.Level = f.logLevel
	}
	return nil
}

// parsePair parses "x,y".
func parsePair(s string) (orb.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return orb.Point{}, fmt.Errorf("want two comma separated numbers, got %q", s)
	}
	var p orb.Point
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return orb.Point{}, fmt.Errorf("parse %q: %w", part, err)
		}
		p[i] = v
	}
	return p, nil
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
