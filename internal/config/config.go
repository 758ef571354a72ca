// Package config reads the seacharts YAML configuration and applies
// environment overrides.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"

	"github.com/beetlebugorg/seacharts/internal/features"
	"github.com/beetlebugorg/seacharts/pkg/enc"
)

// Config is the root of the configuration file.
type Config struct {
	ENC    ENCConfig    `yaml:"enc"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
}

// ENCConfig describes the chart window and data selection.
type ENCConfig struct {
	Size      []float64 `yaml:"size"`
	Origin    []float64 `yaml:"origin"`
	Center    []float64 `yaml:"center"`
	Regions   []string  `yaml:"region"`
	Depths    []float64 `yaml:"depths"`
	Layers    []string  `yaml:"layers"`
	Tolerance float64   `yaml:"tolerance"`
	NewData   bool      `yaml:"new_data"`
	DataDir   string    `yaml:"data_dir"`
	Workers   int       `yaml:"workers"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ENC: ENCConfig{
			Size:    []float64{enc.DefaultSize[0], enc.DefaultSize[1]},
			Origin:  []float64{enc.DefaultOrigin[0], enc.DefaultOrigin[1]},
			Regions: append([]string(nil), enc.DefaultRegions...),
			Depths:  append([]float64(nil), features.DefaultDepths...),
			DataDir: enc.DefaultDataDir,
		},
		Log:    LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path falls back to SEACHARTS_CONFIG; when
// that is unset too, only defaults and environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("SEACHARTS_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		// A file that sets center replaces the default origin.
		if len(cfg.ENC.Center) > 0 && !originSetIn(data) {
			cfg.ENC.Origin = nil
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// originSetIn reports whether the YAML document sets enc.origin.
func originSetIn(data []byte) bool {
	var probe struct {
		ENC struct {
			Origin []float64 `yaml:"origin"`
		} `yaml:"enc"`
	}
	return yaml.Unmarshal(data, &probe) == nil && len(probe.ENC.Origin) > 0
}

func (c *Config) applyEnv() error {
	c.ENC.DataDir = envOverride(c.ENC.DataDir, "SEACHARTS_DATA_DIR")
	c.Log.Level = envOverride(c.Log.Level, "SEACHARTS_LOG_LEVEL")
	c.Log.Format = envOverride(c.Log.Format, "SEACHARTS_LOG_FORMAT")
	c.Server.Addr = envOverride(c.Server.Addr, "SEACHARTS_ADDR")

	if v := os.Getenv("SEACHARTS_NEW_DATA"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SEACHARTS_NEW_DATA %q: %w", v, err)
		}
		c.ENC.NewData = b
	}
	return nil
}

// envOverride returns the environment value of envVar when set, else value.
func envOverride(value, envVar string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return value
}

// Validate checks the shape of the configuration values.
func (c *Config) Validate() error {
	if len(c.ENC.Size) != 2 {
		return fmt.Errorf("enc.size must have 2 values, got %d", len(c.ENC.Size))
	}
	if len(c.ENC.Origin) != 0 && len(c.ENC.Origin) != 2 {
		return fmt.Errorf("enc.origin must have 2 values, got %d", len(c.ENC.Origin))
	}
	if len(c.ENC.Center) != 0 && len(c.ENC.Center) != 2 {
		return fmt.Errorf("enc.center must have 2 values, got %d", len(c.ENC.Center))
	}
	if len(c.ENC.Origin) == 2 && len(c.ENC.Center) == 2 {
		return fmt.Errorf("enc.origin and enc.center are mutually exclusive")
	}
	if err := features.DepthBins(c.ENC.Depths).Validate(); err != nil {
		return fmt.Errorf("enc.depths: %w", err)
	}
	if c.ENC.Tolerance < 0 || math.IsNaN(c.ENC.Tolerance) || math.IsInf(c.ENC.Tolerance, 0) {
		return fmt.Errorf("enc.tolerance must be a non-negative distance, got %g", c.ENC.Tolerance)
	}
	if _, unknown := features.Select(c.ENC.Layers); len(unknown) > 0 {
		return fmt.Errorf("enc.layers: unknown %v", unknown)
	}
	return nil
}

// Options maps the configuration onto chart options.
func (c *Config) Options() enc.Options {
	opts := enc.Options{
		Size:       [2]float64{c.ENC.Size[0], c.ENC.Size[1]},
		Regions:    append([]string(nil), c.ENC.Regions...),
		Depths:     append([]float64(nil), c.ENC.Depths...),
		Categories: append([]string(nil), c.ENC.Layers...),
		Tolerance:  c.ENC.Tolerance,
		NewData:    c.ENC.NewData,
		DataDir:    c.ENC.DataDir,
		Workers:    c.ENC.Workers,
	}
	if len(c.ENC.Center) == 2 {
		p := orb.Point{c.ENC.Center[0], c.ENC.Center[1]}
		opts.Center = &p
	} else if len(c.ENC.Origin) == 2 {
		p := orb.Point{c.ENC.Origin[0], c.ENC.Origin[1]}
		opts.Origin = &p
	}
	return opts
}
