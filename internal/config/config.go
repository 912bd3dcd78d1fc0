// Package config handles build job configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/Faultbox/terratiler/pkg/tiling"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all build settings.
type Config struct {
	Job     JobConfig     `yaml:"job"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// JobConfig describes one pyramid build.
type JobConfig struct {
	Input      string   `yaml:"input"`  // EGRD elevation grid
	Output     string   `yaml:"output"` // Tile set root directory
	MinDepth   int      `yaml:"min_depth"`
	MaxDepth   int      `yaml:"max_depth"`
	Intensity  float64  `yaml:"intensity"` // Refinement intensity, 1..16
	Profile    string   `yaml:"profile"`
	Origin     string   `yaml:"origin"`
	Normals    bool     `yaml:"normals"`
	Gzip       bool     `yaml:"gzip"`
	MosaicSize int      `yaml:"mosaic_size"`
	Workers    int      `yaml:"workers"`
	GridCells  int      `yaml:"grid_cells"`       // Root grid cells per tile side
	NoData     *float32 `yaml:"nodata,omitempty"` // Overrides the grid's own nodata marker
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	LogFile string `yaml:"log_file"`
}

// MetricsConfig holds run metrics settings.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // Prometheus text file written after a run
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Job: JobConfig{
			Output:     "tiles",
			MinDepth:   0,
			MaxDepth:   14,
			Intensity:  tiling.DefaultIntensity,
			Profile:    tiling.Geodetic.String(),
			Origin:     tiling.BottomLeft.String(),
			Normals:    true,
			Gzip:       false,
			MosaicSize: 16,
			Workers:    runtime.NumCPU(),
			GridCells:  64,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "console",
			LogFile: "",
		},
	}
}

// Scheme resolves the profile and origin names.
func (j JobConfig) Scheme() (tiling.Scheme, error) {
	p, err := tiling.ParseProfile(j.Profile)
	if err != nil {
		return tiling.Scheme{}, err
	}
	o, err := tiling.ParseOrigin(j.Origin)
	if err != nil {
		return tiling.Scheme{}, err
	}
	return tiling.Scheme{Profile: p, Origin: o}, nil
}

// Validate reports the first setting a build cannot run with.
func (c *Config) Validate() error {
	j := c.Job
	s, err := j.Scheme()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if j.MinDepth < 0 || j.MaxDepth > s.Profile.MaxDepth() {
		return fmt.Errorf("%w: depths %d..%d outside 0..%d", ErrInvalidConfig, j.MinDepth, j.MaxDepth, s.Profile.MaxDepth())
	}
	if j.MinDepth > j.MaxDepth {
		return fmt.Errorf("%w: min depth %d above max depth %d", ErrInvalidConfig, j.MinDepth, j.MaxDepth)
	}
	if j.MosaicSize < 1 {
		return fmt.Errorf("%w: mosaic size %d", ErrInvalidConfig, j.MosaicSize)
	}
	if j.Workers < 1 {
		return fmt.Errorf("%w: %d workers", ErrInvalidConfig, j.Workers)
	}
	if j.GridCells < 1 || j.GridCells&(j.GridCells-1) != 0 {
		return fmt.Errorf("%w: grid cells %d is not a power of two", ErrInvalidConfig, j.GridCells)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}
