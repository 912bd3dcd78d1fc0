package pyramid

import (
	"errors"
	"fmt"

	"github.com/Faultbox/terratiler/pkg/tiling"
)

// ErrInvalidOptions is returned by New for options a build cannot run with.
var ErrInvalidOptions = errors.New("invalid pyramid options")

// Defaults applied to zero option values.
const (
	DefaultMosaicSize = 16
	DefaultGridCells  = 64
	DefaultName       = "terrain"
)

// Options configures one pyramid build.
type Options struct {
	Scheme   tiling.Scheme
	Policy   tiling.Policy
	MinDepth int // shallowest depth written
	MaxDepth int // deepest depth built

	Output  string // tile set root
	Name    string // layer name
	Normals bool
	Gzip    bool

	MosaicSize int // mosaic block side in tiles, for progress reporting
	Workers    int
	GridCells  int // root grid cells per side
}

func (o *Options) setDefaults() {
	if o.MosaicSize <= 0 {
		o.MosaicSize = DefaultMosaicSize
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.GridCells <= 0 {
		o.GridCells = DefaultGridCells
	}
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.Policy.Intensity == 0 {
		o.Policy = tiling.NewPolicy(tiling.DefaultIntensity)
	}
}

func (o *Options) validate() error {
	if o.Output == "" {
		return fmt.Errorf("%w: no output directory", ErrInvalidOptions)
	}
	if err := tiling.CheckDepth(o.MinDepth); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if limit := o.Scheme.Profile.MaxDepth(); o.MaxDepth > limit {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, &tiling.DepthError{Depth: o.MaxDepth, Max: limit})
	}
	if o.MinDepth > o.MaxDepth {
		return fmt.Errorf("%w: min depth %d above max depth %d", ErrInvalidOptions, o.MinDepth, o.MaxDepth)
	}
	return nil
}
