package config

import (
	"flag"
	"strconv"
)

// Flags holds command-line overrides. Zero values leave the config alone.
type Flags struct {
	Config    *string
	Debug     *bool
	Input     *string
	Output    *string
	MinDepth  *int
	MaxDepth  *int
	Intensity *float64
	Workers   *int
	Gzip      *bool
	Metrics   *string
	NoData    *float32 // set only when -nodata is given
}

// RegisterFlags defines the override flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{
		Config:    fs.String("config", "", "Path to config file"),
		Debug:     fs.Bool("debug", false, "Enable debug logging"),
		Input:     fs.String("input", "", "Input elevation grid (EGRD)"),
		Output:    fs.String("output", "", "Output tile directory"),
		MinDepth:  fs.Int("min-depth", -1, "Shallowest depth written"),
		MaxDepth:  fs.Int("max-depth", -1, "Deepest depth built"),
		Intensity: fs.Float64("intensity", 0, "Refinement intensity (1-16)"),
		Workers:   fs.Int("workers", 0, "Concurrent tile workers"),
		Gzip:      fs.Bool("gzip", false, "Gzip tile files"),
		Metrics:   fs.String("metrics", "", "Write Prometheus metrics to this text file"),
	}
	fs.Func("nodata", "Nodata marker overriding the grid's own", func(s string) error {
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return err
		}
		nd := float32(v)
		f.NoData = &nd
		return nil
	})
	return f
}

// ConfigPath returns the explicit config path if provided via --config flag.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.Config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if *f.Debug {
		cfg.Logging.Level = "debug"
	}
	if *f.Input != "" {
		cfg.Job.Input = *f.Input
	}
	if *f.Output != "" {
		cfg.Job.Output = *f.Output
	}
	if *f.MinDepth >= 0 {
		cfg.Job.MinDepth = *f.MinDepth
	}
	if *f.MaxDepth >= 0 {
		cfg.Job.MaxDepth = *f.MaxDepth
	}
	if *f.Intensity > 0 {
		cfg.Job.Intensity = *f.Intensity
	}
	if *f.Workers > 0 {
		cfg.Job.Workers = *f.Workers
	}
	if *f.Gzip {
		cfg.Job.Gzip = true
	}
	if *f.Metrics != "" {
		cfg.Metrics.Textfile = *f.Metrics
	}
	if f.NoData != nil {
		cfg.Job.NoData = f.NoData
	}
}
