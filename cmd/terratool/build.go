package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/Faultbox/terratiler/internal/config"
	"github.com/Faultbox/terratiler/internal/logger"
	"github.com/Faultbox/terratiler/internal/pyramid"
	"github.com/Faultbox/terratiler/pkg/elevation"
	"github.com/Faultbox/terratiler/pkg/tiling"
)

func cmdBuild(args []string) {
	if code := runBuild(args); code != 0 {
		os.Exit(code)
	}
}

// runBuild builds a pyramid and returns the exit status: 1 on errors, 2
// when some tiles failed. It returns rather than exits so the logger is
// flushed and the signal handler released on every path.
func runBuild(args []string) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	flags := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return errorf("%v", err)
	}
	if fs.NArg() > 0 {
		cfg.Job.Input = fs.Arg(0)
	}
	if cfg.Job.Input == "" {
		fmt.Fprintln(os.Stderr, "Usage: terratool build [options] <grid.egrd>")
		return 1
	}
	if err := cfg.Validate(); err != nil {
		return errorf("%v", err)
	}

	logCfg := logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Console: true}
	if cfg.Logging.LogFile != "" {
		logCfg.File = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithConfig(logCfg); err != nil {
		return errorf("initializing logger: %v", err)
	}
	defer logger.Sync()

	grid, err := loadGrid(cfg)
	if err != nil {
		logger.Error("loading grid", zap.String("path", cfg.Job.Input), zap.Error(err))
		return 1
	}
	logger.Info("grid loaded",
		zap.String("path", cfg.Job.Input),
		zap.Int("cols", grid.Cols),
		zap.Int("rows", grid.Rows),
		zap.Stringer("bounds", grid.Bounds),
		zap.Float32("nodata", grid.NoData),
	)

	opts, err := jobOptions(cfg)
	if err != nil {
		logger.Error("job options", zap.Error(err))
		return 1
	}
	logger.Debug("job options",
		zap.String("output", opts.Output),
		zap.Int("mosaic_size", opts.MosaicSize),
		zap.Int("grid_cells", opts.GridCells),
		zap.Bool("normals", opts.Normals),
		zap.Bool("gzip", opts.Gzip),
	)
	b, err := pyramid.New(opts, grid, logger.Named("pyramid"))
	if err != nil {
		logger.Error("invalid job", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := b.Run(ctx)
	if report != nil {
		printReport(report)
	}

	if path := cfg.Metrics.Textfile; path != "" {
		if err := b.WriteMetrics(path); err != nil {
			logger.Error("writing metrics", zap.Error(err))
		} else {
			logger.Sugar.Infof("metrics written to %s", path)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn("build interrupted")
			return 1
		}
		logger.Error("build failed", zap.Error(runErr))
		return 1
	}
	if n := report.Failed(); n > 0 {
		logger.Warn("tiles failed",
			zap.Int("failed", n),
			zap.Int("written", report.Written),
			zap.Stringer("first", report.Failures[0].Tile),
		)
		return 2
	}
	return 0
}

// loadGrid reads the input grid. The grid keeps its own nodata marker
// unless the job overrides it.
func loadGrid(cfg *config.Config) (*elevation.Grid, error) {
	grid, err := elevation.ParseFile(cfg.Job.Input)
	if err != nil {
		return nil, err
	}
	if nd := cfg.Job.NoData; nd != nil {
		grid.NoData = *nd
	}
	return grid, nil
}

// jobOptions turns the job section of cfg into pyramid options.
func jobOptions(cfg *config.Config) (pyramid.Options, error) {
	s, err := cfg.Job.Scheme()
	if err != nil {
		return pyramid.Options{}, err
	}
	return pyramid.Options{
		Scheme:     s,
		Policy:     tiling.NewPolicy(cfg.Job.Intensity),
		MinDepth:   cfg.Job.MinDepth,
		MaxDepth:   cfg.Job.MaxDepth,
		Output:     cfg.Job.Output,
		Normals:    cfg.Job.Normals,
		Gzip:       cfg.Job.Gzip,
		MosaicSize: cfg.Job.MosaicSize,
		Workers:    cfg.Job.Workers,
		GridCells:  cfg.Job.GridCells,
	}, nil
}

func printReport(r *pyramid.Report) {
	fmt.Println()
	fmt.Printf("%-6s %10s %10s %8s %8s %12s %10s\n", "depth", "tiles", "triangles", "failed", "warn", "size", "time")
	for _, d := range r.Depths {
		fmt.Printf("%-6d %10s %10s %8d %8d %12s %10s\n",
			d.Depth,
			humanize.Comma(int64(d.Written)),
			humanize.Comma(int64(d.Triangles)),
			d.Failed,
			d.Imbalanced,
			humanize.Bytes(uint64(d.Bytes)),
			d.Duration.Round(time.Millisecond),
		)
	}
	fmt.Println()
	fmt.Printf("Tiles:   %s\n", humanize.Comma(int64(r.Written)))
	fmt.Printf("Size:    %s\n", humanize.Bytes(uint64(r.Bytes)))
	fmt.Printf("Elapsed: %s\n", r.Duration.Round(time.Millisecond))

	if n := r.Failed(); n > 0 {
		fmt.Printf("Failed:  %d\n", n)
		for i, f := range r.Failures {
			if i == 10 {
				fmt.Printf("  ... and %d more\n", n-i)
				break
			}
			fmt.Printf("  %s: %v\n", f.Tile, f.Err)
		}
	}
}
