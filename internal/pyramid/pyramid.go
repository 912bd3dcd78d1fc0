// Package pyramid drives a terrain tile build: it grids the root tiles,
// then walks the quadtree depth by depth, refining, writing and splitting
// every tile mesh and handing the children to the next depth.
//
// Tiles of one depth are processed concurrently, one mesh per worker. A
// tile that fails is recorded and its subtree dropped; the build goes on.
package pyramid

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/terratiler/pkg/quantizedmesh"
	"github.com/Faultbox/terratiler/pkg/seam"
	"github.com/Faultbox/terratiler/pkg/terrain"
	"github.com/Faultbox/terratiler/pkg/tiling"
)

// Builder runs one pyramid build.
type Builder struct {
	opts    Options
	sampler terrain.Sampler
	bounds  tiling.Extent
	log     *zap.Logger
	metrics *Metrics
}

// New returns a builder over sampler. log may be nil.
func New(opts Options, sampler terrain.Sampler, log *zap.Logger) (*Builder, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	bounds, ok := sampler.Extent().Clip(opts.Scheme.Profile.Bounds())
	if !ok {
		return nil, fmt.Errorf("%w: data extent %s is outside the %s profile", ErrInvalidOptions, sampler.Extent(), opts.Scheme.Profile)
	}

	return &Builder{
		opts:    opts,
		sampler: sampler,
		bounds:  bounds,
		log:     log,
		metrics: NewMetrics(),
	}, nil
}

// Metrics returns the build metrics.
func (b *Builder) Metrics() *Metrics { return b.metrics }

// WriteMetrics writes the build metrics in Prometheus text format to path.
func (b *Builder) WriteMetrics(path string) error {
	return b.metrics.WriteTextfile(path)
}

// Run builds the pyramid and writes layer.json. It returns early with the
// context error when ctx is done; tile failures do not stop it.
func (b *Builder) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{}
	o := b.opts

	b.log.Info("build started",
		zap.Stringer("profile", o.Scheme.Profile),
		zap.Stringer("origin", o.Scheme.Origin),
		zap.Int("min_depth", o.MinDepth),
		zap.Int("max_depth", o.MaxDepth),
		zap.Float64("intensity", o.Policy.Intensity),
		zap.Stringer("bounds", b.bounds),
		zap.Int("workers", o.Workers),
	)

	layer := quantizedmesh.NewLayer(o.Name, o.Scheme, b.bounds, o.MinDepth, o.MaxDepth, o.Normals)

	current := make(map[tiling.Index]*terrain.Mesh)
	for _, root := range o.Scheme.Roots() {
		m, err := terrain.BuildGrid(o.Scheme, root, b.sampler, o.GridCells)
		if err != nil {
			b.log.Error("root grid failed", zap.Stringer("tile", root), zap.Error(err))
			report.Failures = append(report.Failures, TileFailure{Tile: root, Err: err})
			b.metrics.TilesFailed.WithLabelValues(depthLabel(0)).Inc()
			continue
		}
		current[root] = m
	}

	for depth := 0; depth <= o.MaxDepth && len(current) > 0; depth++ {
		st, err := b.runDepth(ctx, depth, current)
		if err != nil {
			report.Duration = time.Since(start)
			return report, err
		}

		report.Depths = append(report.Depths, st.report)
		report.Failures = append(report.Failures, st.failures...)
		report.Written += st.report.Written
		report.Bytes += st.report.Bytes
		if depth >= o.MinDepth {
			layer.SetAvailable(depth, st.written)
		}
		b.metrics.DepthsCompleted.Inc()

		b.log.Info("depth done",
			zap.Int("depth", depth),
			zap.Int("tiles", st.report.Tiles),
			zap.Int("written", st.report.Written),
			zap.Int("failed", st.report.Failed),
			zap.Int("imbalanced", st.report.Imbalanced),
			zap.Duration("elapsed", st.report.Duration),
		)
		current = st.next
	}

	if err := quantizedmesh.WriteLayer(o.Output, layer); err != nil {
		report.Duration = time.Since(start)
		return report, fmt.Errorf("writing layer: %w", err)
	}

	report.Duration = time.Since(start)
	b.log.Info("build finished",
		zap.Int("written", report.Written),
		zap.Int("failed", report.Failed()),
		zap.Int64("bytes", report.Bytes),
		zap.Duration("elapsed", report.Duration),
	)
	return report, nil
}

// runDepth processes the meshes of one depth, mosaic block by mosaic block.
// Meshes outside the covering range of the data are dropped.
func (b *Builder) runDepth(ctx context.Context, depth int, meshes map[tiling.Index]*terrain.Mesh) (*depthState, error) {
	start := time.Now()
	st := &depthState{
		report: DepthReport{Depth: depth},
		next:   make(map[tiling.Index]*terrain.Mesh, len(meshes)*4),
	}

	cover, err := b.opts.Scheme.Covering(depth, b.bounds)
	if err != nil {
		return nil, err
	}
	th, err := b.opts.Policy.Thresholds(depth)
	if err != nil {
		return nil, err
	}

	blocks := cover.Subdivide(b.opts.MosaicSize, b.opts.MosaicSize)
	for i, block := range blocks {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(b.opts.Workers)

		tiles := 0
		block.Each(func(idx tiling.Index) error {
			m, ok := meshes[idx]
			if !ok {
				return nil
			}
			tiles++
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				b.processTile(idx, m, th, st)
				return nil
			})
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		st.report.Tiles += tiles
		if tiles > 0 {
			b.log.Debug("mosaic done",
				zap.Int("depth", depth),
				zap.Int("block", i+1),
				zap.Int("blocks", len(blocks)),
				zap.Stringer("range", block),
				zap.Int("tiles", tiles),
			)
		}
	}

	st.report.Duration = time.Since(start)
	return st, nil
}

// processTile refines, writes and splits one tile mesh. Errors are recorded
// on st; the tile then has no children.
func (b *Builder) processTile(idx tiling.Index, m *terrain.Mesh, th tiling.Thresholds, st *depthState) {
	start := time.Now()
	defer func() { b.metrics.TileDuration.Observe(time.Since(start).Seconds()) }()

	if err := b.buildTile(idx, m, th, st); err != nil {
		b.log.Error("tile failed", zap.Stringer("tile", idx), zap.Error(err))
		b.metrics.TilesFailed.WithLabelValues(depthLabel(idx.L)).Inc()
		st.failed(idx, err)
	}
}

func (b *Builder) buildTile(idx tiling.Index, m *terrain.Mesh, th tiling.Thresholds, st *depthState) error {
	o := b.opts
	ext, err := o.Scheme.Extent(idx)
	if err != nil {
		return err
	}

	stats, err := terrain.Refine(m, o.Scheme, b.sampler, th, idx.L < o.MaxDepth)
	if err != nil {
		return fmt.Errorf("refine: %w", err)
	}
	b.metrics.Bisections.Add(float64(stats.Bisected))

	seam.Clamp(m, ext)

	if idx.L >= o.MinDepth {
		n, err := b.writeTile(idx, m, ext)
		if err != nil {
			return err
		}
		b.metrics.TilesWritten.WithLabelValues(depthLabel(idx.L)).Inc()
		b.metrics.BytesWritten.Add(float64(n))
		st.wrote(idx, n, stats.Triangles)
	}

	if idx.L >= o.MaxDepth {
		return nil
	}

	splitStart := time.Now()
	children, rep, err := terrain.Split(m, o.Scheme, b.log)
	if err != nil {
		return fmt.Errorf("split: %w", err)
	}
	b.metrics.SplitDuration.Observe(time.Since(splitStart).Seconds())
	b.metrics.Splits.Inc()
	if rep.Imbalanced() {
		b.metrics.ImbalanceWarns.Inc()
	}

	cover, err := o.Scheme.Covering(idx.L+1, b.bounds)
	if err != nil {
		return err
	}
	kept := children[:0]
	for _, c := range children {
		if cover.Contains(c.Tile) {
			kept = append(kept, c)
		}
	}
	st.split(rep.Imbalanced(), kept)
	return nil
}

// writeTile encodes m and writes it next to its final path before renaming
// it into place.
func (b *Builder) writeTile(idx tiling.Index, m *terrain.Mesh, ext tiling.Extent) (int, error) {
	if b.opts.Normals {
		if _, err := m.ComputeNormals(); err != nil {
			return 0, fmt.Errorf("normals: %w", err)
		}
	}
	tile, err := quantizedmesh.FromMesh(m, ext, b.opts.Normals)
	if err != nil {
		return 0, fmt.Errorf("encode: %w", err)
	}

	tmp := filepath.Join(b.opts.Output, tiling.TempPath(idx))
	n, err := quantizedmesh.WriteFile(tmp, tile, b.opts.Gzip)
	if err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, filepath.Join(b.opts.Output, tiling.Path(idx))); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("renaming tile: %w", err)
	}
	return n, nil
}
